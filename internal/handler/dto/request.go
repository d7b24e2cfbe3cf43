package dto

// UpdateStatusRequest represents the request body for PATCH /tasks/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" example:"inactive"`
}

// BatchUpdateStatusRequest represents the request body for PATCH /tasks/status.
type BatchUpdateStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status" example:"inactive"`
}

// BatchDeleteRequest represents the request body for POST /tasks/delete.
type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}
