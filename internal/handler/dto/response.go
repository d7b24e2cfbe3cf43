package dto

import (
	"time"

	"github.com/mtlprog/casegrid/internal/domain"
	"github.com/mtlprog/casegrid/internal/service"
)

// TaskResponse is one grid row.
type TaskResponse struct {
	ID              string    `json:"id"`
	Title           *string   `json:"title"`
	Status          string    `json:"status" example:"active"`
	Category        string    `json:"category" example:"civil_case"`
	AssignedTo      string    `json:"assigned_to" example:"division_1"`
	LastActionTaken string    `json:"last_action_taken" example:"filed_motion"`
	LastActionDate  time.Time `json:"last_action_date"`
}

// TaskListResponse represents the response for GET /tasks.
type TaskListResponse struct {
	Data      []TaskResponse `json:"data"`
	PageCount int            `json:"page_count"`
	Total     int            `json:"total"`
	Page      int            `json:"page"`
	PerPage   int            `json:"per_page"`
}

// MutationResponse is returned by single-row mutations. Data is always null;
// Error is null on success.
type MutationResponse struct {
	Data  any     `json:"data" swaggertype:"object"`
	Error *string `json:"error"`
}

// BatchResponse summarizes a batch of independent mutations.
type BatchResponse struct {
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Error     *string `json:"error"`
}

// ToTaskResponse converts a domain task.
func ToTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Status:          string(t.Status),
		Category:        string(t.Category),
		AssignedTo:      string(t.AssignedTo),
		LastActionTaken: string(t.LastActionTaken),
		LastActionDate:  t.LastActionDate,
	}
}

// ToTaskListResponse converts a page and the query that produced it.
func ToTaskListResponse(page *domain.TaskPage, q domain.TaskQuery) TaskListResponse {
	data := make([]TaskResponse, len(page.Tasks))
	for i, t := range page.Tasks {
		data[i] = ToTaskResponse(t)
	}
	return TaskListResponse{
		Data:      data,
		PageCount: page.PageCount,
		Total:     page.Total,
		Page:      q.Page,
		PerPage:   q.PerPage,
	}
}

// NewMutationResponse wraps the outcome of a single-row mutation.
func NewMutationResponse(err error) MutationResponse {
	if err == nil {
		return MutationResponse{}
	}
	msg := err.Error()
	return MutationResponse{Error: &msg}
}

// ToBatchResponse converts a batch result.
func ToBatchResponse(r service.BatchResult) BatchResponse {
	resp := BatchResponse{Succeeded: r.Succeeded, Failed: r.Failed}
	if r.Err != nil {
		msg := r.Err.Error()
		resp.Error = &msg
	}
	return resp
}

// StatsResponse represents the response for GET /tasks/stats.
type StatsResponse struct {
	Total  int                       `json:"total"`
	Facets map[string]map[string]int `json:"facets"`
}

// ToStatsResponse converts domain stats.
func ToStatsResponse(s *domain.TaskStats) StatsResponse {
	return StatsResponse{Total: s.Total, Facets: s.Facets}
}
