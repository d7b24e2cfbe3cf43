package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	_ "github.com/mtlprog/casegrid/docs" // Import generated docs
	"github.com/mtlprog/casegrid/internal/handler/dto"
	"github.com/mtlprog/casegrid/internal/metrics"
	"github.com/mtlprog/casegrid/internal/service"
	"github.com/mtlprog/casegrid/internal/static"
	httpSwagger "github.com/swaggo/http-swagger"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// maxBatchSize bounds the number of ids in one batch request.
const maxBatchSize = 1000

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	grid    *service.GridService
	params  *service.ParamParser
	pinger  Pinger
	metrics *metrics.Metrics
}

// New creates a new Handler instance with all dependencies. pinger may be nil,
// in which case /healthz always succeeds.
func New(grid *service.GridService, params *service.ParamParser, pinger Pinger, m *metrics.Metrics) *Handler {
	return &Handler{
		grid:    grid,
		params:  params,
		pinger:  pinger,
		metrics: m,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// API guide
	mux.HandleFunc("GET /api.md", h.handleAPIMd)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	// API v1 routes
	mux.HandleFunc("GET /api/v1/tasks", h.handleListTasks)
	mux.HandleFunc("GET /api/v1/tasks/stats", h.handleGetStats)
	mux.HandleFunc("PATCH /api/v1/tasks/{id}/status", h.handleUpdateStatus)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", h.handleDeleteTask)
	mux.HandleFunc("PATCH /api/v1/tasks/status", h.handleBatchUpdateStatus)
	mux.HandleFunc("POST /api/v1/tasks/delete", h.handleBatchDelete)
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			slog.Error("database health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// handleAPIMd serves the embedded API guide.
func (h *Handler) handleAPIMd(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(static.APIMd))
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// decodeJSON reads a bounded JSON body into dst. On failure the error
// response has already been sent.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

// extractTaskID extracts the task ID from the path parameter.
// Returns (taskID, true) if present, ("", false) otherwise (error already sent to client).
func extractTaskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	taskID := r.PathValue("id")
	if taskID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "task id is required")
		return "", false
	}
	return taskID, true
}
