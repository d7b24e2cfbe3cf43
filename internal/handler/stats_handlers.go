package handler

import (
	"net/http"

	"github.com/mtlprog/casegrid/internal/handler/dto"
)

// handleGetStats returns per-member counts for the faceted filters.
// @Summary Get facet counts
// @Description Number of tasks per member of status, category, assigned_to and last_action_taken. Storage failures yield zero counts.
// @Tags stats
// @Produce json
// @Success 200 {object} dto.StatsResponse
// @Router /tasks/stats [get]
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.grid.GetStats(r.Context())
	respondJSON(w, http.StatusOK, dto.ToStatsResponse(stats))
}
