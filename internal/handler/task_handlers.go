package handler

import (
	"fmt"
	"net/http"

	"github.com/mtlprog/casegrid/internal/domain"
	"github.com/mtlprog/casegrid/internal/handler/dto"
)

// handleListTasks returns one page of the grid.
// @Summary List tasks
// @Description Paginated, sorted and filtered task listing. Enum filters take dot-separated values (status=active.inactive). The title filter accepts an optional ~operator suffix (ilike, notIlike, startsWith, endsWith, eq, notEq, isNull, isNotNull). Storage failures yield an empty page.
// @Tags tasks
// @Produce json
// @Param page query int false "Page number, 1-based" default(1)
// @Param per_page query int false "Rows per page" default(10)
// @Param sort query string false "column.direction" default(title.desc)
// @Param title query string false "Title filter, value~operator"
// @Param status query string false "Dot-separated statuses"
// @Param category query string false "Dot-separated categories"
// @Param assigned_to query string false "Dot-separated divisions"
// @Param last_action_taken query string false "Dot-separated last actions"
// @Param operator query string false "and | or" default(and)
// @Success 200 {object} dto.TaskListResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /tasks [get]
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q, err := h.params.Parse(r.URL.Query())
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	page, err := h.grid.GetTasks(r.Context(), q)
	if err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskListResponse(page, q))
}

// handleUpdateStatus changes the status of one task.
// @Summary Update task status
// @Description Sets the status of one task. A missing task is not an error.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.MutationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.MutationResponse
// @Failure 500 {object} dto.MutationResponse
// @Router /tasks/{id}/status [patch]
func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.respondMutation(w, h.grid.UpdateTaskStatus(r.Context(), taskID, req.Status))
}

// handleDeleteTask deletes one task.
// @Summary Delete task
// @Description Deletes one task. With population maintenance enabled a freshly generated task is inserted in the same transaction, also when the id did not exist.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.MutationResponse
// @Failure 422 {object} dto.MutationResponse
// @Failure 500 {object} dto.MutationResponse
// @Router /tasks/{id} [delete]
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractTaskID(w, r)
	if !ok {
		return
	}

	h.respondMutation(w, h.grid.DeleteTask(r.Context(), taskID))
}

// handleBatchUpdateStatus sets the status of several tasks.
// @Summary Update status of several tasks
// @Description Runs independent status updates concurrently. There is no atomicity across the batch. An unknown status is rejected before any update runs.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.BatchUpdateStatusRequest true "Ids and new status"
// @Success 200 {object} dto.BatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /tasks/status [patch]
func (h *Handler) handleBatchUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchUpdateStatusRequest
	if !decodeJSON(w, r, &req) || !validBatch(w, req.IDs) {
		return
	}
	if _, err := domain.TaskStatuses.Parse(req.Status); err != nil {
		status, code, message := dto.MapDomainError(err)
		respondError(w, status, code, message)
		return
	}

	result := h.grid.UpdateTasksStatus(r.Context(), req.IDs, req.Status)
	respondJSON(w, http.StatusOK, dto.ToBatchResponse(result))
}

// handleBatchDelete deletes several tasks.
// @Summary Delete several tasks
// @Description Runs independent deletes concurrently. There is no atomicity across the batch.
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body dto.BatchDeleteRequest true "Ids to delete"
// @Success 200 {object} dto.BatchResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /tasks/delete [post]
func (h *Handler) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchDeleteRequest
	if !decodeJSON(w, r, &req) || !validBatch(w, req.IDs) {
		return
	}

	result := h.grid.DeleteTasks(r.Context(), req.IDs)
	respondJSON(w, http.StatusOK, dto.ToBatchResponse(result))
}

// respondMutation renders the {data, error} envelope with the status mapped
// from the error.
func (h *Handler) respondMutation(w http.ResponseWriter, err error) {
	status := http.StatusOK
	if err != nil {
		status, _, _ = dto.MapDomainError(err)
	}
	respondJSON(w, status, dto.NewMutationResponse(err))
}

func validBatch(w http.ResponseWriter, ids []string) bool {
	switch {
	case len(ids) == 0:
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ids must not be empty")
		return false
	case len(ids) > maxBatchSize:
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("at most %d ids per request", maxBatchSize))
		return false
	}
	return true
}
