package controllers

import (
	"net/http"

	"feedback360/models"
	"feedback360/summaries"

	"github.com/gin-gonic/gin"
)

type summaryRequest struct {
	BatchID       int64   `json:"batch_id" binding:"required"`
	ModelName     *string `json:"model_name"`
	PromptVersion *int    `json:"prompt_version"`
}

func (h *Handler) ListSummaries(c *gin.Context) {
	subjectID, ok := QueryInt64(c, "subject_user_id")
	if !ok {
		return
	}
	batchID, ok := QueryInt64(c, "batch_id")
	if !ok {
		return
	}
	status := c.Query("status")
	if status != "" && !models.IsSummaryStatus(status) {
		RespondError(c, "Invalid status", http.StatusBadRequest)
		return
	}
	limit, ok := QueryInt(c, "limit", 100)
	if !ok {
		return
	}
	offset, ok := QueryInt(c, "offset", 0)
	if !ok {
		return
	}

	out, err := h.Jobs.List(summaries.ListFilter{SubjectID: subjectID, BatchID: batchID, Status: status, Limit: limit, Offset: offset})
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, out)
}

// ReadySummaries lists the pending summaries of ready batches.
func (h *Handler) ReadySummaries(c *gin.Context) {
	out, err := h.Jobs.Ready()
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, out)
}

func (h *Handler) GetSummary(c *gin.Context) {
	id, ok := ParamID(c, "summaryId")
	if !ok {
		return
	}
	s, err := h.Jobs.Get(id)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, s)
}

func (h *Handler) CreateSummary(c *gin.Context) {
	var in summaryRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, "invalid payload: batch_id is required", http.StatusBadRequest)
		return
	}
	s, err := h.Jobs.Create(in.BatchID, in.ModelName, in.PromptVersion)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) PatchSummary(c *gin.Context) {
	id, ok := ParamID(c, "summaryId")
	if !ok {
		return
	}
	var in summaries.Patch
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, "invalid payload", http.StatusBadRequest)
		return
	}
	s, err := h.Jobs.Patch(id, in)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, s)
}

func (h *Handler) DeleteSummary(c *gin.Context) {
	id, ok := ParamID(c, "summaryId")
	if !ok {
		return
	}
	if err := h.Jobs.Delete(id); err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ComputeSummary runs the summary of a ready batch synchronously.
func (h *Handler) ComputeSummary(c *gin.Context) {
	var in summaryRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, "invalid payload: batch_id is required", http.StatusBadRequest)
		return
	}
	s, err := h.Jobs.Compute(c.Request.Context(), in.BatchID, in.ModelName, in.PromptVersion)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, s)
}
