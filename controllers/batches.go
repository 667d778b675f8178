package controllers

import (
	"feedback360/batches"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListBatches(c *gin.Context) {
	subjectID, ok := QueryInt64(c, "subject_user_id")
	if !ok {
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
	readyOnly := c.Query("readyOnly") == "true" || c.Query("readyOnly") == "1"

	items, err := h.Tracker.List(batches.ListFilter{SubjectID: subjectID, ReadyOnly: readyOnly, Limit: limit, Offset: offset})
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, items)
}

func (h *Handler) GetBatchProgress(c *gin.Context) {
	batchID, ok := ParamID(c, "batchId")
	if !ok {
		return
	}
	p, err := h.Tracker.Progress(batchID)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	RespondSuccess(c, p)
}
