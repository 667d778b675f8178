package controllers

import (
	"net/http"

	"feedback360/schema"

	"github.com/gin-gonic/gin"
)

// CreateQuestion (operator) adds a question to the library.
func (h *Handler) CreateQuestion(c *gin.Context) {
	var in schema.NewQuestion
	if err := c.ShouldBindJSON(&in); err != nil {
		RespondError(c, "invalid payload", http.StatusBadRequest)
		return
	}
	q, err := h.Library.AddQuestion(in)
	if err != nil {
		RespondAppError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}
