package controllers

import (
	"feedback360/access"

	"github.com/gin-gonic/gin"
)

const (
	SurveyTokenHeader = "X-Survey-Token"
	ctxAccessKey      = "survey_access"
)

// SurveyTokenRequired resolves the link token from the X-Survey-Token header
// (or the :linkToken path segment) and stores the access in the context.
func (h *Handler) SurveyTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(SurveyTokenHeader)
		if token == "" {
			token = c.Param("linkToken")
		}
		a, err := h.Gate.Resolve(token)
		if err != nil {
			RespondAppError(c, h.Log, err)
			c.Abort()
			return
		}
		c.Set(ctxAccessKey, a)
		c.Next()
	}
}

// GetSurveyAccess returns the access loaded by SurveyTokenRequired.
func GetSurveyAccess(c *gin.Context) (access.Access, bool) {
	v, ok := c.Get(ctxAccessKey)
	if !ok {
		return access.Access{}, false
	}
	a, ok := v.(access.Access)
	return a, ok
}
