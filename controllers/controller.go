package controllers

import (
	"errors"
	"net/http"

	"feedback360/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RespondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(200, payload)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindExpired:
		return http.StatusGone
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError renders err; unclassified errors are logged and hidden.
func RespondAppError(c *gin.Context, log *zap.Logger, err error) {
	code := StatusOf(err)
	if code == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Error(err),
		)
		RespondError(c, "internal error", code)
		return
	}

	msg := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	if apperr.IsRetryable(err) {
		c.Header("Retry-After", "1")
		c.JSON(code, gin.H{"error": msg, "retryable": true})
		return
	}
	if field := apperr.FieldOf(err); field != "" {
		c.JSON(code, gin.H{"error": msg, "field": field})
		return
	}
	RespondError(c, msg, code)
}
