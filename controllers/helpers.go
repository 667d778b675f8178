package controllers

import (
	"net/http"
	"strconv"

	"feedback360/models"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key of the per-request id.
const RequestIDKey = "request_id"

func ParamID(c *gin.Context, name string) (int64, bool) {
	v := c.Param(name)
	if v == "" {
		RespondError(c, name+" is required", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// ParamRef parses a prefixed path id such as srv_12 or rsp_7.
func ParamRef(c *gin.Context, name, prefix string) (int64, bool) {
	id, ok := models.ParseRef(prefix, c.Param(name))
	if !ok {
		RespondError(c, "Invalid "+name+" format", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// QueryInt reads an optional integer query parameter.
func QueryInt(c *gin.Context, name string, def int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		RespondError(c, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func QueryInt64(c *gin.Context, name string) (int64, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		RespondError(c, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}
