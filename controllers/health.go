package controllers

import (
	"net/http"

	"feedback360/db"

	"github.com/gin-gonic/gin"
)

// Health pings the database bound by db.Bind.
func Health(c *gin.Context) {
	conn, ok := db.FromContext(c)
	if !ok || db.Ping(conn) != nil {
		RespondError(c, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	RespondSuccess(c, gin.H{"status": "ok"})
}
