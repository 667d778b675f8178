package router

import (
	"crypto/subtle"
	"net/http"

	"feedback360/controllers"

	"github.com/gin-gonic/gin"
)

const adminKeyHeader = "X-Admin-Key"

// Adminizer blocks operator routes unless X-Admin-Key matches. An empty key
// leaves them open (local setups).
func Adminizer(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.Next()
			return
		}
		got := c.GetHeader(adminKeyHeader)
		if got == "" {
			controllers.RespondError(c, "Missing X-Admin-Key", http.StatusUnauthorized)
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(adminKey)) != 1 {
			controllers.RespondError(c, "admin required", http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
