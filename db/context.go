package db

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

const ctxKey = "feedback360.db"

// Bind exposes conn to handlers that need the raw connection (health).
func Bind(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKey, conn)
		c.Next()
	}
}

// FromContext returns the connection set by Bind.
func FromContext(c *gin.Context) (*gorm.DB, bool) {
	v, ok := c.Get(ctxKey)
	if !ok {
		return nil, false
	}
	conn, ok := v.(*gorm.DB)
	return conn, ok && conn != nil
}

// Ping checks the underlying sql.DB is reachable.
func Ping(conn *gorm.DB) error {
	if conn == nil || conn.DB() == nil {
		return errors.New("db: no connection")
	}
	return conn.DB().Ping()
}
