package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/pkg/response"
)

// Health returns a readiness payload, including database connectivity.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(requestContext(c)) != nil {
				dbStatus = "unreachable"
			}
		}

		if dbStatus != "ok" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": dbStatus})
			return
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "database": dbStatus})
	}
}
