package api

import (
	"github.com/gin-gonic/gin"

	"github.com/relieflink/relieflink/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.POST("/bulk", handler.BulkCreate)
		group.POST("/:id/read", handler.MarkRead)
		group.POST("/:id/unread", handler.MarkUnread)
		group.POST("/:id/acknowledge", handler.Acknowledge)
		group.DELETE("/:id", handler.Delete)
	}

	api.GET("/users/:id/notifications", handler.ListForUser)
	api.POST("/users/:id/notifications/read-all", handler.MarkAllRead)
}
