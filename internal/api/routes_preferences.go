package api

import (
	"github.com/gin-gonic/gin"

	"github.com/relieflink/relieflink/internal/handlers"
)

func registerPreferencesRoutes(api *gin.RouterGroup, handler *handlers.PreferencesHandler) {
	group := api.Group("/users/:id/preferences")
	{
		group.GET("", handler.Get)
		group.PATCH("", handler.Update)
	}
}
