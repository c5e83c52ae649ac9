package api

import (
	"github.com/gin-gonic/gin"

	"github.com/relieflink/relieflink/internal/handlers"
)

func registerDisasterRoutes(api *gin.RouterGroup, handler *handlers.DisasterHandler) {
	group := api.Group("/disasters")
	{
		group.POST("", handler.Upsert)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
	}
}
