package api

import (
	"github.com/gin-gonic/gin"

	"github.com/relieflink/relieflink/internal/handlers"
)

func registerLocationRoutes(api *gin.RouterGroup, handler *handlers.LocationHandler) {
	group := api.Group("/locations")
	{
		group.POST("", handler.Create)
		group.POST("/bulk", handler.BulkCreate)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
	}

	api.GET("/companies/:id/locations", handler.ListForCompany)
}
