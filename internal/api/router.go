package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/geocode"
	"github.com/relieflink/relieflink/internal/handlers"
	"github.com/relieflink/relieflink/internal/middleware"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, resolver geocode.Resolver) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if resolver == nil {
		return nil, fmt.Errorf("geocode resolver must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Health endpoint (public)
	r.GET("/health", handlers.Health(db))

	api := r.Group("/api")

	disasterHandler, err := handlers.NewDisasterHandler(db)
	if err != nil {
		return nil, err
	}
	registerDisasterRoutes(api, disasterHandler)

	notificationHandler, err := handlers.NewNotificationHandler(db)
	if err != nil {
		return nil, err
	}
	registerNotificationRoutes(api, notificationHandler)

	locationHandler, err := handlers.NewLocationHandler(db, resolver)
	if err != nil {
		return nil, err
	}
	registerLocationRoutes(api, locationHandler)

	preferencesHandler, err := handlers.NewPreferencesHandler(db)
	if err != nil {
		return nil, err
	}
	registerPreferencesRoutes(api, preferencesHandler)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
