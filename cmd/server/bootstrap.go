package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/relieflink/relieflink/internal/api"
	"github.com/relieflink/relieflink/internal/app"
	"github.com/relieflink/relieflink/internal/database"
	"github.com/relieflink/relieflink/internal/dispatch"
	"github.com/relieflink/relieflink/internal/geocode"
	"github.com/relieflink/relieflink/internal/ingest"
	"github.com/relieflink/relieflink/internal/services"
	"github.com/relieflink/relieflink/pkg/mail"
)

// runtimeStack bundles long-lived components used by the HTTP server.
type runtimeStack struct {
	DB     *gorm.DB
	Poller *ingest.Poller
	Router *gin.Engine
}

// bootstrapRuntime initialises the database, services, ingestion poller and HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database.ConnectionConfig())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var geocodeOpts []geocode.Option
	if cfg.Geocoder.BaseURL != "" {
		geocodeOpts = append(geocodeOpts, geocode.WithBaseURL(cfg.Geocoder.BaseURL))
	}
	resolver := geocode.NewClient(cfg.Geocoder.Timeout, geocodeOpts...)

	router, err := api.NewRouter(db, resolver)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	stack := &runtimeStack{DB: db, Router: router}

	if cfg.Ingest.Enabled {
		poller, err := buildPoller(db, cfg)
		if err != nil {
			return nil, err
		}
		if err := poller.Start(); err != nil {
			return nil, fmt.Errorf("start ingestion poller: %w", err)
		}
		stack.Poller = poller

		// Prime the registry at boot so a fresh deployment does not wait
		// for the first tick.
		go func() {
			if _, err := poller.RunOnce(ctx); err != nil {
				log.Warn("initial ingestion run failed", zap.Error(err))
			}
		}()
	}

	return stack, nil
}

func buildPoller(db *gorm.DB, cfg *app.Config) (*ingest.Poller, error) {
	disasters, err := services.NewDisasterService(db)
	if err != nil {
		return nil, err
	}
	resolver, err := services.NewAffectedResolver(db)
	if err != nil {
		return nil, err
	}
	preferences, err := services.NewPreferencesService(db)
	if err != nil {
		return nil, err
	}
	notifications, err := services.NewNotificationService(db)
	if err != nil {
		return nil, err
	}
	fanout, err := services.NewFanOutService(resolver, preferences, notifications)
	if err != nil {
		return nil, err
	}

	var dispatcher *services.EmailDispatchService
	if cfg.Email.SMTP.Enabled {
		mailer, err := mail.NewSMTPMailer(cfg.Email.SMTP.Settings())
		if err != nil {
			return nil, err
		}
		transport, err := dispatch.NewSMTPTransport(mailer, cfg.Email.SMTP.From)
		if err != nil {
			return nil, err
		}
		batcher, err := dispatch.NewBatcher(transport)
		if err != nil {
			return nil, err
		}
		dispatcher, err = services.NewEmailDispatchService(notifications, batcher, dispatch.NewRenderer())
		if err != nil {
			return nil, err
		}
	}

	var femaOpts []ingest.FEMAClientOption
	if cfg.Ingest.BaseURL != "" {
		femaOpts = append(femaOpts, ingest.WithFEMABaseURL(cfg.Ingest.BaseURL))
	}

	return ingest.NewPoller(
		ingest.NewFEMAClient(femaOpts...),
		disasters,
		fanout,
		dispatcher,
		ingest.WithSchedule(cfg.Ingest.Schedule),
	)
}

// Shutdown stops background jobs and closes the database.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Poller != nil {
		<-s.Poller.Stop().Done()
	}

	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("close database failed", zap.Error(err))
			}
		}
	}
}
