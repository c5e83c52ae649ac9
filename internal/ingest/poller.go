package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relieflink/relieflink/internal/models"
	"github.com/relieflink/relieflink/internal/services"
	"github.com/relieflink/relieflink/pkg/logger"
)

const defaultPollSchedule = "@hourly"

// DeclarationFetcher abstracts the upstream declaration feed.
type DeclarationFetcher interface {
	FetchDeclarations(ctx context.Context, since *time.Time) ([]Declaration, error)
}

// RunStats summarises one ingestion run.
type RunStats struct {
	Fetched  int
	New      int
	Updated  int
	FanOut   services.FanOutResult
	Dispatch services.DispatchSummary
}

// Option customises the Poller.
type Option func(*Poller)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(p *Poller) {
		if c != nil {
			p.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for ingestion runs.
func WithSchedule(spec string) Option {
	return func(p *Poller) {
		if spec != "" {
			p.schedule = spec
		}
	}
}

// WithNow overrides the clock used for refresh bookkeeping.
func WithNow(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// Poller periodically pulls declarations from the upstream feed, upserts
// them into the registry, fans newly seen disasters out to affected users
// and drains the resulting email notifications. Run errors are logged and
// retried on the next tick, never fatal to the process.
type Poller struct {
	fetcher    DeclarationFetcher
	disasters  *services.DisasterService
	fanout     *services.FanOutService
	dispatcher *services.EmailDispatchService

	cron     *cron.Cron
	schedule string
	now      func() time.Time
	log      *zap.Logger

	mu          sync.Mutex
	lastRefresh *time.Time
}

// NewPoller constructs a Poller. The dispatcher may be nil, in which case
// email dispatch is left to another process.
func NewPoller(fetcher DeclarationFetcher, disasters *services.DisasterService, fanout *services.FanOutService, dispatcher *services.EmailDispatchService, opts ...Option) (*Poller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("ingest poller: fetcher is required")
	}
	if disasters == nil {
		return nil, fmt.Errorf("ingest poller: disaster service is required")
	}
	if fanout == nil {
		return nil, fmt.Errorf("ingest poller: fan-out service is required")
	}

	poller := &Poller{
		fetcher:    fetcher,
		disasters:  disasters,
		fanout:     fanout,
		dispatcher: dispatcher,
		schedule:   defaultPollSchedule,
		now:        time.Now,
		log:        logger.WithModule("ingest"),
	}
	for _, opt := range opts {
		opt(poller)
	}
	if poller.cron == nil {
		poller.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return poller, nil
}

// Start registers the ingestion job and launches the scheduler.
func (p *Poller) Start() error {
	if _, err := p.cron.AddFunc(p.schedule, func() {
		if _, err := p.RunOnce(context.Background()); err != nil {
			p.log.Warn("ingestion run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	p.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running job to complete.
func (p *Poller) Stop() context.Context {
	if p.cron == nil {
		return context.Background()
	}
	return p.cron.Stop()
}

// RunOnce executes a single fetch-upsert-fanout-dispatch cycle.
func (p *Poller) RunOnce(ctx context.Context) (RunStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var stats RunStats

	started := p.now().UTC()
	declarations, err := p.fetcher.FetchDeclarations(ctx, p.LastRefresh())
	if err != nil {
		return stats, err
	}
	stats.Fetched = len(declarations)

	var (
		fresh   []models.Disaster
		upsErrs error
	)
	for _, declaration := range declarations {
		disaster, isNew, err := p.disasters.Upsert(ctx, declaration.Input())
		if err != nil {
			p.log.Warn("declaration upsert failed",
				zap.String("external_id", declaration.FemaDeclarationString),
				zap.Error(err))
			upsErrs = multierr.Append(upsErrs, err)
			continue
		}
		if isNew {
			stats.New++
			fresh = append(fresh, *disaster)
		} else {
			stats.Updated++
		}
	}

	if len(fresh) > 0 {
		result, err := p.fanout.ProcessNewDisasters(ctx, fresh)
		stats.FanOut = result
		if err != nil {
			// Partial insert failures are already committed row by row;
			// log and keep going so dispatch still runs.
			p.log.Warn("fan-out reported failures",
				zap.Int("created", result.Created),
				zap.Int("failed", len(result.Failures)),
				zap.Error(err))
		}
	}

	if p.dispatcher != nil {
		summary, err := p.dispatcher.SendPending(ctx)
		stats.Dispatch = summary
		if err != nil {
			p.log.Warn("email dispatch failed", zap.Error(err))
		}
	}

	// Only advance the cursor when the fetch itself succeeded; upsert
	// failures are retried because the rows reappear on the next poll.
	if upsErrs == nil {
		p.setLastRefresh(started)
	}

	p.log.Info("ingestion run complete",
		zap.Int("fetched", stats.Fetched),
		zap.Int("new", stats.New),
		zap.Int("updated", stats.Updated),
		zap.Int("notifications_created", stats.FanOut.Created),
		zap.Int("emails_sent", stats.Dispatch.Sent))
	return stats, upsErrs
}

// LastRefresh returns the upstream cursor from the previous successful run.
func (p *Poller) LastRefresh() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastRefresh == nil {
		return nil
	}
	cursor := *p.lastRefresh
	return &cursor
}

func (p *Poller) setLastRefresh(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRefresh = &at
}
