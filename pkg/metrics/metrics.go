package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DisastersIngested counts upserted disaster declarations by outcome (new|updated).
	DisastersIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relieflink_disasters_ingested_total",
			Help: "Total number of disaster declarations ingested",
		},
		[]string{"outcome"},
	)

	// NotificationsCreated counts fan-out notification inserts by channel and result (created|failed).
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relieflink_notifications_created_total",
			Help: "Total number of disaster notifications created by fan-out",
		},
		[]string{"channel", "result"},
	)

	// MessagesDispatched counts outbound messages by result (sent|failed).
	MessagesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relieflink_messages_dispatched_total",
			Help: "Total number of outbound messages handed to the transport",
		},
		[]string{"result"},
	)

	// GeocodeLookups counts FIPS resolution attempts by result (matched|unmatched|error).
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relieflink_geocode_lookups_total",
			Help: "Total number of address-to-FIPS lookups",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relieflink_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
