package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartinbox_messages_ingested_total",
		Help: "Messages stored by the ingestion pipeline",
	})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartinbox_duplicates_skipped_total",
		Help: "Messages recognized as duplicates and not re-processed",
	})

	ClassifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartinbox_classify_failures_total",
		Help: "Classifier calls that failed and degraded to an empty label",
	})

	IndexFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartinbox_index_failures_total",
		Help: "Search index writes that failed after a successful store",
	})

	FetchRetriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartinbox_fetch_retries_exhausted_total",
		Help: "Watcher events dropped after exhausting fetch retries",
	})

	FanoutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartinbox_fanout_failures_total",
		Help: "Side-effect dispatcher failures by dispatcher name",
	}, []string{"dispatcher"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartinbox_sessions_active",
		Help: "Live mailbox sessions",
	})
)
