package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncCyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rostersync",
			Name:      "sync_cycles_total",
			Help:      "Completed sync cycles, successful or not.",
		},
	)

	syncPulledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rostersync",
			Name:      "sync_pulled_records_total",
			Help:      "Remote records pulled during sync.",
		},
		[]string{"collection"},
	)

	syncPushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rostersync",
			Name:      "sync_pushed_records_total",
			Help:      "Local dirty records pushed during sync.",
		},
		[]string{"collection"},
	)

	syncFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rostersync",
			Name:      "sync_failures_total",
			Help:      "Per-collection sync failures.",
		},
		[]string{"collection"},
	)
)
