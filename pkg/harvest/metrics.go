package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for harvest runs.
var (
	itemsDispatchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_items_dispatched_total",
		Help: "Total detail fetches started",
	})

	itemsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_items_failed_total",
		Help: "Total detail fetches that produced no record, by error class",
	}, []string{"class"})

	recordsCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_records_collected_total",
		Help: "Total detail records appended to run results",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_runs_total",
		Help: "Total harvest runs by outcome",
	}, []string{"outcome"}) // "completed", "failed"

	lastRunDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_last_run_duration_seconds",
		Help: "Duration of the most recent completed run",
	})

	lastRunRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_last_run_records",
		Help: "Records collected by the most recent completed run",
	})
)
