// Package metrics provides the Prometheus registry shared by the harvester
// packages and pushes run metrics to a Pushgateway.
// All metrics are defined in their respective packages (client, cache, gate,
// harvest) to maintain modularity and avoid circular dependencies.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry is the default Prometheus registry used by the harvester.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects everything registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// DefaultJob is the Pushgateway job name of harvester runs.
const DefaultJob = "comic_harvester"

// Metrics Documentation
//
// Gate Metrics (pkg/gate):
//   - harvest_gate_in_flight (Gauge): Detail fetches currently holding a permit
//   - harvest_gate_wait_seconds (Histogram): Time spent waiting for a permit
//
// Request Metrics (pkg/client):
//   - harvest_requests_total{operation, status} (Counter): Requests by operation and HTTP status
//   - harvest_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - harvest_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Cache Metrics (pkg/cache):
//   - harvest_cache_hits_total{operation} (Counter): Cache hits by operation
//   - harvest_cache_misses_total{operation} (Counter): Cache misses by operation
//   - harvest_cache_errors_total{operation} (Counter): Cache operation errors
//
// Run Metrics (pkg/harvest):
//   - harvest_items_dispatched_total (Counter): Detail fetches started
//   - harvest_items_failed_total{class} (Counter): Skipped items by error class
//   - harvest_records_collected_total (Counter): Records appended to results
//   - harvest_runs_total{outcome} (Counter): Runs by outcome (completed, failed)
//   - harvest_last_run_duration_seconds (Gauge): Duration of the last completed run
//   - harvest_last_run_records (Gauge): Records of the last completed run
//
// Example Prometheus Queries:
//
//   # Skipped Item Rate
//   sum(rate(harvest_items_failed_total[5m])) / sum(rate(harvest_items_dispatched_total[5m]))
//
//   # Gate Saturation
//   histogram_quantile(0.95, rate(harvest_gate_wait_seconds_bucket[5m]))
//
//   # P95 Detail Latency
//   histogram_quantile(0.95, rate(harvest_request_duration_seconds_bucket{operation="get_detail"}[5m]))

// PushConfig configures a Pushgateway push.
type PushConfig struct {
	// URL of the Pushgateway, e.g. "http://localhost:9091".
	URL string

	// Job name (default: DefaultJob)
	Job string

	// Grouping labels added to the push, e.g. the run id.
	Grouping map[string]string

	// Gatherer to push (default: Gatherer)
	Gatherer prometheus.Gatherer
}

// Push replaces the metrics of the configured job and grouping on the
// Pushgateway. A harvester run is a batch job, so nothing is scraped.
func Push(ctx context.Context, cfg PushConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("pushgateway url is required")
	}
	job := cfg.Job
	if job == "" {
		job = DefaultJob
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = Gatherer
	}

	pusher := push.New(cfg.URL, job).Gatherer(gatherer)
	for name, value := range cfg.Grouping {
		pusher = pusher.Grouping(name, value)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", cfg.URL, err)
	}
	return nil
}
