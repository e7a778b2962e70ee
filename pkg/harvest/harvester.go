package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/comic-harvester/pkg/client"
	"github.com/Sternrassler/comic-harvester/pkg/gate"
	"github.com/Sternrassler/comic-harvester/pkg/logging"
	"github.com/Sternrassler/comic-harvester/pkg/records"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is a step of a harvest run.
type State string

const (
	StateIdle                State = "idle"
	StateFetchingCollections State = "fetching_collections"
	StateExpandingCollection State = "expanding_collection"
	StateDispatchingItems    State = "dispatching_items"
	StateDraining            State = "draining"
	StateReporting           State = "reporting"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

// progressEvery controls how often record counts are logged.
const progressEvery = 100

// API is the set of remote operations a run needs. *client.Client
// implements it.
type API interface {
	ListCollections(ctx context.Context, set string) ([]records.CollectionEntry, error)
	ItemLister
	DetailSource
}

// Config holds harvester configuration.
type Config struct {
	// CollectionSet selects the named group of collections to harvest.
	CollectionSet string

	// Observer, when set, is called synchronously on every state transition.
	// collection is the index of the current collection, or -1.
	Observer func(state State, collection int)
}

// Failure records a detail fetch that produced no record.
type Failure struct {
	URL   string
	Class client.ErrorClass
	Err   error
}

// Report is the outcome of a completed run.
type Report struct {
	RunID         string
	CollectionSet string
	Collections   int
	Dispatched    int
	Records       []records.DetailRecord
	Failures      []Failure
	PeakInFlight  int
	StartedAt     time.Time
	Duration      time.Duration
}

// Harvester drives harvest runs. A Harvester may be reused for several
// sequential runs; each run gets fresh results.
type Harvester struct {
	api      API
	gate     *gate.Gate
	config   Config
	fetcher  *Fetcher
	expander *Expander
	logger   zerolog.Logger

	state   atomic.Value // State
	running atomic.Bool
}

// New creates a harvester.
func New(api API, g *gate.Gate, cfg Config) (*Harvester, error) {
	if api == nil {
		return nil, fmt.Errorf("api is required")
	}
	if g == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if cfg.CollectionSet == "" {
		return nil, fmt.Errorf("collection set is required")
	}

	logger := logging.NewLogger("harvest")
	h := &Harvester{
		api:      api,
		gate:     g,
		config:   cfg,
		fetcher:  NewFetcher(api, g, logger),
		expander: NewExpander(api, logger),
		logger:   logger,
	}
	h.state.Store(StateIdle)
	return h, nil
}

// State returns the current state of the active or last run.
func (h *Harvester) State() State {
	return h.state.Load().(State)
}

// run holds the state of one harvest run.
type run struct {
	logger  zerolog.Logger
	results *Results
	wg      sync.WaitGroup

	mu       sync.Mutex
	failures []Failure

	dispatched atomic.Int64
}

func (r *run) fail(f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

// Run performs one harvest. It returns a report only if discovery and every
// collection expansion succeeded; per-item failures are in the report.
func (h *Harvester) Run(ctx context.Context) (*Report, error) {
	if !h.running.CompareAndSwap(false, true) {
		return nil, errors.New("harvest already running")
	}
	defer h.running.Store(false)

	start := time.Now()
	id := uuid.NewString()
	r := &run{
		logger:  logging.ForRun(h.logger, id),
		results: NewResults(),
	}

	// Cancelled on fatal error so in-flight fetches stop before Run returns.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Info().
		Str("collection_set", h.config.CollectionSet).
		Int("max_in_flight", h.gate.Capacity()).
		Msg("Starting harvest")

	collections, err := h.dispatchAll(runCtx, r)
	if err != nil {
		cancel()
		r.wg.Wait()
		return nil, h.abort(r, err)
	}

	h.transition(StateDraining, -1)
	r.logger.Info().Int64("dispatched", r.dispatched.Load()).Msg("Waiting for detail fetches")
	r.wg.Wait()

	// A cancelled run has no complete result set to report.
	if ctx.Err() != nil {
		return nil, h.abort(r, fmt.Errorf("harvest cancelled: %w", ctx.Err()))
	}

	h.transition(StateReporting, -1)
	report := &Report{
		RunID:         id,
		CollectionSet: h.config.CollectionSet,
		Collections:   collections,
		Dispatched:    int(r.dispatched.Load()),
		Records:       r.results.Snapshot(),
		Failures:      r.failures,
		PeakInFlight:  h.gate.Peak(),
		StartedAt:     start,
		Duration:      time.Since(start),
	}

	runsTotal.WithLabelValues("completed").Inc()
	lastRunDuration.Set(report.Duration.Seconds())
	lastRunRecords.Set(float64(len(report.Records)))

	r.logger.Info().
		Int("collections", report.Collections).
		Int("dispatched", report.Dispatched).
		Int("records", len(report.Records)).
		Int("failed", len(report.Failures)).
		Int("peak_in_flight", report.PeakInFlight).
		Dur("duration", report.Duration).
		Msg("Harvest complete")

	h.transition(StateDone, -1)
	return report, nil
}

func (h *Harvester) abort(r *run, err error) error {
	h.transition(StateFailed, -1)
	runsTotal.WithLabelValues("failed").Inc()
	r.logger.Error().
		Err(err).
		Int64("dispatched", r.dispatched.Load()).
		Msg("Harvest aborted")
	return err
}

// dispatchAll lists and expands collections in order, starting one fetch
// goroutine per item. It returns the number of collections.
func (h *Harvester) dispatchAll(ctx context.Context, r *run) (int, error) {
	h.transition(StateFetchingCollections, -1)
	collections, err := h.api.ListCollections(ctx, h.config.CollectionSet)
	if err != nil {
		return 0, fmt.Errorf("list collections %q: %w", h.config.CollectionSet, err)
	}
	r.logger.Info().Int("collections", len(collections)).Msg("Collections discovered")

	for i, collection := range collections {
		h.transition(StateExpandingCollection, i)
		urls, err := h.expander.Expand(ctx, collection)
		if err != nil {
			return len(collections), err
		}

		h.transition(StateDispatchingItems, i)
		for _, url := range urls {
			r.wg.Add(1)
			r.dispatched.Add(1)
			itemsDispatchedTotal.Inc()
			go h.fetchInto(ctx, r, url)
		}
	}
	return len(collections), nil
}

// fetchInto fetches one record and appends it to the run results.
func (h *Harvester) fetchInto(ctx context.Context, r *run, url string) {
	defer r.wg.Done()

	rec, err := h.fetcher.Fetch(ctx, url)
	if err != nil {
		class := client.Classify(err)
		itemsFailedTotal.WithLabelValues(string(class)).Inc()
		r.fail(Failure{URL: url, Class: class, Err: err})
		r.logger.Warn().
			Err(err).
			Str("url", url).
			Str("error_class", string(class)).
			Msg("Detail fetch failed, skipping item")
		return
	}

	n := r.results.Append(rec)
	recordsCollectedTotal.Inc()
	if n%progressEvery == 0 {
		r.logger.Info().
			Int("records", n).
			Int64("dispatched", r.dispatched.Load()).
			Msg("Harvest progress")
	}
}

func (h *Harvester) transition(state State, collection int) {
	h.state.Store(state)
	ev := h.logger.Debug().Str("state", string(state))
	if collection >= 0 {
		ev = ev.Int("collection", collection)
	}
	ev.Msg("State transition")
	if h.config.Observer != nil {
		h.config.Observer(state, collection)
	}
}
