// Package gate bounds the number of detail fetches performing remote I/O at
// the same time, and optionally paces how fast new fetches may start.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Prometheus metrics for gate admission.
var (
	gateInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_gate_in_flight",
		Help: "Detail fetches currently holding a gate permit",
	})

	gateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_gate_wait_seconds",
		Help:    "Time spent waiting for a gate permit",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
	})
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("gate closed")

// Config holds gate configuration.
type Config struct {
	// MaxInFlight is the permit count N.
	MaxInFlight int

	// RequestsPerSecond paces admissions. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the pacing bucket size (default: 1).
	Burst int
}

// Gate is a counting admission primitive. Waiters are admitted in no
// particular order.
type Gate struct {
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	capacity int

	inFlight atomic.Int64
	peak     atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a gate with cfg.MaxInFlight permits.
func New(cfg Config) (*Gate, error) {
	if cfg.MaxInFlight < 1 {
		return nil, fmt.Errorf("max_in_flight must be >= 1 (got %d)", cfg.MaxInFlight)
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %g)", cfg.RequestsPerSecond)
	}

	g := &Gate{
		sem:      semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		capacity: cfg.MaxInFlight,
		closed:   make(chan struct{}),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g, nil
}

// Acquire blocks until a permit is available. The returned permit must be
// released on every exit path, typically with defer.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	select {
	case <-g.closed:
		return nil, ErrClosed
	default:
	}

	start := time.Now()
	// Closing the gate unblocks waiters.
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-g.closed:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		return nil, g.waitErr(ctx, err)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(waitCtx); err != nil {
			g.sem.Release(1)
			return nil, g.waitErr(ctx, err)
		}
	}
	gateWaitSeconds.Observe(time.Since(start).Seconds())

	n := g.inFlight.Add(1)
	gateInFlight.Inc()
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}

	return &Permit{gate: g}, nil
}

func (g *Gate) waitErr(ctx context.Context, err error) error {
	select {
	case <-g.closed:
		return ErrClosed
	default:
	}
	if ctx.Err() != nil {
		return fmt.Errorf("acquire permit: %w", ctx.Err())
	}
	return fmt.Errorf("acquire permit: %w", err)
}

// Close stops admitting new waiters. Permits already held stay valid.
func (g *Gate) Close() {
	g.closeOnce.Do(func() { close(g.closed) })
}

// Capacity returns the permit count N.
func (g *Gate) Capacity() int {
	return g.capacity
}

// InFlight returns the number of permits currently held.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}

// Peak returns the highest InFlight value observed since creation.
func (g *Gate) Peak() int {
	return int(g.peak.Load())
}

func (g *Gate) release() {
	if g.inFlight.Add(-1) < 0 {
		panic("gate: permit count below zero")
	}
	gateInFlight.Dec()
	// semaphore panics if released more than held
	g.sem.Release(1)
}

// Permit authorizes one concurrent detail fetch.
type Permit struct {
	gate *Gate
	once sync.Once
}

// Release returns the permit to the pool. Calls after the first are no-ops.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(p.gate.release)
}
