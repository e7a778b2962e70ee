package harvest

import (
	"context"
	"fmt"

	"github.com/Sternrassler/comic-harvester/pkg/client"
	"github.com/Sternrassler/comic-harvester/pkg/gate"
	"github.com/Sternrassler/comic-harvester/pkg/records"
	"github.com/rs/zerolog"
)

// DetailSource performs the get-detail operation.
type DetailSource interface {
	GetDetail(ctx context.Context, locator string) (string, error)
}

// Fetcher fetches and decodes one detail record per call.
type Fetcher struct {
	source DetailSource
	gate   *gate.Gate
	logger zerolog.Logger
}

// NewFetcher creates a fetcher whose remote calls are admitted by g.
func NewFetcher(source DetailSource, g *gate.Gate, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		gate:   g,
		logger: logger,
	}
}

// Fetch issues one get-detail request for locator and decodes the body.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (records.DetailRecord, error) {
	if locator == "" {
		return records.DetailRecord{}, client.ErrEmptyLocator
	}

	raw, err := f.fetchRaw(ctx, locator)
	if err != nil {
		return records.DetailRecord{}, fmt.Errorf("fetch detail %s: %w", locator, err)
	}

	rec, err := records.DecodeDetail([]byte(raw))
	if err != nil {
		return records.DetailRecord{}, fmt.Errorf("fetch detail %s: %w", locator, &client.APIError{
			Operation: client.OperationGetDetail,
			Class:     client.ErrorClassDecode,
			Err:       err,
		})
	}
	return rec, nil
}

// fetchRaw holds a permit from before the request is sent until the body
// has been read or the call has failed.
func (f *Fetcher) fetchRaw(ctx context.Context, locator string) (string, error) {
	permit, err := f.gate.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer permit.Release()

	f.logger.Debug().
		Str("url", locator).
		Int("in_flight", f.gate.InFlight()).
		Msg("Permit acquired")

	return f.source.GetDetail(ctx, locator)
}
