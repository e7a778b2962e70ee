package harvest

import (
	"context"
	"fmt"

	"github.com/Sternrassler/comic-harvester/pkg/records"
	"github.com/rs/zerolog"
)

// ItemLister performs the list-items operation.
type ItemLister interface {
	ListItems(ctx context.Context, locator string) ([]string, error)
}

// Expander turns a collection into its item locators. Its calls are not
// gated.
type Expander struct {
	lister ItemLister
	logger zerolog.Logger
}

// NewExpander creates an expander.
func NewExpander(lister ItemLister, logger zerolog.Logger) *Expander {
	return &Expander{
		lister: lister,
		logger: logger,
	}
}

// Expand returns the item locators of collection in upstream order.
func (e *Expander) Expand(ctx context.Context, collection records.CollectionEntry) ([]string, error) {
	urls, err := e.lister.ListItems(ctx, collection.URL)
	if err != nil {
		return nil, fmt.Errorf("expand collection %q: %w", collection.Name, err)
	}

	e.logger.Info().
		Str("collection", collection.Name).
		Str("url", collection.URL).
		Int("items", len(urls)).
		Msg("Collection expanded")

	return urls, nil
}
