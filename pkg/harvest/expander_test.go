package harvest

import (
	"context"
	"errors"
	"testing"

	"github.com/Sternrassler/comic-harvester/pkg/records"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listerFunc func(ctx context.Context, locator string) ([]string, error)

func (f listerFunc) ListItems(ctx context.Context, locator string) ([]string, error) {
	return f(ctx, locator)
}

func TestExpander_Expand(t *testing.T) {
	var asked string
	e := NewExpander(listerFunc(func(_ context.Context, locator string) ([]string, error) {
		asked = locator
		return []string{"i1", "i2", "i3"}, nil
	}), zerolog.Nop())

	urls, err := e.Expand(context.Background(), records.CollectionEntry{Name: "A", URL: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", asked)
	assert.Equal(t, []string{"i1", "i2", "i3"}, urls)
}

func TestExpander_Error(t *testing.T) {
	boom := errors.New("boom")
	e := NewExpander(listerFunc(func(context.Context, string) ([]string, error) {
		return nil, boom
	}), zerolog.Nop())

	_, err := e.Expand(context.Background(), records.CollectionEntry{Name: "Bloodshot", URL: "u2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `expand collection "Bloodshot"`)
}
