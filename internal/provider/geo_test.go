package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGeo struct {
	name  string
	res   *GeoResult
	err   error
	calls int
}

func (s *scriptedGeo) Name() string { return s.name }
func (s *scriptedGeo) Lookup(context.Context, string) (*GeoResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := *s.res
	return &out, nil
}

func TestFallbackChain(t *testing.T) {
	t.Run("first_provider_wins", func(t *testing.T) {
		first := &scriptedGeo{name: "first", res: &GeoResult{City: "Lisbon"}}
		second := &scriptedGeo{name: "second", res: &GeoResult{City: "Porto"}}
		chain := NewFallbackChain(discardLogger(), first, second)

		res, err := chain.Lookup(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, "Lisbon", res.City)
		assert.Equal(t, "first", res.Source)
		assert.Equal(t, "1.2.3.4", res.IP)
		assert.Zero(t, second.calls)
	})

	t.Run("falls_through_on_error", func(t *testing.T) {
		first := &scriptedGeo{name: "first", err: ErrNoResult}
		second := &scriptedGeo{name: "second", err: errors.New("timeout")}
		third := &scriptedGeo{name: "third", res: &GeoResult{City: "Berlin"}}
		chain := NewFallbackChain(discardLogger(), first, second, third)

		res, err := chain.Lookup(context.Background(), "5.6.7.8")
		require.NoError(t, err)
		assert.Equal(t, "third", res.Source)
		assert.Equal(t, 1, first.calls)
		assert.Equal(t, 1, second.calls)
	})

	t.Run("all_providers_fail", func(t *testing.T) {
		chain := NewFallbackChain(discardLogger(),
			&scriptedGeo{name: "first", err: ErrNoResult},
			&scriptedGeo{name: "second", err: ErrNoResult},
		)
		_, err := chain.Lookup(context.Background(), "9.9.9.9")
		assert.ErrorIs(t, err, ErrNoResult)
	})

	t.Run("stops_on_cancelled_context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		second := &scriptedGeo{name: "second", res: &GeoResult{City: "Oslo"}}
		chain := NewFallbackChain(discardLogger(),
			&scriptedGeo{name: "first", err: errors.New("canceled")},
			second,
		)
		_, err := chain.Lookup(ctx, "9.9.9.9")
		require.Error(t, err)
		assert.Zero(t, second.calls)
	})
}
