package geocoding

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
	"github.com/Nazarious-ucu/weather-collector/internal/services/cache"
)

type reverser interface {
	Reverse(ctx context.Context, latitude, longitude float64) (models.Address, error)
}

type addressCache interface {
	Set(ctx context.Context, key string, value models.Address) error
	Get(ctx context.Context, key string) (models.Address, error)
}

// CachedGeocoder memoizes successful reverse lookups. Cache failures are
// logged and never fail the lookup.
type CachedGeocoder struct {
	inner  reverser
	cache  addressCache
	logger zerolog.Logger
}

func NewCachedGeocoder(inner reverser, c addressCache, logger zerolog.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		inner:  inner,
		cache:  c,
		logger: logger.With().Str("component", "CachedGeocoder").Logger(),
	}
}

func cacheKey(latitude, longitude float64) string {
	return fmt.Sprintf("geocode:%.4f:%.4f", latitude, longitude)
}

func (g *CachedGeocoder) Reverse(ctx context.Context, latitude, longitude float64) (models.Address, error) {
	key := cacheKey(latitude, longitude)

	addr, err := g.cache.Get(ctx, key)
	switch {
	case err == nil:
		g.logger.Debug().Str("key", key).Msg("cache hit")
		return addr, nil
	case errors.Is(err, cache.ErrMiss):
		g.logger.Debug().Str("key", key).Msg("cache miss")
	default:
		g.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	addr, err = g.inner.Reverse(ctx, latitude, longitude)
	if err != nil {
		return models.Address{}, err
	}

	if err := g.cache.Set(ctx, key, addr); err != nil {
		g.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}

	return addr, nil
}
