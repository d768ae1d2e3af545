package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

type source interface {
	Fetch(ctx context.Context, loc models.Location) (models.Reading, error)
}

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

// BreakerSource keeps one circuit breaker per location. A location's
// breaker stops calling the wrapped source after RepeatNumber consecutive
// failures for that location until TimeTimeOut has passed.
type BreakerSource struct {
	name    string
	cfg     BreakerConfig
	wrapped source

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewBreakerSource(name string, cfg BreakerConfig, wrapped source) *BreakerSource {
	return &BreakerSource{
		name:     name,
		cfg:      cfg,
		wrapped:  wrapped,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *BreakerSource) breaker(loc models.Location) *gobreaker.CircuitBreaker {
	key := loc.Label()

	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        b.name + ":" + key,
		MaxRequests: 1,
		Interval:    b.cfg.TimeInterval,
		Timeout:     b.cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.cfg.RepeatNumber
		},
	})
	b.breakers[key] = cb
	return cb
}

func (b *BreakerSource) Fetch(ctx context.Context, loc models.Location) (models.Reading, error) {
	result, err := b.breaker(loc).Execute(func() (interface{}, error) {
		return b.wrapped.Fetch(ctx, loc)
	})
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return models.Reading{}, fmt.Errorf("%s unavailable: %w", b.name, err)
		}
		return models.Reading{}, &FetchError{Location: loc, Err: fmt.Errorf("%s unavailable: %w", b.name, err)}
	}
	res, ok := result.(models.Reading)
	if !ok {
		return models.Reading{}, &FetchError{Location: loc, Err: fmt.Errorf("%s returned unexpected result", b.name)}
	}
	return res, nil
}

// State reports the breaker state for loc, e.g. "closed" or "open".
func (b *BreakerSource) State(loc models.Location) string {
	return b.breaker(loc).State().String()
}
