package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/Nazarious-ucu/weather-collector/internal/metrics"
	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

var (
	ErrConnect = errors.New("rabbitmq connect failed")
	ErrClosed  = errors.New("publisher channel closed")
)

type Options struct {
	Exchange   string
	RoutingKey string
	RetryDelay time.Duration
	// MaxAttempts bounds Connect; 0 retries until the context ends.
	MaxAttempts uint64
}

// Channel owns the single broker session of the process. Publish and
// Connect are serialized internally.
type Channel struct {
	dialer  Dialer
	opts    Options
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	session   Session
	closed    bool
	connected atomic.Bool
}

func NewChannel(dialer Dialer, opts Options, logger zerolog.Logger, m *metrics.Metrics) *Channel {
	return &Channel{
		dialer:  dialer,
		opts:    opts,
		logger:  logger.With().Str("component", "PublisherChannel").Logger(),
		metrics: m,
	}
}

func (c *Channel) backoff() retry.Backoff {
	b := retry.NewConstant(c.opts.RetryDelay)
	if c.opts.MaxAttempts > 0 {
		b = retry.WithMaxRetries(c.opts.MaxAttempts-1, b)
	}
	return b
}

// Connect blocks until a session is open, retrying with a fixed delay.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.session != nil {
		return nil
	}

	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		if err := c.dialLocked(ctx); err != nil {
			c.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Dur("retry_in", c.opts.RetryDelay).
				Msg("waiting for RabbitMQ")
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrConnect, attempt, err)
	}
	return nil
}

// Publish hands reading to the broker. On failure it drops the session,
// tries one reconnect and reports false; the reading is not republished.
func (c *Channel) Publish(ctx context.Context, reading models.Reading) bool {
	env, err := NewEnvelope(c.opts.Exchange, c.opts.RoutingKey, reading)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to build envelope")
		c.recordPublish(err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.logger.Error().Msg("publish on closed channel")
		c.recordPublish(ErrClosed)
		return false
	}

	if c.session == nil {
		if err := c.dialLocked(ctx); err != nil {
			c.logger.Error().Err(err).Msg("broker unavailable, reading dropped")
			c.recordPublish(err)
			return false
		}
	}

	if err := c.session.Publish(ctx, env); err != nil {
		c.logger.Error().
			Err(err).
			Bool("connection_error", IsConnectionError(err)).
			Str("message_id", env.MessageID).
			Msg("failed to publish reading")
		c.recordPublish(err)

		c.teardownLocked()
		if rerr := c.dialLocked(ctx); rerr != nil {
			c.logger.Error().Err(rerr).Msg("reconnect after publish failure failed")
		}
		return false
	}

	c.recordPublish(nil)
	c.logger.Info().
		Str("city", reading.Location.City).
		Float64("temperature", reading.Measurements.Temperature).
		Str("exchange", env.Exchange).
		Str("routing_key", env.RoutingKey).
		Str("message_id", env.MessageID).
		Msg("published weather reading")
	return true
}

// Close releases the session if one is open. Safe to call repeatedly.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.setConnected(false)
	c.logger.Info().Msg("closed RabbitMQ connection")
	return err
}

func (c *Channel) Connected() bool {
	return c.connected.Load()
}

func (c *Channel) dialLocked(ctx context.Context) error {
	s, err := c.dialer.Dial(ctx)
	if c.metrics != nil {
		c.metrics.ConnectAttempts.WithLabelValues(metrics.Result(err)).Inc()
	}
	if err != nil {
		return err
	}
	c.session = s
	c.setConnected(true)
	return nil
}

func (c *Channel) teardownLocked() {
	if c.session == nil {
		return
	}
	if err := c.session.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("error closing broken session")
	}
	c.session = nil
	c.setConnected(false)
}

func (c *Channel) setConnected(v bool) {
	c.connected.Store(v)
	if c.metrics == nil {
		return
	}
	if v {
		c.metrics.BrokerConnected.Set(1)
	} else {
		c.metrics.BrokerConnected.Set(0)
	}
}

func (c *Channel) recordPublish(err error) {
	if c.metrics != nil {
		c.metrics.PublishTotal.WithLabelValues(c.opts.RoutingKey, metrics.Result(err)).Inc()
	}
}
