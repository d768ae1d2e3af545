package publisher_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-collector/internal/metrics"
	"github.com/Nazarious-ucu/weather-collector/internal/models"
	"github.com/Nazarious-ucu/weather-collector/internal/publisher"
)

type fakeSession struct {
	mu         sync.Mutex
	published  []publisher.Envelope
	publishErr error
	closeCalls int
}

func (s *fakeSession) Publish(_ context.Context, env publisher.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, env)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	return nil
}

// fakeDialer fails the first failures dials, then hands out sessions in order.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	sessions []*fakeSession
	dials    int
}

func (d *fakeDialer) Dial(_ context.Context) (publisher.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("dial tcp 127.0.0.1:5672: connect: connection refused")
	}
	if len(d.sessions) == 0 {
		return nil, errors.New("no session available")
	}
	s := d.sessions[0]
	d.sessions = d.sessions[1:]
	return s, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

var opts = publisher.Options{
	Exchange:   "weather.exchange",
	RoutingKey: "weather.raw",
	RetryDelay: time.Millisecond,
}

var reading = models.Reading{
	Timestamp: "2025-03-01T15:00:00Z",
	Location: models.ReadingLocation{
		Latitude: -23.5, Longitude: -46.6, City: "São Paulo", State: "São Paulo", Country: "Brasil",
	},
	Measurements: models.Measurements{Temperature: 24.1, WeatherCode: 3, WeatherCondition: "Overcast"},
	Source:        models.ReadingSource,
	SchemaVersion: models.SchemaVersion,
}

func TestChannel_ConnectRetriesUntilBrokerIsUp(t *testing.T) {
	session := &fakeSession{}
	dialer := &fakeDialer{failures: 3, sessions: []*fakeSession{session}}
	m := metrics.NewMetrics("test")

	ch := publisher.NewChannel(dialer, opts, zerolog.Nop(), m)
	require.NoError(t, ch.Connect(context.Background()))

	assert.Equal(t, 4, dialer.Dials())
	assert.True(t, ch.Connected())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ConnectAttempts.WithLabelValues(metrics.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerConnected))

	require.NoError(t, ch.Connect(context.Background()), "already connected")
	assert.Equal(t, 4, dialer.Dials())
}

func TestChannel_ConnectBounded(t *testing.T) {
	dialer := &fakeDialer{failures: 10}
	bounded := opts
	bounded.MaxAttempts = 3

	err := publisher.NewChannel(dialer, bounded, zerolog.Nop(), nil).Connect(context.Background())

	assert.ErrorIs(t, err, publisher.ErrConnect)
	assert.Equal(t, 3, dialer.Dials())
}

func TestChannel_ConnectStopsOnCancel(t *testing.T) {
	dialer := &fakeDialer{failures: 1 << 30}
	slow := opts
	slow.RetryDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- publisher.NewChannel(dialer, slow, zerolog.Nop(), nil).Connect(ctx)
	}()

	assert.Eventually(t, func() bool { return dialer.Dials() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Connect did not return after cancel")
	}
}

func TestChannel_PublishDurableJSON(t *testing.T) {
	session := &fakeSession{}
	ch := publisher.NewChannel(&fakeDialer{sessions: []*fakeSession{session}}, opts, zerolog.Nop(), nil)
	require.NoError(t, ch.Connect(context.Background()))

	require.True(t, ch.Publish(context.Background(), reading))
	require.Len(t, session.published, 1)

	env := session.published[0]
	assert.Equal(t, "weather.exchange", env.Exchange)
	assert.Equal(t, "weather.raw", env.RoutingKey)
	assert.Equal(t, "application/json", env.ContentType)
	assert.EqualValues(t, amqp.Persistent, env.DeliveryMode)
	assert.NotEmpty(t, env.MessageID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(env.Body, &decoded))
	assert.Equal(t, "2025-03-01T15:00:00Z", decoded["timestamp"])
	assert.Equal(t, "open-meteo", decoded["source"])
	assert.Equal(t, "1.0", decoded["version"])
	data, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 24.1, data["temperature"])
	assert.Equal(t, "Overcast", data["weather_condition"])
}

func TestChannel_PublishFailureReconnectsOnce(t *testing.T) {
	broken := &fakeSession{publishErr: amqp.ErrClosed}
	fresh := &fakeSession{}
	dialer := &fakeDialer{sessions: []*fakeSession{broken, fresh}}
	m := metrics.NewMetrics("test")

	ch := publisher.NewChannel(dialer, opts, zerolog.Nop(), m)
	require.NoError(t, ch.Connect(context.Background()))

	assert.False(t, ch.Publish(context.Background(), reading))
	assert.Equal(t, 1, broken.closeCalls)
	assert.Equal(t, 2, dialer.Dials(), "exactly one reconnect")
	assert.Empty(t, fresh.published, "failed reading is not republished")
	assert.True(t, ch.Connected())

	assert.True(t, ch.Publish(context.Background(), reading))
	assert.Len(t, fresh.published, 1)
	assert.Equal(t, 2, dialer.Dials())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("weather.raw", metrics.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("weather.raw", metrics.ResultSuccess)))
}

func TestChannel_PublishFailureWithBrokerDown(t *testing.T) {
	broken := &fakeSession{publishErr: errors.New("channel/connection is not open")}
	dialer := &fakeDialer{sessions: []*fakeSession{broken}}

	ch := publisher.NewChannel(dialer, opts, zerolog.Nop(), nil)
	require.NoError(t, ch.Connect(context.Background()))

	assert.False(t, ch.Publish(context.Background(), reading))
	assert.False(t, ch.Connected())

	dialer.mu.Lock()
	dialer.failures = 5
	dialer.mu.Unlock()

	assert.False(t, ch.Publish(context.Background(), reading), "lazy dial fails once and gives up")
	assert.Equal(t, 3, dialer.Dials())
}

func TestChannel_PublishLazilyConnects(t *testing.T) {
	session := &fakeSession{}
	dialer := &fakeDialer{sessions: []*fakeSession{session}}

	ch := publisher.NewChannel(dialer, opts, zerolog.Nop(), nil)

	assert.True(t, ch.Publish(context.Background(), reading))
	assert.Equal(t, 1, dialer.Dials())
	assert.Len(t, session.published, 1)
}

func TestChannel_CloseIdempotent(t *testing.T) {
	t.Run("NeverConnected", func(t *testing.T) {
		ch := publisher.NewChannel(&fakeDialer{}, opts, zerolog.Nop(), nil)
		assert.NoError(t, ch.Close())
		assert.NoError(t, ch.Close())
	})

	t.Run("Connected", func(t *testing.T) {
		session := &fakeSession{}
		ch := publisher.NewChannel(&fakeDialer{sessions: []*fakeSession{session}}, opts, zerolog.Nop(), nil)
		require.NoError(t, ch.Connect(context.Background()))

		assert.NoError(t, ch.Close())
		assert.NoError(t, ch.Close())
		assert.Equal(t, 1, session.closeCalls)
		assert.False(t, ch.Connected())

		assert.False(t, ch.Publish(context.Background(), reading))
		assert.ErrorIs(t, ch.Connect(context.Background()), publisher.ErrClosed)
	})
}
