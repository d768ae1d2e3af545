package publisher

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/wagslane/go-rabbitmq"
)

// Session is one open broker connection with the exchange declared.
type Session interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// RabbitDialer opens sessions against RabbitMQ and declares the target
// exchange as a durable topic exchange.
type RabbitDialer struct {
	url      string
	exchange string
	logger   zerolog.Logger
}

func NewRabbitDialer(url, exchange string, logger zerolog.Logger) *RabbitDialer {
	return &RabbitDialer{
		url:      url,
		exchange: exchange,
		logger:   logger.With().Str("component", "RabbitDialer").Logger(),
	}
}

func (d *RabbitDialer) Dial(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rl := rabbitLogger{l: d.logger}

	conn, err := rabbitmq.NewConn(
		d.url,
		rabbitmq.WithConnectionOptionsLogger(rl),
	)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	pub, err := rabbitmq.NewPublisher(
		conn,
		append(exchangeOptions(d.exchange), rabbitmq.WithPublisherOptionsLogger(rl))...,
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", d.exchange, err)
	}

	d.logger.Info().Str("exchange", d.exchange).Msg("connected to RabbitMQ")

	return &rabbitSession{conn: conn, pub: pub}, nil
}

type rabbitSession struct {
	conn *rabbitmq.Conn
	pub  *rabbitmq.Publisher
}

func (s *rabbitSession) Publish(ctx context.Context, env Envelope) error {
	return s.pub.PublishWithContext(ctx, env.Body, []string{env.RoutingKey}, publishOptions(env)...)
}

// exchangeOptions declares the exchange with the same parameters on every
// dial, so redeclaring an existing exchange is a no-op on the broker.
func exchangeOptions(exchange string) []func(*rabbitmq.PublisherOptions) {
	return []func(*rabbitmq.PublisherOptions){
		rabbitmq.WithPublisherOptionsExchangeName(exchange),
		rabbitmq.WithPublisherOptionsExchangeKind(amqp.ExchangeTopic),
		rabbitmq.WithPublisherOptionsExchangeDeclare,
		rabbitmq.WithPublisherOptionsExchangeDurable,
	}
}

// publishOptions maps an envelope onto the client's publish options. Binding
// a queue is the consumer's job, so messages are not published as mandatory.
func publishOptions(env Envelope) []func(*rabbitmq.PublishOptions) {
	return []func(*rabbitmq.PublishOptions){
		rabbitmq.WithPublishOptionsExchange(env.Exchange),
		rabbitmq.WithPublishOptionsContentType(env.ContentType),
		func(o *rabbitmq.PublishOptions) { o.DeliveryMode = env.DeliveryMode },
		rabbitmq.WithPublishOptionsMessageID(env.MessageID),
		rabbitmq.WithPublishOptionsTimestamp(env.Timestamp),
	}
}

func (s *rabbitSession) Close() error {
	s.pub.Close()
	return s.conn.Close()
}

// IsConnectionError reports whether err came from the AMQP layer itself
// rather than from serialization or context cancellation.
func IsConnectionError(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) || errors.Is(err, amqp.ErrClosed)
}

type rabbitLogger struct {
	l zerolog.Logger
}

func (r rabbitLogger) Fatalf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r rabbitLogger) Errorf(format string, v ...interface{}) { r.l.Error().Msgf(format, v...) }
func (r rabbitLogger) Warnf(format string, v ...interface{})  { r.l.Warn().Msgf(format, v...) }
func (r rabbitLogger) Infof(format string, v ...interface{})  { r.l.Info().Msgf(format, v...) }
func (r rabbitLogger) Debugf(format string, v ...interface{}) { r.l.Debug().Msgf(format, v...) }
