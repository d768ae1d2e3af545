package publisher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

const ContentTypeJSON = "application/json"

// Envelope is one serialized Reading plus the routing metadata it is
// published with.
type Envelope struct {
	MessageID    string
	Exchange     string
	RoutingKey   string
	ContentType  string
	DeliveryMode uint8
	Timestamp    time.Time
	Body         []byte
}

func NewEnvelope(exchange, routingKey string, reading models.Reading) (Envelope, error) {
	body, err := json.Marshal(reading)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal reading: %w", err)
	}

	return Envelope{
		MessageID:    uuid.NewString(),
		Exchange:     exchange,
		RoutingKey:   routingKey,
		ContentType:  ContentTypeJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
