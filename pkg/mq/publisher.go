package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"liyu1981.xyz/speaker-energy-service/pkg/common"
	"liyu1981.xyz/speaker-energy-service/pkg/energy"
	"liyu1981.xyz/speaker-energy-service/pkg/metrics"
)

const sinkName = "amqp"

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends lifecycle and measurement events to a topic exchange.
// It satisfies energy.IEventPublisher.
type Publisher struct {
	channel  channel
	exchange string
	logger   *zap.Logger
}

func NewPublisher(conn *Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return newPublisher(ch, exchange), nil
}

func newPublisher(ch channel, exchange string) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   common.GetLoggerWith(common.LoggerNameMQPublisher),
	}
}

// RoutingKey maps an event to speaker.<id>.session.started,
// speaker.<id>.session.ended or speaker.<id>.measurement.
func RoutingKey(event energy.Event) string {
	prefix := fmt.Sprintf("speaker.%d.", event.SpeakerID)
	switch {
	case event.Name == energy.EventSessionStarted:
		return prefix + "session.started"
	case event.Name == energy.EventSessionEnded:
		return prefix + "session.ended"
	case strings.HasPrefix(event.Name, "measurement-"):
		return prefix + "measurement"
	default:
		return prefix + strings.ReplaceAll(event.Name, "-", ".")
	}
}

func (p *Publisher) Publish(ctx context.Context, event energy.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(sinkName, "error").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	routingKey := RoutingKey(event)
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.Timestamp,
			Type:         event.Name,
		},
	)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(sinkName, "error").Inc()
		return fmt.Errorf("failed to publish %s: %w", event.Name, err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(sinkName, "ok").Inc()
	p.logger.Debug("Published event",
		zap.String("routing_key", routingKey),
		zap.Uint("sessionId", event.SessionID),
	)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
