// Package amqp publishes game lifecycle events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

// GameFinishedEvent is the routing key of finished-game events.
const GameFinishedEvent = "game.finished"

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// ResultPublisher is a result sink that announces finished games.
type ResultPublisher struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	logger   *zap.Logger
}

// Dial connects to the broker and declares the durable topic exchange.
func Dial(url, exchange string, logger *zap.Logger) (*ResultPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	p := NewResultPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

func NewResultPublisher(ch Channel, exchange string, logger *zap.Logger) *ResultPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultPublisher{channel: ch, exchange: exchange, logger: logger}
}

func (p *ResultPublisher) SaveResults(ctx context.Context, result domain.GameResult) error {
	body, err := json.Marshal(envelope{
		Type:       GameFinishedEvent,
		OccurredAt: result.FinishedAt,
		Payload:    result,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Use the event type as the routing key for topic exchange
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		GameFinishedEvent,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    result.GameID,
			Timestamp:    result.FinishedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", GameFinishedEvent, err)
	}
	p.logger.Debug("event published", zap.String("type", GameFinishedEvent), zap.String("game_id", result.GameID))
	return nil
}

func (p *ResultPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
