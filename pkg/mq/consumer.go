package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	ignoreApp  string
	conn       *amqp091.Connection
	logger     *zap.Logger
}

// NewConsumer creates a consumer for a routing key pattern. An empty
// queueName declares a server-named queue that goes away with the connection.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	private := queueName == ""
	q, err := ch.QueueDeclare(
		queueName,
		!private, // durable
		private,  // auto-delete
		private,  // exclusive
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		routingKey,
		ExchangeName,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", q.Name),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// IgnoreAppID acks and drops messages published with appID.
func (c *Consumer) IgnoreAppID(appID string) {
	c.ignoreApp = appID
}

// IsConnected reports whether the underlying connection is still open.
func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming starts consuming messages. This method blocks and should be called in a goroutine.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	// Every delivery is acked or nacked exactly once.
	for msg := range deliveries {
		if c.ignoreApp != "" && msg.AppId == c.ignoreApp {
			_ = msg.Ack(false)
			continue
		}
		func() {
			ctx := context.Background()

			c.logger.Debug("Received message",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queue.Name),
				zap.Int("message_size", len(msg.Body)),
			)

			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("Handler panic recovered",
						zap.String("routing_key", c.routingKey),
						zap.String("queue", c.queue.Name),
						zap.Any("panic", r),
					)
					// Requeue after a panic.
					if err := msg.Nack(false, true); err != nil {
						c.logger.Error("Failed to nack message after panic",
							zap.String("routing_key", c.routingKey),
							zap.Error(err),
						)
					}
				}
			}()

			if err := c.handler(ctx, msg.Body); err != nil {
				c.logger.Error("Handler error",
					zap.String("routing_key", c.routingKey),
					zap.String("queue", c.queue.Name),
					zap.Error(err),
				)
				// Requeue so the broker retries.
				if err := msg.Nack(false, true); err != nil {
					c.logger.Error("Failed to nack message",
						zap.String("routing_key", c.routingKey),
						zap.Error(err),
					)
				}
				return
			}

			if err := msg.Ack(false); err != nil {
				c.logger.Error("Failed to ack message",
					zap.String("routing_key", c.routingKey),
					zap.Error(err),
				)
			} else {
				c.logger.Debug("Message processed successfully",
					zap.String("routing_key", c.routingKey),
					zap.String("queue", c.queue.Name),
				)
			}
		}()
	}

	return nil
}

