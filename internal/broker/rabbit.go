// Package broker publishes outbox events to RabbitMQ.
package broker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"

	"github.com/mnhsh/letterbox/internal/letter"
	"github.com/mnhsh/letterbox/internal/logger"
)

type RabbitClient struct {
	url       string
	queueName string
	logger    *logger.Logger

	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
}

// NewRabbitClient returns a client even when the first dial fails; publishing
// reconnects on demand.
func NewRabbitClient(url, queueName string, log *logger.Logger) *RabbitClient {
	c := &RabbitClient{
		url:       url,
		queueName: queueName,
		logger:    log.With("queue", queueName),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connect(); err != nil {
		c.logger.Warn("initial rabbitmq connection failed, will retry", "err", err)
	}
	return c
}

// connect must be called with mu held.
func (c *RabbitClient) connect() error {
	c.closeLocked()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return errors.Wrap(err, "rabbit: dial")
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "rabbit: open channel")
	}

	_, err = ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return errors.Wrap(err, "rabbit: declare queue")
	}

	c.connection, c.channel = conn, ch
	c.logger.Info("connected to rabbitmq")
	return nil
}

func (c *RabbitClient) ensureConnection() error {
	if c.connection != nil && !c.connection.IsClosed() && c.channel != nil {
		return nil
	}
	c.logger.Info("rabbitmq connection is closed, reconnecting")
	return c.connect()
}

// Publish delivers e as a persistent JSON message. The event id travels as
// the message id so consumers can drop redeliveries.
func (c *RabbitClient) Publish(ctx context.Context, e *letter.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnection(); err != nil {
		return err
	}

	err := c.channel.Publish(
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    e.ID.String(),
			Timestamp:    e.CreatedAt,
			Type:         string(e.Kind),
			Body:         []byte(e.Payload),
			Headers: amqp.Table{
				"event_kind": string(e.Kind),
			},
		},
	)
	if err != nil {
		// drop the connection so the next publish redials
		c.closeLocked()
		return errors.Wrap(err, "rabbit: publish")
	}
	return nil
}

func (c *RabbitClient) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.connection != nil {
		if !c.connection.IsClosed() {
			c.connection.Close()
		}
		c.connection = nil
	}
}

func (c *RabbitClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Info("closing rabbitmq connection")
	c.closeLocked()
}
