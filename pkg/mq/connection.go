package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "portal.events"
)

// Dial attempts made by NewConnection before giving up.
var (
	DialAttempts = 5
	DialBackoff  = 500 * time.Millisecond
)

// NewConnection dials RabbitMQ, doubling the wait between failed attempts.
func NewConnection(url string) (*amqp091.Connection, error) {
	var lastErr error
	wait := DialBackoff
	for attempt := 1; attempt <= DialAttempts; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if attempt < DialAttempts {
			time.Sleep(wait)
			wait *= 2
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", DialAttempts, lastErr)
}

// DeclareExchange declares the durable topic exchange for domain events.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
}
