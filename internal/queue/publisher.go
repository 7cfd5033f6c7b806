package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	bookedQueueName    = "ticket.booked"
	cancelledQueueName = "ticket.cancelled"
)

// Publisher pushes ticket lifecycle events to RabbitMQ. Publishing is
// fire-and-forget from the caller's point of view: failures are
// logged and returned, never allowed to fail the booking itself.
type Publisher struct {
	url string
}

// NewPublisher returns a disabled publisher when url is empty.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Enabled reports whether a broker is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.url != ""
}

// PublishBooked announces a committed booking on ticket.booked.
func (p *Publisher) PublishBooked(ctx context.Context, ev TicketBookedEvent) error {
	return p.publish(ctx, bookedQueueName, ev)
}

// PublishCancelled announces a committed cancellation on ticket.cancelled.
func (p *Publisher) PublishCancelled(ctx context.Context, ev TicketCancelledEvent) error {
	return p.publish(ctx, cancelledQueueName, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	if p == nil || p.url == "" {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable queue so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", queueName, err)
		return err
	}
	return nil
}
