package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/seller-rotation/internal/model"
	"github.com/iliyamo/seller-rotation/internal/queue"
)

// QueuePublisher ships closed-day exports to RabbitMQ.  It dials per
// publish: days are closed a handful of times per day, so a long-lived
// connection would mostly sit idle.
type QueuePublisher struct {
	URL         string
	Queue       string
	DialTimeout time.Duration
}

// DefaultDialTimeout bounds the broker handshake when the caller's
// context carries no earlier deadline.
const DefaultDialTimeout = 5 * time.Second

// NewQueuePublisher returns a publisher for the given broker URL and
// queue name.  An empty queue name selects queue.DefaultDayClosedQueue.
func NewQueuePublisher(url, queueName string) *QueuePublisher {
	if queueName == "" {
		queueName = queue.DefaultDayClosedQueue
	}
	return &QueuePublisher{URL: url, Queue: queueName, DialTimeout: DefaultDialTimeout}
}

// dialTimeout is DialTimeout, cut short by the deadline of ctx.
func (p *QueuePublisher) dialTimeout(ctx context.Context) time.Duration {
	d := p.DialTimeout
	if d <= 0 {
		d = DefaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	return d
}

// PublishDayClosed publishes export as a persistent JSON message on the
// durable closed-day queue.
func (p *QueuePublisher) PublishDayClosed(ctx context.Context, export model.DayExport) error {
	timeout := p.dialTimeout(ctx)
	if timeout <= 0 {
		return fmt.Errorf("rabbitmq dial: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Locale: "en_US",
		Dial:   amqp.DefaultDial(timeout),
	})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so exports survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(queue.NewDayClosedEvent(export))
	if err != nil {
		return fmt.Errorf("marshal day export: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}
