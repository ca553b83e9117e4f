package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tapestry-analytics/tapestry/internal/util"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/scheduler"

	"github.com/rabbitmq/amqp091-go"
)

const jobEventsExchange = "job_events"

// Init dials RabbitMQ with connection settings from the environment.
func Init() *amqp091.Connection {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnv("RABBITMQ_PORT")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}

	return conn
}

// SetupExchange declares the topic exchange job lifecycle events publish to.
// Consumers bind with routing patterns like "jobs.status.failed" or
// "jobs.status.*".
func SetupExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		jobEventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// PublishJobEvent publishes one job snapshot to the topic exchange under
// the routing key "jobs.status.<status>".
func PublishJobEvent(ch *amqp091.Channel, job scheduler.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job event: %w", err)
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		jobEventsExchange,
		fmt.Sprintf("jobs.status.%s", job.Status),
		false,
		false,
		publishing,
	)
}

// Notifier adapts an AMQP channel to the scheduler's event hook. Publish
// failures are logged and dropped; lifecycle events are observability, not
// control flow.
type Notifier struct {
	ch *amqp091.Channel
}

// NewNotifier declares the exchange and returns a Notifier bound to ch.
func NewNotifier(ch *amqp091.Channel) (*Notifier, error) {
	if err := SetupExchange(ch); err != nil {
		return nil, fmt.Errorf("failed to declare %s exchange: %w", jobEventsExchange, err)
	}
	return &Notifier{ch: ch}, nil
}

// Notify implements scheduler.EventHook.
func (n *Notifier) Notify(job scheduler.Job) {
	if err := PublishJobEvent(n.ch, job); err != nil {
		logger.Warn("[Queue] Failed to publish job event", "job", job.ID, "status", job.Status, "err", err)
	}
}
