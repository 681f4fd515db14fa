package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventQueueName is the durable queue the dispatcher consumes.
const EventQueueName = "booking.events"

// Publisher hands notification events to RabbitMQ.  Emit enqueues into
// a bounded in-process buffer, which is the durable hand-off point the
// ledger waits on; a single worker goroutine drains the buffer in FIFO
// order, so events for the same booking reach the broker in the order
// they were produced.  Publishing is at-least-once: a failed publish is
// retried on a fresh connection before the worker moves on.
type Publisher struct {
	url    string
	events chan Event
	done   chan struct{}
}

// NewPublisher creates a publisher with the given buffer capacity.
// Start must be called before the first Emit.
func NewPublisher(url string, buffer int) *Publisher {
	if buffer < 1 {
		buffer = 1
	}
	return &Publisher{
		url:    url,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Emit enqueues an event, blocking while the buffer is full.  Missing
// id and timestamp fields are filled in.  Callers must only emit after
// their state mutation has committed.
func (p *Publisher) Emit(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	p.events <- ev
}

// Start launches the worker goroutine.
func (p *Publisher) Start() {
	go p.run()
}

// Close stops accepting events and blocks until the buffer is drained.
func (p *Publisher) Close() {
	close(p.events)
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)

	var conn *amqp.Connection
	var ch *amqp.Channel
	disconnect := func() {
		if ch != nil {
			_ = ch.Close()
			ch = nil
		}
		if conn != nil {
			_ = conn.Close()
			conn = nil
		}
	}
	defer disconnect()

	backoff := time.Second
	for ev := range p.events {
		for {
			if ch == nil {
				var err error
				conn, err = amqp.Dial(p.url)
				if err != nil {
					log.Printf("event-publisher: dial failed: %v; retrying in %s", err, backoff)
					time.Sleep(backoff)
					if backoff < 30*time.Second {
						backoff *= 2
					}
					continue
				}
				ch, err = conn.Channel()
				if err != nil {
					log.Printf("event-publisher: channel open failed: %v", err)
					disconnect()
					continue
				}
				if _, err = ch.QueueDeclare(EventQueueName, true, false, false, false, nil); err != nil {
					log.Printf("event-publisher: queue declare failed: %v", err)
					disconnect()
					continue
				}
				backoff = time.Second
			}

			body, err := json.Marshal(ev)
			if err != nil {
				log.Printf("event-publisher: marshal event %s failed: %v; dropping", ev.ID, err)
				break
			}
			err = ch.PublishWithContext(context.Background(),
				"", EventQueueName, false, false,
				amqp.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp.Persistent,
					MessageId:    ev.ID,
					Timestamp:    time.Now().UTC(),
					Body:         body,
				})
			if err == nil {
				break
			}
			log.Printf("event-publisher: publish %s failed: %v; reconnecting", ev.ID, err)
			disconnect()
		}
	}
}
