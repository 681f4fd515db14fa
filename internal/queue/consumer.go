package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Tally counts delivery outcomes on the dispatcher side.  The engine
// itself only guarantees hand-off; whether an individual notification
// could be rendered and delivered is reported here.
type Tally struct {
	mu     sync.Mutex
	sent   uint64
	failed uint64
}

func (t *Tally) record(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.sent++
	} else {
		t.failed++
	}
}

// Snapshot returns the sent, failed and total counts so far.
func (t *Tally) Snapshot() (sent, failed, total uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent, t.failed, t.sent + t.failed
}

// StartConsumer connects to RabbitMQ, declares the durable event queue
// and consumes it until the process exits.  Each event is appended as a
// single human-readable line to <logDir>/notifications.log, standing in
// for the mail/push transport.  The function runs a reconnect loop with
// backoff and keeps the tally up to date; malformed messages are
// rejected without requeue so a poison message cannot wedge the queue.
func StartConsumer(url, logDir string, tally *Tally) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("event-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, logDir, tally); err != nil {
			log.Printf("event-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, logDir string, tally *Tally) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("event-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(EventQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(EventQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleEvent(d.Body, logDir); err != nil {
			log.Printf("event-consumer: handle message failed: %v", err)
			tally.record(false)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		tally.record(true)
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleEvent renders one event into the notification log.  Exposed so
// the dispatcher logic can be tested without a broker.
func HandleEvent(body []byte, logDir string) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatEvent(ev) + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders the single-line representation written to the
// notification log.
func FormatEvent(ev Event) string {
	switch ev.Kind {
	case KindBookingCreated:
		return fmt.Sprintf("[%s] Booking created | booking_id=%d | user_id=%d | zone=%q | time=%s - %s",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.ZoneName, ev.StartsAt, ev.EndsAt)
	case KindBookingCancelled:
		return fmt.Sprintf("[%s] Booking cancelled | booking_id=%d | user_id=%d | zone=%q | reason=%q",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.ZoneName, ev.Reason)
	case KindBookingExtended:
		return fmt.Sprintf("[%s] Booking extended | booking_id=%d | user_id=%d | zone=%q | new_end=%s",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.ZoneName, ev.EndsAt)
	case KindZoneClosed:
		if ev.BookingID != 0 {
			return fmt.Sprintf("[%s] Zone closed, booking cancelled | booking_id=%d | user_id=%d | zone=%q | reason=%q | time=%s - %s",
				ev.OccurredAt, ev.BookingID, ev.UserID, ev.ZoneName, ev.Reason, ev.StartsAt, ev.EndsAt)
		}
		return fmt.Sprintf("[%s] Zone closed | zone_id=%d | zone=%q | reason=%q | until=%s",
			ev.OccurredAt, ev.ZoneID, ev.ZoneName, ev.Reason, ev.EndsAt)
	default:
		return fmt.Sprintf("[%s] Unknown event %s | id=%s", ev.OccurredAt, ev.Kind, ev.ID)
	}
}
