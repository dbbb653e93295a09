package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// LogFileName is the file the consumer appends one line per event to.
const LogFileName = "reservations.log"

// StartReservationConsumer connects to RabbitMQ, declares the
// reservation.events queue and appends every event to logDir/reservations.log.
// It reconnects with exponential backoff and returns when ctx is done.
// Messages that cannot be handled are rejected without requeue.
func StartReservationConsumer(ctx context.Context, url, logDir string) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := dial(ctx, url)
		if err != nil {
			log.Printf("reservation-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if err != nil && ctx.Err() == nil {
			log.Printf("reservation-consumer: consume loop ended: %v; reconnecting", err)
			if !sleepCtx(ctx, 2*time.Second) {
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("reservation-consumer: set QoS failed: %v", err)
	}
	if err := declareQueue(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(logDir, d.Body); err != nil {
				log.Printf("reservation-consumer: handle message %s failed: %v", d.MessageId, err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(logDir string, body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.ReservationID == 0 || ev.Type == "" {
		return errors.New("event without reservation id or type")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// formatLine renders ev as a single human friendly log line.
func formatLine(ev ReservationEvent) string {
	verb := "confirmed"
	if ev.Type == EventReservationCancelled {
		verb = "cancelled"
	}
	return fmt.Sprintf("[%s] Reservation %s | reservation_id=%d | user_id=%d | showtime_id=%d | theater=%q | movie=%q | starts_at=%s | total=%d cents | seats=[%s]\n",
		ev.OccurredAt, verb, ev.ReservationID, ev.UserID, ev.ShowtimeID, ev.TheaterName, ev.MovieTitle, ev.StartsAt, ev.TotalPriceCents, strings.Join(ev.Seats, ","))
}
