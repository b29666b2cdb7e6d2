package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// AuditQueue is the durable queue the audit consumer binds to every
// booking routing key.
const AuditQueue = "booking.audit"

const auditFile = "booking.log"

// StartBookingConsumer connects to RabbitMQ, binds the audit queue to the
// booking exchange and appends one line per event to <logDir>/booking.log.
// It reconnects with exponential backoff until ctx is cancelled, at which
// point it returns ctx.Err().  Messages that cannot be handled are
// rejected without requeue so the loop never spins on a poison message.
func StartBookingConsumer(ctx context.Context, url, logDir string) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("booking-consumer: failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("booking-consumer: consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
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
		log.Warn().Err(err).Msg("booking-consumer: set QoS failed")
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range []string{KeyBookingConfirmed, KeyBookingCancelled, KeySettlementMarked} {
		if err := ch.QueueBind(q.Name, key, ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	msgs, err := ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(logDir, d.Body); err != nil {
			log.Error().Err(err).Msg("booking-consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(logDir string, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, auditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev Event) string {
	ts := ev.OccurredAt.UTC().Format(time.RFC3339)
	slots := "[" + strings.Join(ev.Slots, ",") + "]"
	switch ev.Type {
	case KeySettlementMarked:
		line := fmt.Sprintf("[%s] Settlement %s | booking_id=%d | ground_id=%d | type=%s | amount=%s",
			ts, ev.Step, ev.BookingID, ev.GroundID, ev.BookingType, ev.Amount)
		if ev.Party != "" {
			line += " | by=" + ev.Party
		}
		return line + "\n"
	case KeyBookingCancelled:
		return fmt.Sprintf("[%s] Booking cancelled | booking_id=%d | court_id=%d | date=%s | released=%s\n",
			ts, ev.BookingID, ev.CourtID, ev.BookingDate, slots)
	default:
		return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | ground_id=%d | court_id=%d | date=%s | type=%s | amount=%s | slots=%s\n",
			ts, ev.BookingID, ev.GroundID, ev.CourtID, ev.BookingDate, ev.BookingType, ev.Amount, slots)
	}
}
