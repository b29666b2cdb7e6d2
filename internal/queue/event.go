// Package queue defines the booking events exchanged over RabbitMQ and
// the publisher and audit consumer that carry them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/ground-booking/internal/model"
)

// ExchangeName is the topic exchange every booking event is published to.
const ExchangeName = "booking.events"

// Routing keys.
const (
	KeyBookingConfirmed = "booking.confirmed"
	KeyBookingCancelled = "booking.cancelled"
	KeySettlementMarked = "settlement.marked"
)

// Settlement steps carried by settlement.marked events.
const (
	StepCashCollected = "cash_collected"
	StepAdminReceived = "admin_received"
	StepOnlineSettled = "online_settled"
)

// Event is the JSON body of every message on the exchange.  It carries
// enough of the booking for consumers to log or notify without reading
// the primary database.  Step and Party are set only on settlement
// events.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	BookingID   uint64    `json:"booking_id"`
	GroundID    uint64    `json:"ground_id"`
	CourtID     uint64    `json:"court_id"`
	BookingDate string    `json:"booking_date"`
	Slots       []string  `json:"slots"`
	BookingType string    `json:"booking_type"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Step        string    `json:"step,omitempty"`
	Party       string    `json:"party,omitempty"`
}

// NewBookingEvent builds an event of the given type for b.  slots are the
// labels the booking claims after the change.
func NewBookingEvent(typ string, b *model.Booking, slots []string) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        typ,
		OccurredAt:  time.Now().UTC(),
		BookingID:   b.ID,
		GroundID:    b.GroundID,
		CourtID:     b.CourtID,
		BookingDate: b.Date().Format("2006-01-02"),
		Slots:       slots,
		BookingType: b.BookingType,
		Amount:      b.Amount.StringFixed(2),
		Status:      b.Status,
	}
}

// NewSettlementEvent builds a settlement.marked event for the step just
// recorded on b.
func NewSettlementEvent(step string, b *model.Booking) Event {
	ev := NewBookingEvent(KeySettlementMarked, b, nil)
	ev.Step = step
	if b.CashCollectedBy != nil {
		ev.Party = *b.CashCollectedBy
	}
	return ev
}
