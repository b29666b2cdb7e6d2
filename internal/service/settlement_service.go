package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/ground-booking/internal/model"
	"github.com/iliyamo/ground-booking/internal/queue"
	"github.com/iliyamo/ground-booking/internal/repository"
)

// vendorRate is the vendor's share of every settled amount; the admin
// keeps the remainder.
var vendorRate = decimal.New(80, -2)

// SummaryFilter narrows a settlement summary.  By default only bookings
// whose admin share is still outstanding are included.
type SummaryFilter struct {
	GroundID       uint64
	IncludeSettled bool
}

// Summary aggregates confirmed bookings of one payment channel.
// VendorShare + AdminShare always equals TotalAmount.
type Summary struct {
	Channel     string
	TotalAmount decimal.Decimal
	VendorShare decimal.Decimal
	AdminShare  decimal.Decimal
	Count       int
	Bookings    []model.Booking
}

// SettlementService computes vendor/admin revenue splits and records the
// acknowledgements that settle them.
type SettlementService struct {
	store  repository.BookingStore
	events EventPublisher
	now    func() time.Time
}

func NewSettlementService(store repository.BookingStore, events EventPublisher) *SettlementService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &SettlementService{store: store, events: events, now: time.Now}
}

// Split divides total into the vendor share, rounded to cents, and the
// admin share as the exact remainder.
func Split(total decimal.Decimal) (vendor, admin decimal.Decimal) {
	vendor = total.Mul(vendorRate).Round(2)
	return vendor, total.Sub(vendor)
}

// Summary returns the totals for confirmed bookings of channel ("cash" or
// "online").
func (s *SettlementService) Summary(ctx context.Context, channel string, f SummaryFilter) (*Summary, error) {
	if !oneOf(channel, model.BookingTypeCash, model.BookingTypeOnline) {
		return nil, invalid("channel must be cash or online")
	}
	filter := repository.BookingFilter{
		GroundID:    f.GroundID,
		Status:      model.StatusConfirmed,
		BookingType: channel,
	}
	if !f.IncludeSettled {
		unsettled := false
		filter.AdminReceived = &unsettled
	}
	bookings, err := s.store.ListBookings(ctx, filter)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, b := range bookings {
		total = total.Add(b.Amount)
	}
	vendor, admin := Split(total)
	if bookings == nil {
		bookings = []model.Booking{}
	}
	return &Summary{
		Channel:     channel,
		TotalAmount: total,
		VendorShare: vendor,
		AdminShare:  admin,
		Count:       len(bookings),
		Bookings:    bookings,
	}, nil
}

// MarkCashCollected records which party physically holds the cash for a
// cash booking.  Marking an already collected booking changes nothing.
func (s *SettlementService) MarkCashCollected(ctx context.Context, id uint64, party string) (*model.Booking, error) {
	if !oneOf(party, model.PartyVendor, model.PartyAdmin) {
		return nil, invalid("collected_by must be vendor or admin")
	}
	return s.mark(ctx, id, model.BookingTypeCash, queue.StepCashCollected, func(b *model.Booking, now time.Time) (bool, error) {
		if b.IsCashCollected {
			return false, nil
		}
		p := party
		b.IsCashCollected = true
		b.CashCollectedBy = &p
		b.CashCollectedAt = &now
		return true, nil
	})
}

// MarkAdminReceived records that the admin received its share of a cash
// booking.  The cash must have been collected first.
func (s *SettlementService) MarkAdminReceived(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.mark(ctx, id, model.BookingTypeCash, queue.StepAdminReceived, func(b *model.Booking, now time.Time) (bool, error) {
		if !b.IsCashCollected {
			return false, invalidRef(ErrNotYetCollected, "booking", b.ID)
		}
		return receive(b, now), nil
	})
}

// MarkOnlineSettled records that the admin received its share of an
// online booking.  There is no collection step for online payments.
func (s *SettlementService) MarkOnlineSettled(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.mark(ctx, id, model.BookingTypeOnline, queue.StepOnlineSettled, func(b *model.Booking, now time.Time) (bool, error) {
		return receive(b, now), nil
	})
}

func receive(b *model.Booking, now time.Time) bool {
	if b.AdminCashReceived {
		return false
	}
	b.AdminCashReceived = true
	b.AdminCashReceivedAt = &now
	return true
}

// mark loads the booking under lock, checks its channel and applies fn.
// The row is saved and an event published only when fn reports a change.
func (s *SettlementService) mark(ctx context.Context, id uint64, channel, step string, fn func(*model.Booking, time.Time) (bool, error)) (*model.Booking, error) {
	var (
		b       *model.Booking
		changed bool
	)
	err := s.store.Transaction(ctx, func(tx repository.BookingStore) error {
		cur, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.BookingType != channel {
			return invalidRef(ErrChannelMismatch, cur.BookingType+" booking", id)
		}
		changed, err = fn(cur, s.now().UTC())
		if err != nil {
			return err
		}
		b = cur
		if !changed {
			return nil
		}
		return tx.SaveBooking(ctx, cur)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidRef(ErrNotFound, "booking", id)
		}
		if !errors.Is(err, ErrChannelMismatch) && !errors.Is(err, ErrNotYetCollected) {
			log.Error().Err(err).Uint64("booking_id", id).Str("step", step).Msg("settlement mark failed")
		}
		return nil, err
	}
	if changed {
		ev := queue.NewSettlementEvent(step, b)
		if err := s.events.Publish(ctx, queue.KeySettlementMarked, ev); err != nil {
			log.Warn().Err(err).Uint64("booking_id", id).Msg("event not published")
		}
	}
	return b, nil
}
