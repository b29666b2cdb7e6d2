// Package service implements the booking core: slot conflict checking on
// create and update, and the cash/online settlement ledger.  Persistence
// is reached through repository.BookingStore so every check and write of
// one operation shares a single transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/iliyamo/ground-booking/internal/model"
	"github.com/iliyamo/ground-booking/internal/queue"
	"github.com/iliyamo/ground-booking/internal/repository"
)

// EventPublisher sends booking events.  queue.Publisher and
// queue.NopPublisher satisfy it.
type EventPublisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// BookingInput is the full shape accepted by Create and Update.  On Update
// an empty Status or PaymentStatus keeps the stored value.
type BookingInput struct {
	UserType   string
	UserID     *uint64
	GuestName  *string
	GuestEmail *string
	GuestPhone *string

	GroundID    uint64
	CourtID     uint64
	GameID      uint64
	BookingDate time.Time
	Slot        string

	BookingType      string
	Amount           decimal.Decimal
	PaymentStatus    string
	PaymentMethod    *string
	PaymentReference *string
	Status           string
}

// PaymentUpdate changes only the payment columns of a booking.
type PaymentUpdate struct {
	Status    string
	Method    *string
	Reference *string
}

// BookingService creates, updates and removes bookings while keeping the
// rule that no two active bookings on a court and date share a slot.
type BookingService struct {
	store  repository.BookingStore
	courts repository.CourtReader
	events EventPublisher
}

// NewBookingService wires the service.  A nil publisher drops events.
func NewBookingService(store repository.BookingStore, courts repository.CourtReader, events EventPublisher) *BookingService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &BookingService{store: store, courts: courts, events: events}
}

// Validate runs the checks that do not need the write transaction: input
// shape, court ownership and in-request duplicates.  It returns the parsed
// labels in request order.
func (s *BookingService) Validate(ctx context.Context, in BookingInput) ([]string, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	court, err := s.courts.GetCourt(ctx, in.CourtID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidRef(ErrNotFound, "court", in.CourtID)
		}
		return nil, err
	}
	if court.GroundID != in.GroundID {
		return nil, fmt.Errorf("%w: court %d is in ground %d, not %d", ErrCourtMismatch, court.ID, court.GroundID, in.GroundID)
	}
	labels := ParseSlots(in.Slot)
	if len(labels) == 0 {
		return nil, invalid("slot must name at least one slot")
	}
	if long := LongSlots(labels); len(long) > 0 {
		return nil, invalid("slot labels must be at most %d characters: %s", MaxSlotLabelLen, strings.Join(long, ", "))
	}
	if dups := DuplicateSlots(labels); len(dups) > 0 {
		return nil, &SlotError{Kind: ErrDuplicateSlots, Slots: dups}
	}
	return labels, nil
}

// Create validates in, checks the requested slots against every active
// booking on the same court and date, and writes the booking with its
// slot claims in one transaction.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (*model.Booking, error) {
	labels, err := s.Validate(ctx, in)
	if err != nil {
		return nil, err
	}
	b := &model.Booking{PaymentStatus: model.PaymentPending, Status: model.StatusPending}
	in.apply(b, labels)

	err = s.store.Transaction(ctx, func(tx repository.BookingStore) error {
		// the store may rerun this after a deadlock
		b.ID = 0
		claims, err := s.claim(ctx, tx, b, labels, 0)
		if err != nil {
			return err
		}
		return tx.CreateBooking(ctx, b, claims)
	})
	if err != nil {
		return nil, s.writeError(ctx, err, b, labels, 0)
	}

	if b.Status == model.StatusConfirmed {
		s.publish(ctx, queue.KeyBookingConfirmed, queue.NewBookingEvent(queue.KeyBookingConfirmed, b, labels))
	}
	return b, nil
}

// Update replaces the booking with in, re-running the same checks as
// Create but ignoring the booking's own slots.  A booking whose resulting
// status is cancelled claims no slots, so the conflict scan is skipped and
// its previous slots are released.  booking.confirmed is published only
// when the booking becomes confirmed or a confirmed booking changes slots.
func (s *BookingService) Update(ctx context.Context, id uint64, in BookingInput) (*model.Booking, error) {
	labels, err := s.Validate(ctx, in)
	if err != nil {
		return nil, err
	}

	var (
		b          *model.Booking
		prevStatus string
		prevSlots  []string
	)
	err = s.store.Transaction(ctx, func(tx repository.BookingStore) error {
		cur, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		prevStatus = cur.Status
		prevSlots = ParseSlots(cur.Slot)
		in.apply(cur, labels)
		b = cur
		claims, err := s.claim(ctx, tx, b, labels, id)
		if err != nil {
			return err
		}
		return tx.UpdateBooking(ctx, b, claims)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidRef(ErrNotFound, "booking", id)
		}
		return nil, s.writeError(ctx, err, b, labels, id)
	}

	switch {
	case b.Status == model.StatusConfirmed && (prevStatus != model.StatusConfirmed || !SameSlots(prevSlots, labels)):
		s.publish(ctx, queue.KeyBookingConfirmed, queue.NewBookingEvent(queue.KeyBookingConfirmed, b, labels))
	case b.Status == model.StatusCancelled && prevStatus != model.StatusCancelled:
		s.publish(ctx, queue.KeyBookingCancelled, queue.NewBookingEvent(queue.KeyBookingCancelled, b, prevSlots))
	}
	return b, nil
}

// claim returns the labels b should own after the write.  Cancelled
// bookings own none.  Otherwise the claimed rows for the court and date are
// read under lock and any overlap fails with a SlotError listing every
// conflicting label.
func (s *BookingService) claim(ctx context.Context, tx repository.BookingStore, b *model.Booking, labels []string, excludeID uint64) ([]string, error) {
	if b.Status == model.StatusCancelled {
		return nil, nil
	}
	claimed, err := tx.ClaimedSlots(ctx, b.CourtID, b.Date(), excludeID)
	if err != nil {
		return nil, err
	}
	if conflicts := ConflictingSlots(labels, claimed); len(conflicts) > 0 {
		return nil, &SlotError{Kind: ErrSlotConflict, Slots: conflicts}
	}
	return labels, nil
}

// writeError turns a unique-index rejection into a SlotConflict.  The
// transaction is gone by then, so the taken labels are re-read; when the
// competing claim has already disappeared every requested label is
// reported.
func (s *BookingService) writeError(ctx context.Context, err error, b *model.Booking, labels []string, excludeID uint64) error {
	if !errors.Is(err, repository.ErrDuplicateSlot) {
		var se *SlotError
		if !errors.As(err, &se) {
			log.Error().Err(err).Uint64("booking_id", excludeID).Msg("booking write failed")
		}
		return err
	}
	conflicts := labels
	if claimed, rerr := s.store.ClaimedSlots(ctx, b.CourtID, b.Date(), excludeID); rerr == nil {
		if c := ConflictingSlots(labels, claimed); len(c) > 0 {
			conflicts = c
		}
	}
	log.Warn().Uint64("court_id", b.CourtID).Strs("slots", conflicts).Msg("slot claim lost to concurrent booking")
	return &SlotError{Kind: ErrSlotConflict, Slots: conflicts}
}

// Availability describes one court on one day: the slots its weekly
// template offers, the labels active bookings hold, and what is left.
type Availability struct {
	CourtID uint64
	Date    time.Time
	Offered []string
	Booked  []string
	Free    []string
}

// Availability reports which slots of the court are still bookable on
// date.  Booked lists every claimed label, including any that are not
// part of the template.
func (s *BookingService) Availability(ctx context.Context, courtID uint64, date time.Time) (*Availability, error) {
	court, err := s.courts.GetCourt(ctx, courtID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidRef(ErrNotFound, "court", courtID)
		}
		return nil, err
	}
	date = dateOnly(date)
	booked, err := s.store.ClaimedSlots(ctx, courtID, date, 0)
	if err != nil {
		return nil, err
	}
	offered := offeredOn(court, date.Weekday())

	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}
	free := make([]string, 0, len(offered))
	for _, o := range offered {
		if !taken[o] {
			free = append(free, o)
		}
	}
	if booked == nil {
		booked = []string{}
	}
	return &Availability{CourtID: courtID, Date: date, Offered: offered, Booked: booked, Free: free}, nil
}

// offeredOn returns the template slots whose day matches wd by full or
// three-letter name, ignoring case.
func offeredOn(c *model.Court, wd time.Weekday) []string {
	full := strings.ToLower(wd.String())
	out := []string{}
	for _, s := range c.Slots {
		d := strings.ToLower(strings.TrimSpace(s.Day))
		if d == full || d == full[:3] {
			out = append(out, s.Slot)
		}
	}
	return out
}

func (s *BookingService) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalidRef(ErrNotFound, "booking", id)
	}
	return b, err
}

func (s *BookingService) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	return s.store.ListBookings(ctx, f)
}

func (s *BookingService) Count(ctx context.Context, f repository.BookingFilter) (int64, error) {
	return s.store.CountBookings(ctx, f)
}

// Delete removes the booking and frees its slots.
func (s *BookingService) Delete(ctx context.Context, id uint64) error {
	err := s.store.DeleteBooking(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return invalidRef(ErrNotFound, "booking", id)
	}
	return err
}

// UpdatePayment records payment progress.  Slots and settlement columns
// are left untouched.
func (s *BookingService) UpdatePayment(ctx context.Context, id uint64, p PaymentUpdate) (*model.Booking, error) {
	if !oneOf(p.Status, model.PaymentPending, model.PaymentPaid, model.PaymentFailed) {
		return nil, invalid("payment_status must be pending, paid or failed")
	}
	var b *model.Booking
	err := s.store.Transaction(ctx, func(tx repository.BookingStore) error {
		cur, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		cur.PaymentStatus = p.Status
		if p.Method != nil {
			cur.PaymentMethod = p.Method
		}
		if p.Reference != nil {
			cur.PaymentReference = p.Reference
		}
		b = cur
		return tx.SaveBooking(ctx, cur)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalidRef(ErrNotFound, "booking", id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookingService) publish(ctx context.Context, key string, ev queue.Event) {
	if err := s.events.Publish(ctx, key, ev); err != nil {
		log.Warn().Err(err).Str("key", key).Uint64("booking_id", ev.BookingID).Msg("event not published")
	}
}

// check enforces the input shape: one identity mode per user_type, known
// enum values, positive references and a non-negative amount.
func (in BookingInput) check() error {
	switch in.UserType {
	case model.UserTypeUser:
		if in.UserID == nil || *in.UserID == 0 {
			return invalid("user_id is required for user bookings")
		}
		if present(in.GuestName) || present(in.GuestEmail) || present(in.GuestPhone) {
			return invalid("guest fields must be empty for user bookings")
		}
	case model.UserTypeGuest:
		if in.UserID != nil {
			return invalid("user_id must be empty for guest bookings")
		}
		if !present(in.GuestName) || !present(in.GuestEmail) || !present(in.GuestPhone) {
			return invalid("guest_name, guest_email and guest_phone are required for guest bookings")
		}
	default:
		return invalid("user_type must be user or guest")
	}
	if in.GroundID == 0 || in.CourtID == 0 || in.GameID == 0 {
		return invalid("ground_id, court_id and game_id are required")
	}
	if in.BookingDate.IsZero() {
		return invalid("booking_date is required")
	}
	if !oneOf(in.BookingType, model.BookingTypeOnline, model.BookingTypeCash) {
		return invalid("booking_type must be online or cash")
	}
	if in.Amount.IsNegative() {
		return invalid("amount must not be negative")
	}
	if in.PaymentStatus != "" && !oneOf(in.PaymentStatus, model.PaymentPending, model.PaymentPaid, model.PaymentFailed) {
		return invalid("payment_status must be pending, paid or failed")
	}
	if in.Status != "" && !oneOf(in.Status, model.StatusPending, model.StatusConfirmed, model.StatusCancelled) {
		return invalid("status must be pending, confirmed or cancelled")
	}
	return nil
}

// apply copies in onto b, storing the canonical slot string.  Settlement
// columns are never touched here.
func (in BookingInput) apply(b *model.Booking, labels []string) {
	b.UserType = in.UserType
	b.UserID = in.UserID
	b.GuestName = trimmed(in.GuestName)
	b.GuestEmail = trimmed(in.GuestEmail)
	b.GuestPhone = trimmed(in.GuestPhone)
	b.GroundID = in.GroundID
	b.CourtID = in.CourtID
	b.GameID = in.GameID
	b.BookingDate = datatypes.Date(dateOnly(in.BookingDate))
	b.Slot = strings.Join(labels, ",")
	b.BookingType = in.BookingType
	b.Amount = in.Amount.Round(2)
	b.PaymentMethod = in.PaymentMethod
	b.PaymentReference = in.PaymentReference
	if in.PaymentStatus != "" {
		b.PaymentStatus = in.PaymentStatus
	}
	if in.Status != "" {
		b.Status = in.Status
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func present(s *string) bool { return s != nil && strings.TrimSpace(*s) != "" }

func trimmed(s *string) *string {
	if !present(s) {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
