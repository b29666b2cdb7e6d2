package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iliyamo/ground-booking/internal/model"
)

const dateLayout = "2006-01-02"

// BookingFilter narrows List and Count.  Zero values mean "no filter".
type BookingFilter struct {
	GroundID    uint64
	CourtID     uint64
	GameID      uint64
	Date        *time.Time
	Status      string
	BookingType string
	// AdminReceived filters on admin_cash_received when set.
	AdminReceived *bool
	Limit         int
	Offset        int
}

// BookingStore is the persistence surface the booking and settlement
// services need.  Transaction runs fn against a store bound to a single
// database transaction; returning an error from fn rolls it back.
type BookingStore interface {
	Transaction(ctx context.Context, fn func(tx BookingStore) error) error

	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	// GetBookingForUpdate reads the booking row with an exclusive lock.
	// Outside Transaction the lock is released immediately.
	GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error)
	// ClaimedSlots returns the labels held on court/date by bookings other
	// than excludeID, locking the rows read.
	ClaimedSlots(ctx context.Context, courtID uint64, date time.Time, excludeID uint64) ([]string, error)

	CreateBooking(ctx context.Context, b *model.Booking, labels []string) error
	// UpdateBooking saves b and replaces its booking_slots rows with labels.
	// A nil or empty labels releases every slot the booking held.
	UpdateBooking(ctx context.Context, b *model.Booking, labels []string) error
	// SaveBooking writes b without touching booking_slots.
	SaveBooking(ctx context.Context, b *model.Booking) error
	DeleteBooking(ctx context.Context, id uint64) error

	ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)
	CountBookings(ctx context.Context, f BookingFilter) (int64, error)
}

// BookingRepo is the GORM implementation of BookingStore.
type BookingRepo struct {
	db   *gorm.DB
	inTx bool
}

// txAttempts bounds how often a transaction aborted by a deadlock or lock
// wait timeout is run.
const txAttempts = 3

var txBackoff = 25 * time.Millisecond

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *gorm.DB) *BookingRepo { return &BookingRepo{db: db} }

var _ BookingStore = (*BookingRepo)(nil)

// Transaction runs fn in a database transaction.  The outermost call is
// retried when InnoDB aborts it for lock contention, so fn must not keep
// state from a previous run.
func (r *BookingRepo) Transaction(ctx context.Context, fn func(tx BookingStore) error) error {
	run := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&BookingRepo{db: tx, inTx: true})
		})
	}
	if r.inTx {
		return run()
	}
	return withRetry(ctx, run)
}

// withRetry calls run up to txAttempts times while it fails with a
// retryable lock error, backing off a little longer each time.
func withRetry(ctx context.Context, run func() error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		if err = run(); !isRetryable(err) {
			return err
		}
		if attempt == txAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("booking transaction aborted by lock contention; retrying")
		t := time.NewTimer(time.Duration(attempt) * txBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BookingRepo) GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	var b model.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *BookingRepo) ClaimedSlots(ctx context.Context, courtID uint64, date time.Time, excludeID uint64) ([]string, error) {
	q := r.db.WithContext(ctx).
		Model(&model.BookingSlot{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("court_id = ? AND booking_date = ?", courtID, date.Format(dateLayout))
	if excludeID != 0 {
		q = q.Where("booking_id <> ?", excludeID)
	}
	var labels []string
	if err := q.Order("id ASC").Pluck("slot_label", &labels).Error; err != nil {
		return nil, err
	}
	return labels, nil
}

func (r *BookingRepo) CreateBooking(ctx context.Context, b *model.Booking, labels []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(b).Error; err != nil {
		return err
	}
	return insertSlots(db, b, labels)
}

func (r *BookingRepo) UpdateBooking(ctx context.Context, b *model.Booking, labels []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Save(b).Error; err != nil {
		return err
	}
	if err := db.Where("booking_id = ?", b.ID).Delete(&model.BookingSlot{}).Error; err != nil {
		return err
	}
	return insertSlots(db, b, labels)
}

func (r *BookingRepo) SaveBooking(ctx context.Context, b *model.Booking) error {
	return r.db.WithContext(ctx).Save(b).Error
}

// DeleteBooking removes the booking and the slots it claimed.
func (r *BookingRepo) DeleteBooking(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ?", id).Delete(&model.BookingSlot{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Booking{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *BookingRepo) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	q := applyFilter(r.db.WithContext(ctx).Model(&model.Booking{}), f)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []model.Booking
	if err := q.Order("booking_date DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingRepo) CountBookings(ctx context.Context, f BookingFilter) (int64, error) {
	var n int64
	err := applyFilter(r.db.WithContext(ctx).Model(&model.Booking{}), f).Count(&n).Error
	return n, err
}

func applyFilter(q *gorm.DB, f BookingFilter) *gorm.DB {
	if f.GroundID != 0 {
		q = q.Where("ground_id = ?", f.GroundID)
	}
	if f.CourtID != 0 {
		q = q.Where("court_id = ?", f.CourtID)
	}
	if f.GameID != 0 {
		q = q.Where("game_id = ?", f.GameID)
	}
	if f.Date != nil {
		q = q.Where("booking_date = ?", f.Date.Format(dateLayout))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BookingType != "" {
		q = q.Where("booking_type = ?", f.BookingType)
	}
	if f.AdminReceived != nil {
		q = q.Where("admin_cash_received = ?", *f.AdminReceived)
	}
	return q
}

// insertSlots writes one booking_slots row per label in a single statement.
// An empty label list is a no-op.
func insertSlots(db *gorm.DB, b *model.Booking, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	rows := make([]model.BookingSlot, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, model.BookingSlot{
			BookingID:   b.ID,
			CourtID:     b.CourtID,
			BookingDate: datatypes.Date(b.Date()),
			SlotLabel:   l,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateSlot, err)
		}
		return err
	}
	return nil
}
