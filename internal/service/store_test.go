package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ground-booking/internal/model"
	"github.com/iliyamo/ground-booking/internal/repository"
)

type slotKey struct {
	courtID uint64
	date    string
	label   string
}

// memStore is an in-memory BookingStore.  booking_slots is modelled by a
// map keyed like the unique index, so a second claim of the same slot
// fails with ErrDuplicateSlot the way MySQL does.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID   uint64
	bookings map[uint64]model.Booking
	slots    map[slotKey]uint64

	// hideClaims makes the next N ClaimedSlots calls return nothing,
	// simulating a concurrent writer that commits after the scan.
	hideClaims int
}

func newMemStore() *memStore {
	return &memStore{bookings: map[uint64]model.Booking{}, slots: map[slotKey]uint64{}}
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx repository.BookingStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	bookings := make(map[uint64]model.Booking, len(m.bookings))
	for k, v := range m.bookings {
		bookings[k] = v
	}
	slots := make(map[slotKey]uint64, len(m.slots))
	for k, v := range m.slots {
		slots[k] = v
	}
	next := m.nextID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.bookings, m.slots, m.nextID = bookings, slots, next
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) GetBookingForUpdate(ctx context.Context, id uint64) (*model.Booking, error) {
	return m.GetBooking(ctx, id)
}

func (m *memStore) ClaimedSlots(_ context.Context, courtID uint64, date time.Time, excludeID uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideClaims > 0 {
		m.hideClaims--
		return nil, nil
	}
	d := date.Format("2006-01-02")
	var out []string
	for k, id := range m.slots {
		if k.courtID == courtID && k.date == d && id != excludeID {
			out = append(out, k.label)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memStore) CreateBooking(_ context.Context, b *model.Booking, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = *b
	return m.insertSlots(b, labels)
}

func (m *memStore) UpdateBooking(_ context.Context, b *model.Booking, labels []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.UpdatedAt = time.Now()
	m.bookings[b.ID] = *b
	m.releaseSlots(b.ID)
	return m.insertSlots(b, labels)
}

func (m *memStore) SaveBooking(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = *b
	return nil
}

func (m *memStore) DeleteBooking(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.bookings, id)
	m.releaseSlots(id)
	return nil
}

func (m *memStore) ListBookings(_ context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if matches(b, f) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CountBookings(ctx context.Context, f repository.BookingFilter) (int64, error) {
	out, err := m.ListBookings(ctx, f)
	return int64(len(out)), err
}

func (m *memStore) insertSlots(b *model.Booking, labels []string) error {
	d := b.Date().Format("2006-01-02")
	for _, l := range labels {
		k := slotKey{b.CourtID, d, l}
		if owner, ok := m.slots[k]; ok && owner != b.ID {
			return repository.ErrDuplicateSlot
		}
		m.slots[k] = b.ID
	}
	return nil
}

func (m *memStore) releaseSlots(id uint64) {
	for k, owner := range m.slots {
		if owner == id {
			delete(m.slots, k)
		}
	}
}

// put stores b as-is, claiming its slots unless it is cancelled.
func (m *memStore) put(b model.Booking) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	m.bookings[b.ID] = b
	if b.Status != model.StatusCancelled {
		_ = m.insertSlots(&b, ParseSlots(b.Slot))
	}
	return &b
}

func matches(b model.Booking, f repository.BookingFilter) bool {
	switch {
	case f.GroundID != 0 && b.GroundID != f.GroundID,
		f.CourtID != 0 && b.CourtID != f.CourtID,
		f.GameID != 0 && b.GameID != f.GameID,
		f.Status != "" && b.Status != f.Status,
		f.BookingType != "" && b.BookingType != f.BookingType,
		f.AdminReceived != nil && b.AdminCashReceived != *f.AdminReceived,
		f.Date != nil && !b.Date().Equal(*f.Date):
		return false
	}
	return true
}

type stubCourts map[uint64]model.Court

func (s stubCourts) GetCourt(_ context.Context, id uint64) (*model.Court, error) {
	c, ok := s[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

type publishedEvent struct {
	key string
	v   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, v: v})
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }
