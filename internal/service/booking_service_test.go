package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/iliyamo/ground-booking/internal/model"
	"github.com/iliyamo/ground-booking/internal/queue"
	"github.com/iliyamo/ground-booking/internal/repository"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func newBookingFixture() (*BookingService, *memStore, *recordingPublisher) {
	store := newMemStore()
	courts := stubCourts{
		7: {ID: 7, GroundID: 3, GamesID: 1, Name: "Court A"},
		8: {ID: 8, GroundID: 4, GamesID: 1, Name: "Court B"},
	}
	pub := &recordingPublisher{}
	return NewBookingService(store, courts, pub), store, pub
}

func userInput(slot string) BookingInput {
	uid := uint64(42)
	return BookingInput{
		UserType:    model.UserTypeUser,
		UserID:      &uid,
		GroundID:    3,
		CourtID:     7,
		GameID:      1,
		BookingDate: day,
		Slot:        slot,
		BookingType: model.BookingTypeCash,
		Amount:      amount("500.00"),
		Status:      model.StatusConfirmed,
	}
}

func existing(store *memStore, slot, status string) *model.Booking {
	uid := uint64(9)
	return store.put(model.Booking{
		UserType:    model.UserTypeUser,
		UserID:      &uid,
		GroundID:    3,
		CourtID:     7,
		GameID:      1,
		BookingDate: datatypes.Date(day),
		Slot:        slot,
		BookingType: model.BookingTypeCash,
		Amount:      amount("300.00"),
		Status:      status,
	})
}

func wantSlotError(t *testing.T, err, kind error, slots []string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	if got := SlotsOf(err); !reflect.DeepEqual(got, slots) {
		t.Fatalf("expected slots %q, got %q", slots, got)
	}
}

func TestCreateRejectsOverlapAndAcceptsDisjointSlots(t *testing.T) {
	svc, store, _ := newBookingFixture()
	existing(store, "09:00-10:00,10:00-11:00", model.StatusConfirmed)

	_, err := svc.Create(context.Background(), userInput("10:00-11:00,11:00-12:00"))
	wantSlotError(t, err, ErrSlotConflict, []string{"10:00-11:00"})

	b, err := svc.Create(context.Background(), userInput("11:00-12:00,12:00-13:00"))
	if err != nil {
		t.Fatalf("Create disjoint: %v", err)
	}
	if b.ID == 0 || b.Slot != "11:00-12:00,12:00-13:00" {
		t.Fatalf("unexpected booking %+v", b)
	}
}

func TestCreateReportsEveryConflict(t *testing.T) {
	svc, store, _ := newBookingFixture()
	existing(store, "09:00-10:00", model.StatusPending)
	existing(store, "12:00-13:00", model.StatusConfirmed)

	_, err := svc.Create(context.Background(), userInput("12:00-13:00, 10:00-11:00 ,09:00-10:00"))
	wantSlotError(t, err, ErrSlotConflict, []string{"12:00-13:00", "09:00-10:00"})
}

func TestCreateIgnoresOtherCourtsDatesAndCancelled(t *testing.T) {
	svc, store, _ := newBookingFixture()
	existing(store, "10:00-11:00", model.StatusCancelled)
	other := existing(store, "11:00-12:00", model.StatusConfirmed)
	store.mu.Lock()
	delete(store.slots, slotKey{7, "2025-03-14", "11:00-12:00"})
	store.slots[slotKey{7, "2025-03-15", "11:00-12:00"}] = other.ID
	store.mu.Unlock()

	if _, err := svc.Create(context.Background(), userInput("10:00-11:00,11:00-12:00")); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestCreateRejectsDuplicatesBeforeConflicts(t *testing.T) {
	svc, store, _ := newBookingFixture()
	existing(store, "10:00-11:00", model.StatusConfirmed)

	_, err := svc.Create(context.Background(), userInput("10:00-11:00,11:00-12:00,10:00-11:00,11:00-12:00"))
	wantSlotError(t, err, ErrDuplicateSlots, []string{"10:00-11:00", "11:00-12:00"})
}

func TestCreateCourtMismatchAbortsBeforeSlotChecks(t *testing.T) {
	svc, _, _ := newBookingFixture()
	in := userInput("a,a")
	in.CourtID = 8

	_, err := svc.Create(context.Background(), in)
	if !errors.Is(err, ErrCourtMismatch) {
		t.Fatalf("expected ErrCourtMismatch, got %v", err)
	}
	if SlotsOf(err) != nil {
		t.Fatalf("court mismatch must not carry slots")
	}
}

func TestCreateUnknownCourt(t *testing.T) {
	svc, _, _ := newBookingFixture()
	in := userInput("10:00-11:00")
	in.CourtID = 99

	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	name, email, phone := "Asha", "asha@example.com", "5550100"
	uid := uint64(42)
	cases := []struct {
		name   string
		mutate func(*BookingInput)
	}{
		{"empty slot list", func(in *BookingInput) { in.Slot = " , " }},
		{"unknown user type", func(in *BookingInput) { in.UserType = "robot" }},
		{"user without id", func(in *BookingInput) { in.UserID = nil }},
		{"user with guest fields", func(in *BookingInput) { in.GuestName = &name }},
		{"guest missing phone", func(in *BookingInput) {
			in.UserType, in.UserID = model.UserTypeGuest, nil
			in.GuestName, in.GuestEmail = &name, &email
		}},
		{"guest with user id", func(in *BookingInput) {
			in.UserType, in.UserID = model.UserTypeGuest, &uid
			in.GuestName, in.GuestEmail, in.GuestPhone = &name, &email, &phone
		}},
		{"bad booking type", func(in *BookingInput) { in.BookingType = "cheque" }},
		{"negative amount", func(in *BookingInput) { in.Amount = amount("-1") }},
		{"bad status", func(in *BookingInput) { in.Status = "done" }},
		{"missing date", func(in *BookingInput) { in.BookingDate = time.Time{} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newBookingFixture()
			in := userInput("10:00-11:00")
			tc.mutate(&in)
			if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateGuestBooking(t *testing.T) {
	svc, _, _ := newBookingFixture()
	name, email, phone := " Asha ", "asha@example.com", "5550100"
	in := userInput("10:00-11:00")
	in.UserType, in.UserID = model.UserTypeGuest, nil
	in.GuestName, in.GuestEmail, in.GuestPhone = &name, &email, &phone
	in.Status = ""

	b, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.UserID != nil || b.GuestName == nil || *b.GuestName != "Asha" {
		t.Fatalf("unexpected identity on %+v", b)
	}
	if b.Status != model.StatusPending || b.PaymentStatus != model.PaymentPending {
		t.Fatalf("expected pending defaults, got status=%s payment=%s", b.Status, b.PaymentStatus)
	}
}

func TestCreateLosingRaceReportsSlotConflict(t *testing.T) {
	svc, store, _ := newBookingFixture()
	existing(store, "10:00-11:00", model.StatusConfirmed)
	store.hideClaims = 1

	_, err := svc.Create(context.Background(), userInput("10:00-11:00,11:00-12:00"))
	wantSlotError(t, err, ErrSlotConflict, []string{"10:00-11:00"})

	n, _ := store.CountBookings(context.Background(), repository.BookingFilter{})
	if n != 1 {
		t.Fatalf("failed create must roll back, have %d bookings", n)
	}
}

func TestUpdateExcludesItsOwnSlots(t *testing.T) {
	svc, store, _ := newBookingFixture()
	own := existing(store, "10:00-11:00,11:00-12:00", model.StatusConfirmed)
	existing(store, "13:00-14:00", model.StatusConfirmed)

	b, err := svc.Update(context.Background(), own.ID, userInput("11:00-12:00,12:00-13:00"))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if b.Slot != "11:00-12:00,12:00-13:00" {
		t.Fatalf("unexpected slot %q", b.Slot)
	}

	// 10:00-11:00 was released by the update.
	if _, err := svc.Create(context.Background(), userInput("10:00-11:00")); err != nil {
		t.Fatalf("Create on released slot: %v", err)
	}

	_, err = svc.Update(context.Background(), own.ID, userInput("12:00-13:00,13:00-14:00"))
	wantSlotError(t, err, ErrSlotConflict, []string{"13:00-14:00"})
}

func TestUpdateRunsDuplicateCheck(t *testing.T) {
	svc, store, _ := newBookingFixture()
	own := existing(store, "10:00-11:00", model.StatusConfirmed)

	_, err := svc.Update(context.Background(), own.ID, userInput("10:00-11:00,10:00-11:00"))
	wantSlotError(t, err, ErrDuplicateSlots, []string{"10:00-11:00"})
}

func TestUpdateUnknownBooking(t *testing.T) {
	svc, _, _ := newBookingFixture()
	if _, err := svc.Update(context.Background(), 404, userInput("10:00-11:00")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancellingFreesSlots(t *testing.T) {
	svc, store, pub := newBookingFixture()
	own := existing(store, "10:00-11:00", model.StatusConfirmed)

	in := userInput("10:00-11:00")
	in.Status = model.StatusCancelled
	if _, err := svc.Update(context.Background(), own.ID, in); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Create(context.Background(), userInput("10:00-11:00")); err != nil {
		t.Fatalf("Create after cancel: %v", err)
	}

	want := []string{queue.KeyBookingCancelled, queue.KeyBookingConfirmed}
	if got := pub.keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected events %q, got %q", want, got)
	}
}

func TestUpdateToCancelledSkipsConflictScan(t *testing.T) {
	svc, store, _ := newBookingFixture()
	existing(store, "10:00-11:00", model.StatusConfirmed)
	own := existing(store, "15:00-16:00", model.StatusConfirmed)

	in := userInput("10:00-11:00")
	in.Status = model.StatusCancelled
	if _, err := svc.Update(context.Background(), own.ID, in); err != nil {
		t.Fatalf("cancelling onto a taken slot must succeed: %v", err)
	}
}

func TestDeleteFreesSlots(t *testing.T) {
	svc, store, _ := newBookingFixture()
	own := existing(store, "10:00-11:00", model.StatusConfirmed)

	if err := svc.Delete(context.Background(), own.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Create(context.Background(), userInput("10:00-11:00")); err != nil {
		t.Fatalf("Create after delete: %v", err)
	}
	if err := svc.Delete(context.Background(), own.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestUpdatePaymentLeavesSlotsAlone(t *testing.T) {
	svc, store, _ := newBookingFixture()
	own := existing(store, "10:00-11:00", model.StatusConfirmed)
	ref := "rcpt-77"

	b, err := svc.UpdatePayment(context.Background(), own.ID, PaymentUpdate{Status: model.PaymentPaid, Reference: &ref})
	if err != nil {
		t.Fatalf("UpdatePayment: %v", err)
	}
	if b.PaymentStatus != model.PaymentPaid || b.PaymentReference == nil || *b.PaymentReference != ref {
		t.Fatalf("payment not recorded: %+v", b)
	}
	if b.Slot != own.Slot {
		t.Fatalf("slot changed to %q", b.Slot)
	}
	if _, err := svc.UpdatePayment(context.Background(), own.ID, PaymentUpdate{Status: "refunded"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreatePublishesOnlyConfirmed(t *testing.T) {
	svc, _, pub := newBookingFixture()
	pending := userInput("10:00-11:00")
	pending.Status = model.StatusPending
	if _, err := svc.Create(context.Background(), pending); err != nil {
		t.Fatalf("Create pending: %v", err)
	}
	if _, err := svc.Create(context.Background(), userInput("11:00-12:00")); err != nil {
		t.Fatalf("Create confirmed: %v", err)
	}
	if got := pub.keys(); !reflect.DeepEqual(got, []string{queue.KeyBookingConfirmed}) {
		t.Fatalf("unexpected events %q", got)
	}
	ev := pub.events[0].v.(queue.Event)
	if !reflect.DeepEqual(ev.Slots, []string{"11:00-12:00"}) || ev.Amount != "500.00" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestAvailabilitySubtractsBookedSlots(t *testing.T) {
	store := newMemStore()
	courts := stubCourts{7: {ID: 7, GroundID: 3, Slots: []model.CourtSlot{
		{Day: "Friday", Slot: "09:00-10:00"},
		{Day: "friday", Slot: "10:00-11:00"},
		{Day: "Sat", Slot: "09:00-10:00"},
	}}}
	svc := NewBookingService(store, courts, nil)
	existing(store, "10:00-11:00", model.StatusConfirmed)

	// 2025-03-14 is a Friday.
	av, err := svc.Availability(context.Background(), 7, day.Add(15*time.Hour))
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(av.Offered) != 2 || !reflect.DeepEqual(av.Booked, []string{"10:00-11:00"}) {
		t.Fatalf("unexpected availability %+v", av)
	}
	if !reflect.DeepEqual(av.Free, []string{"09:00-10:00"}) {
		t.Fatalf("expected 09:00-10:00 free, got %q", av.Free)
	}
	if !av.Date.Equal(day) {
		t.Fatalf("date not truncated: %s", av.Date)
	}

	if _, err := svc.Availability(context.Background(), 99, day); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRejectsOverlongLabels(t *testing.T) {
	svc, store, _ := newBookingFixture()
	long := strings.Repeat("9", MaxSlotLabelLen+1)

	_, err := svc.Create(context.Background(), userInput("10:00-11:00,"+long))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n, _ := store.CountBookings(context.Background(), repository.BookingFilter{}); n != 0 {
		t.Fatalf("nothing should be written, have %d bookings", n)
	}

	edge := strings.Repeat("9", MaxSlotLabelLen)
	if _, err := svc.Create(context.Background(), userInput(edge)); err != nil {
		t.Fatalf("a label of exactly %d characters is valid: %v", MaxSlotLabelLen, err)
	}
}

func TestUpdatePublishesConfirmedOnlyOnChange(t *testing.T) {
	svc, store, pub := newBookingFixture()
	own := existing(store, "10:00-11:00,11:00-12:00", model.StatusConfirmed)

	// Same slots in another order, only the amount changes.
	in := userInput("11:00-12:00,10:00-11:00")
	in.Amount = amount("650.00")
	if _, err := svc.Update(context.Background(), own.ID, in); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := pub.keys(); len(got) != 0 {
		t.Fatalf("an unchanged confirmed booking must not republish, got %q", got)
	}

	if _, err := svc.Update(context.Background(), own.ID, userInput("11:00-12:00")); err != nil {
		t.Fatalf("Update slots: %v", err)
	}
	if got := pub.keys(); !reflect.DeepEqual(got, []string{queue.KeyBookingConfirmed}) {
		t.Fatalf("expected one confirmed event after a slot change, got %q", got)
	}

	pending := existing(store, "15:00-16:00", model.StatusPending)
	if _, err := svc.Update(context.Background(), pending.ID, userInput("15:00-16:00")); err != nil {
		t.Fatalf("confirm pending: %v", err)
	}
	if got := pub.keys(); len(got) != 2 || got[1] != queue.KeyBookingConfirmed {
		t.Fatalf("expected a confirmed event when a pending booking is confirmed, got %q", got)
	}
}
