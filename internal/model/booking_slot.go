package model

import (
	"time"

	"gorm.io/datatypes"
)

// BookingSlot is one slot label claimed by an active booking.  The table
// carries a unique index on (court_id, booking_date, slot_label) so the
// database itself refuses a second claim of the same slot.  Rows are
// removed when their booking is cancelled or deleted.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – owning booking.
//  CourtID     – court of the owning booking.
//  BookingDate – day of the owning booking.
//  SlotLabel   – a single label such as "10:00-11:00".
//  CreatedAt   – when the claim was written.
type BookingSlot struct {
	ID          uint64         `gorm:"primaryKey"`
	BookingID   uint64         `gorm:"column:booking_id;not null;index"`
	CourtID     uint64         `gorm:"column:court_id;not null;uniqueIndex:uq_booking_slots_court_date_label,priority:1"`
	BookingDate datatypes.Date `gorm:"column:booking_date;not null;uniqueIndex:uq_booking_slots_court_date_label,priority:2"`
	SlotLabel   string         `gorm:"column:slot_label;size:50;not null;uniqueIndex:uq_booking_slots_court_date_label,priority:3"`
	CreatedAt   time.Time
}

func (BookingSlot) TableName() string { return "booking_slots" }
