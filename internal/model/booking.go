package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Booking channel, payment and lifecycle values stored in the bookings table.
const (
	BookingTypeOnline = "online"
	BookingTypeCash   = "cash"

	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"

	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"

	UserTypeUser  = "user"
	UserTypeGuest = "guest"

	PartyVendor = "vendor"
	PartyAdmin  = "admin"
)

// Booking records a reservation of one or more time slots on a court for a
// single calendar day.  A booking is made either by a registered user
// (UserID set) or by a guest identified by name, email and phone; UserType
// says which.  The Slot column keeps the requested labels as a
// comma-joined string for display, while the claimed labels themselves live
// in booking_slots (see BookingSlot).
//
// Fields:
//  ID                  – primary key identifier.
//  UserType            – "user" or "guest".
//  UserID              – booking user (nil for guests).
//  GuestName/Email/Phone – guest contact triple (nil for users).
//  GroundID            – ground containing the court.
//  CourtID             – court being booked.
//  GameID              – game played on the court.
//  BookingDate         – calendar day of the booking.
//  Slot                – comma-joined slot labels, e.g. "10:00-11:00,11:00-12:00".
//  BookingType         – payment channel, "online" or "cash".
//  Amount              – total price.
//  PaymentStatus       – pending, paid or failed.
//  PaymentMethod       – e.g. card, upi, cash.
//  PaymentReference    – transaction id or receipt number.
//  Status              – pending, confirmed or cancelled.
//  IsCashCollected     – cash has been collected by a party.
//  CashCollectedBy     – party that holds the cash ("vendor" or "admin").
//  CashCollectedAt     – when the collection was recorded.
//  AdminCashReceived   – admin acknowledged receipt of its share.
//  AdminCashReceivedAt – when that acknowledgement was recorded.
type Booking struct {
	ID          uint64  `gorm:"primaryKey" json:"id"`
	UserType    string  `gorm:"column:user_type;size:10;not null" json:"user_type"`
	UserID      *uint64 `gorm:"column:user_id;index" json:"user_id,omitempty"`
	GuestName   *string `gorm:"column:guest_name;size:100" json:"guest_name,omitempty"`
	GuestEmail  *string `gorm:"column:guest_email;size:150" json:"guest_email,omitempty"`
	GuestPhone  *string `gorm:"column:guest_phone;size:20" json:"guest_phone,omitempty"`
	GroundID    uint64  `gorm:"column:ground_id;not null;index" json:"ground_id"`
	CourtID     uint64  `gorm:"column:court_id;not null;index:idx_bookings_court_date" json:"court_id"`
	GameID      uint64  `gorm:"column:game_id;not null;index" json:"game_id"`

	BookingDate datatypes.Date `gorm:"column:booking_date;not null;index:idx_bookings_court_date" json:"booking_date"`
	Slot        string         `gorm:"column:slot;size:500;not null" json:"slot"`

	BookingType      string          `gorm:"column:booking_type;size:10;not null" json:"booking_type"`
	Amount           decimal.Decimal `gorm:"column:amount;type:decimal(10,2);not null" json:"amount"`
	PaymentStatus    string          `gorm:"column:payment_status;size:10;not null;default:pending" json:"payment_status"`
	PaymentMethod    *string         `gorm:"column:payment_method;size:20" json:"payment_method,omitempty"`
	PaymentReference *string         `gorm:"column:payment_reference;size:100" json:"payment_reference,omitempty"`
	Status           string          `gorm:"column:status;size:20;not null;default:pending;index" json:"status"`

	IsCashCollected     bool       `gorm:"column:is_cash_collected;not null;default:false" json:"is_cash_collected"`
	CashCollectedBy     *string    `gorm:"column:cash_collected_by;size:10" json:"cash_collected_by,omitempty"`
	CashCollectedAt     *time.Time `gorm:"column:cash_collected_at" json:"cash_collected_at,omitempty"`
	AdminCashReceived   bool       `gorm:"column:admin_cash_received;not null;default:false" json:"admin_cash_received"`
	AdminCashReceivedAt *time.Time `gorm:"column:admin_cash_received_at" json:"admin_cash_received_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name used by the migrations.
func (Booking) TableName() string { return "bookings" }

// Date returns the booking day as a time.Time at midnight UTC.
func (b *Booking) Date() time.Time {
	return time.Time(b.BookingDate)
}
