package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/ground-booking/internal/model"
	"github.com/iliyamo/ground-booking/internal/service"
)

const dateLayout = "2006-01-02"

// bookingRequest is the body of POST /v1/bookings and PUT /v1/bookings/:id.
// Amount accepts a JSON number or string.
type bookingRequest struct {
	UserType   string  `json:"user_type" validate:"required,oneof=user guest"`
	UserID     *uint64 `json:"user_id"`
	GuestName  *string `json:"guest_name" validate:"omitempty,max=100"`
	GuestEmail *string `json:"guest_email" validate:"omitempty,email,max=150"`
	GuestPhone *string `json:"guest_phone" validate:"omitempty,max=20"`

	GroundID    uint64 `json:"ground_id" validate:"required"`
	CourtID     uint64 `json:"court_id" validate:"required"`
	GameID      uint64 `json:"game_id" validate:"required"`
	BookingDate string `json:"booking_date" validate:"required,datetime=2006-01-02"`
	Slot        string `json:"slot" validate:"required,max=500"`

	BookingType      string          `json:"booking_type" validate:"required,oneof=online cash"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentStatus    string          `json:"payment_status" validate:"omitempty,oneof=pending paid failed"`
	PaymentMethod    *string         `json:"payment_method" validate:"omitempty,max=20"`
	PaymentReference *string         `json:"payment_reference" validate:"omitempty,max=100"`
	Status           string          `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
}

func (r bookingRequest) input() (service.BookingInput, error) {
	d, err := time.Parse(dateLayout, r.BookingDate)
	if err != nil {
		return service.BookingInput{}, err
	}
	return service.BookingInput{
		UserType:         r.UserType,
		UserID:           r.UserID,
		GuestName:        r.GuestName,
		GuestEmail:       r.GuestEmail,
		GuestPhone:       r.GuestPhone,
		GroundID:         r.GroundID,
		CourtID:          r.CourtID,
		GameID:           r.GameID,
		BookingDate:      d,
		Slot:             r.Slot,
		BookingType:      r.BookingType,
		Amount:           r.Amount,
		PaymentStatus:    r.PaymentStatus,
		PaymentMethod:    r.PaymentMethod,
		PaymentReference: r.PaymentReference,
		Status:           r.Status,
	}, nil
}

type paymentRequest struct {
	PaymentStatus    string  `json:"payment_status" validate:"required,oneof=pending paid failed"`
	PaymentMethod    *string `json:"payment_method" validate:"omitempty,max=20"`
	PaymentReference *string `json:"payment_reference" validate:"omitempty,max=100"`
}

type cashCollectedRequest struct {
	CollectedBy string `json:"collected_by" validate:"required,oneof=vendor admin"`
}

// bookingResponse is the public shape of a booking.  Money is rendered
// with two decimals and dates as YYYY-MM-DD.
type bookingResponse struct {
	ID          uint64   `json:"id"`
	UserType    string   `json:"user_type"`
	UserID      *uint64  `json:"user_id,omitempty"`
	GuestName   *string  `json:"guest_name,omitempty"`
	GuestEmail  *string  `json:"guest_email,omitempty"`
	GuestPhone  *string  `json:"guest_phone,omitempty"`
	GroundID    uint64   `json:"ground_id"`
	CourtID     uint64   `json:"court_id"`
	GameID      uint64   `json:"game_id"`
	BookingDate string   `json:"booking_date"`
	Slot        string   `json:"slot"`
	Slots       []string `json:"slots"`

	BookingType      string  `json:"booking_type"`
	Amount           string  `json:"amount"`
	PaymentStatus    string  `json:"payment_status"`
	PaymentMethod    *string `json:"payment_method,omitempty"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	Status           string  `json:"status"`

	IsCashCollected     bool       `json:"is_cash_collected"`
	CashCollectedBy     *string    `json:"cash_collected_by,omitempty"`
	CashCollectedAt     *time.Time `json:"cash_collected_at,omitempty"`
	AdminCashReceived   bool       `json:"admin_cash_received"`
	AdminCashReceivedAt *time.Time `json:"admin_cash_received_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newBookingResponse(b *model.Booking) bookingResponse {
	return bookingResponse{
		ID:                  b.ID,
		UserType:            b.UserType,
		UserID:              b.UserID,
		GuestName:           b.GuestName,
		GuestEmail:          b.GuestEmail,
		GuestPhone:          b.GuestPhone,
		GroundID:            b.GroundID,
		CourtID:             b.CourtID,
		GameID:              b.GameID,
		BookingDate:         b.Date().Format(dateLayout),
		Slot:                b.Slot,
		Slots:               service.ParseSlots(b.Slot),
		BookingType:         b.BookingType,
		Amount:              b.Amount.StringFixed(2),
		PaymentStatus:       b.PaymentStatus,
		PaymentMethod:       b.PaymentMethod,
		PaymentReference:    b.PaymentReference,
		Status:              b.Status,
		IsCashCollected:     b.IsCashCollected,
		CashCollectedBy:     b.CashCollectedBy,
		CashCollectedAt:     b.CashCollectedAt,
		AdminCashReceived:   b.AdminCashReceived,
		AdminCashReceivedAt: b.AdminCashReceivedAt,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func newBookingList(bs []model.Booking) []bookingResponse {
	out := make([]bookingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, newBookingResponse(&bs[i]))
	}
	return out
}

type summaryResponse struct {
	Channel     string            `json:"channel"`
	TotalAmount string            `json:"total_amount"`
	VendorShare string            `json:"vendor_share"`
	AdminShare  string            `json:"admin_share"`
	Count       int               `json:"count"`
	Bookings    []bookingResponse `json:"bookings"`
}

func newSummaryResponse(s *service.Summary) summaryResponse {
	return summaryResponse{
		Channel:     s.Channel,
		TotalAmount: s.TotalAmount.StringFixed(2),
		VendorShare: s.VendorShare.StringFixed(2),
		AdminShare:  s.AdminShare.StringFixed(2),
		Count:       s.Count,
		Bookings:    newBookingList(s.Bookings),
	}
}

type courtResponse struct {
	ID          uint64              `json:"id"`
	GroundID    uint64              `json:"ground_id"`
	GroundName  string              `json:"ground_name,omitempty"`
	GamesID     uint64              `json:"games_id"`
	Name        string              `json:"name"`
	OpenTime    string              `json:"open_time"`
	CloseTime   string              `json:"close_time"`
	Price       string              `json:"price"`
	SlotsPerDay map[string][]string `json:"slots_per_day"`
}

func newCourtResponse(c *model.Court) courtResponse {
	out := courtResponse{
		ID:          c.ID,
		GroundID:    c.GroundID,
		GamesID:     c.GamesID,
		Name:        c.Name,
		OpenTime:    c.OpenTime,
		CloseTime:   c.CloseTime,
		Price:       c.Price.StringFixed(2),
		SlotsPerDay: c.SlotsPerDay(),
	}
	if c.Ground != nil {
		out.GroundName = c.Ground.Name
	}
	return out
}

type availabilityResponse struct {
	CourtID uint64   `json:"court_id"`
	Date    string   `json:"date"`
	Offered []string `json:"offered"`
	Booked  []string `json:"booked"`
	Free    []string `json:"free"`
}
