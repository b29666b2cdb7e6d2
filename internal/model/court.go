package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Court is a bookable sub-unit of a ground, associated with one game.
// Slots lists the weekly slot template advertised for the court.
type Court struct {
	ID        uint64          `gorm:"primaryKey" json:"id"`
	GroundID  uint64          `gorm:"column:ground_id;not null;index" json:"ground_id"`
	GamesID   uint64          `gorm:"column:games_id;not null" json:"games_id"`
	Name      string          `gorm:"column:name;size:100;not null" json:"name"`
	OpenTime  string          `gorm:"column:open_time;size:10" json:"open_time"`
	CloseTime string          `gorm:"column:close_time;size:10" json:"close_time"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(10,2)" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Ground *Ground     `gorm:"foreignKey:GroundID" json:"-"`
	Slots  []CourtSlot `gorm:"foreignKey:CourtID" json:"-"`
}

func (Court) TableName() string { return "courts" }

// CourtSlot is one entry of a court's weekly template: on Day the court
// offers Slot.
type CourtSlot struct {
	ID      uint64 `gorm:"primaryKey" json:"id"`
	CourtID uint64 `gorm:"column:court_id;not null;index" json:"court_id"`
	Day     string `gorm:"column:day;size:10;not null" json:"day"`
	Slot    string `gorm:"column:slot;size:20;not null" json:"slot"`
}

func (CourtSlot) TableName() string { return "court_slots" }

// SlotsPerDay groups the court's slot template by day, keeping the stored
// order within each day.
func (c *Court) SlotsPerDay() map[string][]string {
	out := make(map[string][]string)
	for _, s := range c.Slots {
		out[s.Day] = append(out[s.Day], s.Slot)
	}
	return out
}
