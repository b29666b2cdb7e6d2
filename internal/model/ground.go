package model

import "time"

// Ground represents a physical venue owned by a vendor.  A ground
// contains one or more courts.  Only the columns read by the booking
// core are mapped here.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique ground name.
//  VendorID  – user ID of the vendor that lists the ground.
//  Status    – listing status (e.g. active).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Ground struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"column:name;size:150;not null" json:"name"`
	VendorID  uint64    `gorm:"column:vendor_id;not null;index" json:"vendor_id"`
	Status    string    `gorm:"column:status;size:20" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ground) TableName() string { return "grounds" }
