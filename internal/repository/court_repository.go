package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/iliyamo/ground-booking/internal/model"
)

// CourtReader looks up catalog courts.  The booking core only reads the
// catalog; courts and grounds are maintained elsewhere.
type CourtReader interface {
	GetCourt(ctx context.Context, id uint64) (*model.Court, error)
}

// CourtRepo reads courts and their weekly slot template.
type CourtRepo struct {
	db *gorm.DB
}

// NewCourtRepo returns a new CourtRepo bound to the given database.
func NewCourtRepo(db *gorm.DB) *CourtRepo { return &CourtRepo{db: db} }

var _ CourtReader = (*CourtRepo)(nil)

// GetCourt returns the court with its ground and its slot template in
// insertion order.  ErrNotFound is returned when no court has the id.
func (r *CourtRepo) GetCourt(ctx context.Context, id uint64) (*model.Court, error) {
	var c model.Court
	err := r.db.WithContext(ctx).
		Preload("Ground").
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&c, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
