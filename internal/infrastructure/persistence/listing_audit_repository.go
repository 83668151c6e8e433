package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormListingAuditRepository implements AuditRepository using GORM.
// Audit rows are append-only: there is no update or delete here.
type GormListingAuditRepository struct {
	db *gorm.DB
}

// NewGormListingAuditRepository creates a new GormListingAuditRepository
func NewGormListingAuditRepository(db *gorm.DB) *GormListingAuditRepository {
	return &GormListingAuditRepository{db: db}
}

// Create persists an audit row
func (r *GormListingAuditRepository) Create(ctx context.Context, entry *listing.ListingAuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByUnit returns the audit history of a unit, newest first
func (r *GormListingAuditRepository) FindByUnit(ctx context.Context, unitID uuid.UUID, filter shared.Filter) ([]*listing.ListingAuditEntry, error) {
	var entries []*listing.ListingAuditEntry
	query := r.db.WithContext(ctx).Model(&listing.ListingAuditEntry{}).
		Where("unit_id = ?", unitID).
		Order("created_at DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormListingAuditRepository implements AuditRepository
var _ listing.AuditRepository = (*GormListingAuditRepository)(nil)
