package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormListingRepository implements ListingRepository using GORM
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// Create persists a new listing
func (r *GormListingRepository) Create(ctx context.Context, lst *listing.Listing) error {
	return r.db.WithContext(ctx).Create(lst).Error
}

// FindByID finds a listing by its ID
func (r *GormListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	var lst listing.Listing
	if err := r.db.WithContext(ctx).First(&lst, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lst, nil
}

// FindByIDForOrg finds a listing by ID within an organization
func (r *GormListingRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*listing.Listing, error) {
	var lst listing.Listing
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&lst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lst, nil
}

// FindByUnit returns the unit's listing, nil without error when absent
func (r *GormListingRepository) FindByUnit(ctx context.Context, unitID uuid.UUID) (*listing.Listing, error) {
	var lst listing.Listing
	if err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		First(&lst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lst, nil
}

// FindAllForOrg finds listings for an organization matching the filter
func (r *GormListingRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter listing.ListingFilter) ([]*listing.Listing, error) {
	var listings []*listing.Listing
	query := r.db.WithContext(ctx).Model(&listing.Listing{}).
		Where("organization_id = ?", organizationID)

	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, ListingSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	if err := query.Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindDueForActivation returns COMING_SOON listings whose availability date has passed
func (r *GormListingRepository) FindDueForActivation(ctx context.Context, now time.Time) ([]*listing.Listing, error) {
	var listings []*listing.Listing
	if err := r.db.WithContext(ctx).
		Where("status = ? AND availability_date <= ?", listing.ListingStatusComingSoon, now).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindExpiredAsOf returns non-EXPIRED listings whose expiration date has passed
func (r *GormListingRepository) FindExpiredAsOf(ctx context.Context, now time.Time) ([]*listing.Listing, error) {
	var listings []*listing.Listing
	if err := r.db.WithContext(ctx).
		Where("status <> ? AND expiration_date <= ?", listing.ListingStatusExpired, now).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindExpiringBefore returns listings that will expire before the cutoff
func (r *GormListingRepository) FindExpiringBefore(ctx context.Context, organizationID uuid.UUID, cutoff time.Time) ([]*listing.Listing, error) {
	var listings []*listing.Listing
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND status = ? AND expiration_date <= ?",
			organizationID, listing.ListingStatusActive, cutoff).
		Order("expiration_date ASC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// Save persists the listing with an optimistic-lock check on Version
func (r *GormListingRepository) Save(ctx context.Context, lst *listing.Listing) error {
	result := r.db.WithContext(ctx).Model(&listing.Listing{}).
		Where("id = ? AND version = ?", lst.ID, lst.Version-1).
		Updates(map[string]interface{}{
			"title":             lst.Title,
			"description":       lst.Description,
			"price":             lst.Price,
			"availability_date": lst.AvailabilityDate,
			"expiration_date":   lst.ExpirationDate,
			"status":            lst.Status,
			"version":           lst.Version,
			"updated_at":        lst.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete removes a listing
func (r *GormListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&listing.Listing{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormListingRepository implements ListingRepository
var _ listing.ListingRepository = (*GormListingRepository)(nil)
