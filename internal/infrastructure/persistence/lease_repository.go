package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormLeaseRepository implements LeaseRepository using GORM
type GormLeaseRepository struct {
	db *gorm.DB
}

// NewGormLeaseRepository creates a new GormLeaseRepository
func NewGormLeaseRepository(db *gorm.DB) *GormLeaseRepository {
	return &GormLeaseRepository{db: db}
}

// Create persists a new lease
func (r *GormLeaseRepository) Create(ctx context.Context, lease *leasing.Lease) error {
	return r.db.WithContext(ctx).Create(lease).Error
}

// FindByID finds a lease by its ID
func (r *GormLeaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*leasing.Lease, error) {
	var lease leasing.Lease
	if err := r.db.WithContext(ctx).First(&lease, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lease, nil
}

// FindByIDForOrg finds a lease by ID within an organization
func (r *GormLeaseRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*leasing.Lease, error) {
	var lease leasing.Lease
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lease, nil
}

// FindAllForOrg finds leases for an organization matching the filter
func (r *GormLeaseRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter leasing.LeaseFilter) ([]*leasing.Lease, error) {
	var leases []*leasing.Lease
	query := r.db.WithContext(ctx).Model(&leasing.Lease{}).
		Where("organization_id = ?", organizationID)

	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.UnitID != nil {
		query = query.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, LeaseSortFields, "start_date")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("start_date DESC")
	}

	if err := query.Find(&leases).Error; err != nil {
		return nil, err
	}
	return leases, nil
}

// FindActiveByUnit returns the active lease on a unit, nil when vacant
func (r *GormLeaseRepository) FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*leasing.Lease, error) {
	var lease leasing.Lease
	if err := r.db.WithContext(ctx).
		Where("unit_id = ? AND status = ?", unitID, leasing.LeaseStatusActive).
		First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lease, nil
}

// Save persists the lease with an optimistic-lock check on Version
func (r *GormLeaseRepository) Save(ctx context.Context, lease *leasing.Lease) error {
	return r.saveLease(r.db.WithContext(ctx), lease)
}

// SaveWithReconciliation commits the lease status change together with the
// unit occupancy update and, when present, the listing removal in one
// transaction. A partially applied transition never persists.
func (r *GormLeaseRepository) SaveWithReconciliation(ctx context.Context, lease *leasing.Lease, unit *leasing.Unit, lst *listing.Listing) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.saveLease(tx, lease); err != nil {
			return err
		}

		result := tx.Model(&leasing.Unit{}).
			Where("id = ? AND version = ?", unit.ID, unit.Version-1).
			Updates(map[string]interface{}{
				"is_occupied":      unit.IsOccupied,
				"current_lease_id": unit.CurrentLeaseID,
				"version":          unit.Version,
				"updated_at":       unit.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if lst != nil {
			if err := tx.Delete(&listing.Listing{}, "id = ?", lst.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormLeaseRepository) saveLease(tx *gorm.DB, lease *leasing.Lease) error {
	result := tx.Model(&leasing.Lease{}).
		Where("id = ? AND version = ?", lease.ID, lease.Version-1).
		Updates(map[string]interface{}{
			"status":             lease.Status,
			"signed_at":          lease.SignedAt,
			"activated_at":       lease.ActivatedAt,
			"terminated_at":      lease.TerminatedAt,
			"termination_reason": lease.TerminationReason,
			"version":            lease.Version,
			"updated_at":         lease.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormLeaseRepository implements LeaseRepository
var _ leasing.LeaseRepository = (*GormLeaseRepository)(nil)
