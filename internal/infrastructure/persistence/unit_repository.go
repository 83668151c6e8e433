package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormUnitRepository implements UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// Create persists a new unit
func (r *GormUnitRepository) Create(ctx context.Context, unit *leasing.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

// FindByID finds a unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*leasing.Unit, error) {
	var unit leasing.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindByIDForOrg finds a unit by ID within an organization
func (r *GormUnitRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*leasing.Unit, error) {
	var unit leasing.Unit
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

// FindByProperty finds all units of a property
func (r *GormUnitRepository) FindByProperty(ctx context.Context, propertyID uuid.UUID) ([]*leasing.Unit, error) {
	var units []*leasing.Unit
	if err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("unit_number ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// Save persists the unit with an optimistic-lock check on Version
func (r *GormUnitRepository) Save(ctx context.Context, unit *leasing.Unit) error {
	result := r.db.WithContext(ctx).Model(&leasing.Unit{}).
		Where("id = ? AND version = ?", unit.ID, unit.Version-1).
		Updates(map[string]interface{}{
			"bedrooms":         unit.Bedrooms,
			"bathrooms":        unit.Bathrooms,
			"square_footage":   unit.SquareFootage,
			"market_rent":      unit.MarketRent,
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
	return nil
}

// Ensure GormUnitRepository implements UnitRepository
var _ leasing.UnitRepository = (*GormUnitRepository)(nil)
