package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormFinancialEntityRepository implements FinancialEntityRepository using GORM
type GormFinancialEntityRepository struct {
	db *gorm.DB
}

// NewGormFinancialEntityRepository creates a new GormFinancialEntityRepository
func NewGormFinancialEntityRepository(db *gorm.DB) *GormFinancialEntityRepository {
	return &GormFinancialEntityRepository{db: db}
}

// FindByOrganization returns the active financial entity, nil when absent.
// Absence is not an error: callers treat a missing entity as "cannot post".
func (r *GormFinancialEntityRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID) (*ledger.FinancialEntity, error) {
	var entity ledger.FinancialEntity
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND active = ?", organizationID, true).
		First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Save creates or updates a financial entity
func (r *GormFinancialEntityRepository) Save(ctx context.Context, entity *ledger.FinancialEntity) error {
	return r.db.WithContext(ctx).Save(entity).Error
}

// Ensure GormFinancialEntityRepository implements FinancialEntityRepository
var _ ledger.FinancialEntityRepository = (*GormFinancialEntityRepository)(nil)
