package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormUtilityBillRepository implements UtilityBillRepository using GORM
type GormUtilityBillRepository struct {
	db *gorm.DB
}

// NewGormUtilityBillRepository creates a new GormUtilityBillRepository
func NewGormUtilityBillRepository(db *gorm.DB) *GormUtilityBillRepository {
	return &GormUtilityBillRepository{db: db}
}

// Create persists a new utility bill
func (r *GormUtilityBillRepository) Create(ctx context.Context, bill *billing.UtilityBill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

// FindByID finds a utility bill by its ID, allocations included
func (r *GormUtilityBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.UtilityBill, error) {
	var bill billing.UtilityBill
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		First(&bill, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

// FindByIDForOrg finds a utility bill by ID within an organization
func (r *GormUtilityBillRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*billing.UtilityBill, error) {
	var bill billing.UtilityBill
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &bill, nil
}

// FindAllForOrg finds utility bills for an organization matching the filter
func (r *GormUtilityBillRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.UtilityBillFilter) ([]*billing.UtilityBill, error) {
	var bills []*billing.UtilityBill
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&billing.UtilityBill{}).
			Preload("Allocations").
			Where("organization_id = ?", organizationID),
		filter,
	)

	if err := query.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// CountForOrg counts utility bills for an organization matching the filter
func (r *GormUtilityBillRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.UtilityBillFilter) (int64, error) {
	var count int64
	query := r.applyConditions(
		r.db.WithContext(ctx).Model(&billing.UtilityBill{}).
			Where("organization_id = ?", organizationID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists the aggregate with an optimistic-lock check on Version
func (r *GormUtilityBillRepository) Save(ctx context.Context, bill *billing.UtilityBill) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&billing.UtilityBill{}).
			Where("id = ? AND version = ?", bill.ID, bill.Version-1).
			Updates(map[string]interface{}{
				"status":         bill.Status,
				"split_method":   bill.SplitMethod,
				"ocr_confidence": bill.OCRConfidence,
				"approved_at":    bill.ApprovedAt,
				"approved_by":    bill.ApprovedBy,
				"rejected_at":    bill.RejectedAt,
				"reject_reason":  bill.RejectReason,
				"review_reason":  bill.ReviewReason,
				"version":        bill.Version,
				"updated_at":     bill.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		// Allocations are replaced wholesale; they only change pre-approval
		if err := tx.Where("utility_bill_id = ?", bill.ID).
			Delete(&billing.UtilityAllocation{}).Error; err != nil {
			return err
		}
		if len(bill.Allocations) > 0 {
			if err := tx.Create(&bill.Allocations).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkPosted flips the bill to POSTED and records the journal reference in a
// single transaction so status and ledger link cannot diverge.
func (r *GormUtilityBillRepository) MarkPosted(ctx context.Context, bill *billing.UtilityBill) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&billing.UtilityBill{}).
			Where("id = ? AND version = ? AND status = ?",
				bill.ID, bill.Version-1, billing.BillStatusApproved).
			Updates(map[string]interface{}{
				"status":           billing.BillStatusPosted,
				"journal_entry_id": bill.JournalEntryID,
				"audit_hash":       bill.AuditHash,
				"posted_at":        bill.PostedAt,
				"version":          bill.Version,
				"updated_at":       bill.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

func (r *GormUtilityBillRepository) applyFilter(query *gorm.DB, filter billing.UtilityBillFilter) *gorm.DB {
	query = r.applyConditions(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, UtilityBillSortFields, "bill_date")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("bill_date DESC, created_at DESC")
	}

	return query
}

func (r *GormUtilityBillRepository) applyConditions(query *gorm.DB, filter billing.UtilityBillFilter) *gorm.DB {
	if filter.PropertyID != nil {
		query = query.Where("property_id = ?", *filter.PropertyID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("bill_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("bill_date <= ?", *filter.To)
	}
	return query
}

// Ensure GormUtilityBillRepository implements UtilityBillRepository
var _ billing.UtilityBillRepository = (*GormUtilityBillRepository)(nil)
