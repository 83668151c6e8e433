package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create persists a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

// CreateBatch persists a batch of invoices in one transaction.
// Used by utility bill invoice generation so a partial batch never lands.
func (r *GormInvoiceRepository) CreateBatch(ctx context.Context, invoices []*billing.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&invoices).Error
	})
}

// FindByID finds an invoice by its ID, payments included
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForOrg finds an invoice by ID within an organization
func (r *GormInvoiceRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByLease finds all invoices for a lease
func (r *GormInvoiceRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("lease_id = ?", leaseID).
		Order("due_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// ExistsByUtilityBill reports whether invoices were already generated for the bill
func (r *GormInvoiceRepository) ExistsByUtilityBill(ctx context.Context, utilityBillID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		Where("utility_bill_id = ?", utilityBillID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save persists the invoice and its payments with an optimistic-lock check
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&billing.Invoice{}).
			Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
			Updates(map[string]interface{}{
				"status":           invoice.Status,
				"amount_paid":      invoice.AmountPaid,
				"balance":          invoice.Balance,
				"posting_status":   invoice.PostingStatus,
				"journal_entry_id": invoice.JournalEntryID,
				"version":          invoice.Version,
				"updated_at":       invoice.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		// Payment rows are append-or-flag: upsert keeps reversals in place
		for i := range invoice.Payments {
			if err := tx.Save(&invoice.Payments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
