package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// UtilityBillFilter carries the query conditions for bill listings
type UtilityBillFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	Status     *BillStatus
	From       *time.Time
	To         *time.Time
}

// UtilityBillRepository persists utility bill aggregates
type UtilityBillRepository interface {
	Create(ctx context.Context, bill *UtilityBill) error
	FindByID(ctx context.Context, id uuid.UUID) (*UtilityBill, error)
	FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*UtilityBill, error)
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter UtilityBillFilter) ([]*UtilityBill, error)
	CountForOrg(ctx context.Context, organizationID uuid.UUID, filter UtilityBillFilter) (int64, error)
	// Save persists the aggregate with an optimistic-lock check on Version
	Save(ctx context.Context, bill *UtilityBill) error
	// MarkPosted flips the bill to POSTED and records the journal reference
	// in a single transaction so status and ledger link cannot diverge
	MarkPosted(ctx context.Context, bill *UtilityBill) error
}

// InvoiceRepository persists invoices and their payments
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	CreateBatch(ctx context.Context, invoices []*Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*Invoice, error)
	FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*Invoice, error)
	// ExistsByUtilityBill reports whether invoices were already generated
	// for the given bill, guarding generation against retries
	ExistsByUtilityBill(ctx context.Context, utilityBillID uuid.UUID) (bool, error)
	Save(ctx context.Context, invoice *Invoice) error
}
