package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
)

// FinancialEntity is the ledger configuration for an organization.
// Posting requires one to exist; callers without a financial entity
// cannot enter money into the books.
type FinancialEntity struct {
	shared.OrgAggregateRoot
	Name         string               `gorm:"type:varchar(200);not null"`
	BaseCurrency valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	Active       bool                 `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (FinancialEntity) TableName() string {
	return "financial_entities"
}

// JournalEntryFilter defines filtering options for journal queries
type JournalEntryFilter struct {
	shared.Filter
	AccountCode *string
	Reference   *string
	FromDate    *time.Time
	ToDate      *time.Time
}

// JournalEntryRepository persists journal entries. Entries are append-only:
// there is deliberately no update or delete operation.
type JournalEntryRepository interface {
	// Create persists a new journal entry with its lines
	Create(ctx context.Context, entry *JournalEntry) error

	// FindByID finds a journal entry by ID, lines included
	FindByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)

	// FindByIDForOrg finds a journal entry by ID for a specific organization
	FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*JournalEntry, error)

	// FindByReference finds entries carrying the given reference
	FindByReference(ctx context.Context, organizationID uuid.UUID, reference string) ([]JournalEntry, error)

	// FindAllForOrg finds journal entries for an organization with filtering
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter JournalEntryFilter) ([]JournalEntry, error)

	// CountForOrg counts journal entries for an organization
	CountForOrg(ctx context.Context, organizationID uuid.UUID, filter JournalEntryFilter) (int64, error)

	// GenerateEntryNumber generates a unique entry number for an organization
	GenerateEntryNumber(ctx context.Context, organizationID uuid.UUID) (string, error)
}

// FinancialEntityRepository resolves the ledger configuration for an organization
type FinancialEntityRepository interface {
	// FindByOrganization returns the active financial entity, nil when absent
	FindByOrganization(ctx context.Context, organizationID uuid.UUID) (*FinancialEntity, error)

	// Save creates or updates a financial entity
	Save(ctx context.Context, entity *FinancialEntity) error
}
