package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// AuditAction is the kind of listing action being recorded
type AuditAction string

const (
	AuditActionCreate   AuditAction = "CREATE"
	AuditActionUpdate   AuditAction = "UPDATE"
	AuditActionRemove   AuditAction = "REMOVE"
	AuditActionSuspend  AuditAction = "SUSPEND"
	AuditActionActivate AuditAction = "ACTIVATE"
	AuditActionExpire   AuditAction = "EXPIRE"
)

// ListingAuditEntry is an append-only record of a listing action.
// Rows are write-once: no update or delete path exists.
type ListingAuditEntry struct {
	ID             uuid.UUID     `gorm:"type:uuid;primary_key"`
	OrganizationID uuid.UUID     `gorm:"type:uuid;not null;index"`
	UnitID         uuid.UUID     `gorm:"type:uuid;not null;index"`
	ListingID      *uuid.UUID    `gorm:"type:uuid;index"`
	Action         AuditAction   `gorm:"type:varchar(20);not null"`
	ActorID        uuid.UUID     `gorm:"type:uuid"`
	PreviousStatus ListingStatus `gorm:"type:varchar(20)"`
	NewStatus      ListingStatus `gorm:"type:varchar(20)"`
	Reason         string        `gorm:"type:varchar(500)"`
	Metadata       string        `gorm:"type:text"`
	CreatedAt      time.Time     `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ListingAuditEntry) TableName() string {
	return "listing_audit_entries"
}

// AuditInput describes one listing action for the audit trail
type AuditInput struct {
	OrganizationID uuid.UUID
	UnitID         uuid.UUID
	ListingID      *uuid.UUID
	Action         AuditAction
	ActorID        uuid.UUID
	PreviousStatus ListingStatus
	NewStatus      ListingStatus
	Reason         string
	Metadata       string
}

// NewListingAuditEntry creates an audit row from an input
func NewListingAuditEntry(input AuditInput) (*ListingAuditEntry, error) {
	if input.UnitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UNIT", "Audit entry requires a unit ID")
	}
	if input.Action == "" {
		return nil, shared.NewDomainError("INVALID_ACTION", "Audit entry requires an action")
	}

	return &ListingAuditEntry{
		ID:             uuid.New(),
		OrganizationID: input.OrganizationID,
		UnitID:         input.UnitID,
		ListingID:      input.ListingID,
		Action:         input.Action,
		ActorID:        input.ActorID,
		PreviousStatus: input.PreviousStatus,
		NewStatus:      input.NewStatus,
		Reason:         input.Reason,
		Metadata:       input.Metadata,
		CreatedAt:      time.Now(),
	}, nil
}

// AuditService records listing actions. Callers treat it fire-and-observe:
// a failed audit write is logged but never blocks the primary operation.
type AuditService interface {
	Record(ctx context.Context, input AuditInput)
}

// AuditRepository persists audit rows. Append-only.
type AuditRepository interface {
	Create(ctx context.Context, entry *ListingAuditEntry) error
	FindByUnit(ctx context.Context, unitID uuid.UUID, filter shared.Filter) ([]*ListingAuditEntry, error)
}
