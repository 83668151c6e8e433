package billing

import (
	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type names for utility bill lifecycle events
const (
	EventTypeUtilityBillCreated  = "UtilityBillCreated"
	EventTypeUtilityBillApproved = "UtilityBillApproved"
	EventTypeUtilityBillPosted   = "UtilityBillPosted"
	EventTypeUtilityBillRejected = "UtilityBillRejected"
)

// UtilityBillCreatedEvent is raised when a bill enters the system
type UtilityBillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID       uuid.UUID       `json:"bill_id"`
	PropertyID   uuid.UUID       `json:"property_id"`
	ProviderName string          `json:"provider_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ImportMethod ImportMethod    `json:"import_method"`
}

// EventType returns the event type name
func (e *UtilityBillCreatedEvent) EventType() string {
	return EventTypeUtilityBillCreated
}

// NewUtilityBillCreatedEvent creates a new UtilityBillCreatedEvent
func NewUtilityBillCreatedEvent(bill *UtilityBill) *UtilityBillCreatedEvent {
	return &UtilityBillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUtilityBillCreated, "UtilityBill", bill.ID, bill.OrganizationID),
		BillID:          bill.ID,
		PropertyID:      bill.PropertyID,
		ProviderName:    bill.ProviderName,
		TotalAmount:     bill.TotalAmount,
		ImportMethod:    bill.ImportMethod,
	}
}

// UtilityBillApprovedEvent is raised when allocations cover the total and
// the bill becomes eligible for posting
type UtilityBillApprovedEvent struct {
	shared.BaseDomainEvent
	BillID          uuid.UUID       `json:"bill_id"`
	PropertyID      uuid.UUID       `json:"property_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	AllocationCount int             `json:"allocation_count"`
}

// EventType returns the event type name
func (e *UtilityBillApprovedEvent) EventType() string {
	return EventTypeUtilityBillApproved
}

// NewUtilityBillApprovedEvent creates a new UtilityBillApprovedEvent
func NewUtilityBillApprovedEvent(bill *UtilityBill) *UtilityBillApprovedEvent {
	return &UtilityBillApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUtilityBillApproved, "UtilityBill", bill.ID, bill.OrganizationID),
		BillID:          bill.ID,
		PropertyID:      bill.PropertyID,
		TotalAmount:     bill.TotalAmount,
		AllocationCount: len(bill.Allocations),
	}
}

// UtilityBillPostedEvent is raised when the bill is frozen in the ledger
type UtilityBillPostedEvent struct {
	shared.BaseDomainEvent
	BillID         uuid.UUID       `json:"bill_id"`
	PropertyID     uuid.UUID       `json:"property_id"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	JournalEntryID uuid.UUID       `json:"journal_entry_id"`
	AuditHash      string          `json:"audit_hash"`
}

// EventType returns the event type name
func (e *UtilityBillPostedEvent) EventType() string {
	return EventTypeUtilityBillPosted
}

// NewUtilityBillPostedEvent creates a new UtilityBillPostedEvent
func NewUtilityBillPostedEvent(bill *UtilityBill) *UtilityBillPostedEvent {
	var journalEntryID uuid.UUID
	if bill.JournalEntryID != nil {
		journalEntryID = *bill.JournalEntryID
	}
	return &UtilityBillPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUtilityBillPosted, "UtilityBill", bill.ID, bill.OrganizationID),
		BillID:          bill.ID,
		PropertyID:      bill.PropertyID,
		TotalAmount:     bill.TotalAmount,
		JournalEntryID:  journalEntryID,
		AuditHash:       bill.AuditHash,
	}
}

// UtilityBillRejectedEvent is raised when a bill is discarded without posting
type UtilityBillRejectedEvent struct {
	shared.BaseDomainEvent
	BillID       uuid.UUID `json:"bill_id"`
	PropertyID   uuid.UUID `json:"property_id"`
	RejectReason string    `json:"reject_reason"`
}

// EventType returns the event type name
func (e *UtilityBillRejectedEvent) EventType() string {
	return EventTypeUtilityBillRejected
}

// NewUtilityBillRejectedEvent creates a new UtilityBillRejectedEvent
func NewUtilityBillRejectedEvent(bill *UtilityBill) *UtilityBillRejectedEvent {
	return &UtilityBillRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUtilityBillRejected, "UtilityBill", bill.ID, bill.OrganizationID),
		BillID:          bill.ID,
		PropertyID:      bill.PropertyID,
		RejectReason:    bill.RejectReason,
	}
}
