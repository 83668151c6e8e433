package leasing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LeaseStatus represents the lifecycle status of a lease
type LeaseStatus string

const (
	LeaseStatusDraft           LeaseStatus = "DRAFT"
	LeaseStatusPendingApproval LeaseStatus = "PENDING_APPROVAL"
	LeaseStatusApproved        LeaseStatus = "APPROVED"
	LeaseStatusSigned          LeaseStatus = "SIGNED"
	LeaseStatusActive          LeaseStatus = "ACTIVE"
	LeaseStatusExpired         LeaseStatus = "EXPIRED"
	LeaseStatusTerminated      LeaseStatus = "TERMINATED"
)

// leaseTransitions is the allowed transition table for leases
var leaseTransitions = map[LeaseStatus][]LeaseStatus{
	LeaseStatusDraft:           {LeaseStatusPendingApproval, LeaseStatusTerminated},
	LeaseStatusPendingApproval: {LeaseStatusApproved, LeaseStatusDraft, LeaseStatusTerminated},
	LeaseStatusApproved:        {LeaseStatusSigned, LeaseStatusTerminated},
	LeaseStatusSigned:          {LeaseStatusActive, LeaseStatusTerminated},
	LeaseStatusActive:          {LeaseStatusExpired, LeaseStatusTerminated},
	LeaseStatusExpired:         {},
	LeaseStatusTerminated:      {},
}

// IsValid checks if the status is a valid LeaseStatus
func (s LeaseStatus) IsValid() bool {
	_, ok := leaseTransitions[s]
	return ok
}

// String returns the string representation of LeaseStatus
func (s LeaseStatus) String() string {
	return string(s)
}

// IsTerminal returns true for EXPIRED and TERMINATED
func (s LeaseStatus) IsTerminal() bool {
	return s == LeaseStatusExpired || s == LeaseStatusTerminated
}

// CanTransitionTo returns true if the target status is reachable from this one
func (s LeaseStatus) CanTransitionTo(target LeaseStatus) bool {
	for _, allowed := range leaseTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Lease binds a tenant to a unit for a period at an agreed rent
type Lease struct {
	shared.OrgAggregateRoot
	PropertyID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantPartyID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	StartDate         time.Time       `gorm:"not null"`
	EndDate           time.Time       `gorm:"not null;index"`
	RentAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DepositAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status            LeaseStatus     `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	SignedAt          *time.Time
	ActivatedAt       *time.Time
	TerminatedAt      *time.Time
	TerminationReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Lease) TableName() string {
	return "leases"
}

// NewLease creates a new lease in DRAFT
func NewLease(
	organizationID uuid.UUID,
	propertyID uuid.UUID,
	unitID uuid.UUID,
	tenantPartyID uuid.UUID,
	startDate time.Time,
	endDate time.Time,
	rentAmount decimal.Decimal,
	depositAmount decimal.Decimal,
) (*Lease, error) {
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError("PROPERTY_NOT_FOUND", "Property ID cannot be empty")
	}
	if unitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	if tenantPartyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if startDate.IsZero() || endDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Lease start and end dates are required")
	}
	if !endDate.After(startDate) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Lease end date must be after the start date")
	}
	if rentAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_RENT", "Rent amount must be positive")
	}
	if depositAmount.LessThan(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_DEPOSIT", "Deposit amount cannot be negative")
	}

	return &Lease{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		PropertyID:       propertyID,
		UnitID:           unitID,
		TenantPartyID:    tenantPartyID,
		StartDate:        startDate,
		EndDate:          endDate,
		RentAmount:       rentAmount,
		DepositAmount:    depositAmount,
		Status:           LeaseStatusDraft,
	}, nil
}

// transition applies a status change after checking the transition table
func (l *Lease) transition(target LeaseStatus) error {
	if !l.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION",
			fmt.Sprintf("Cannot transition lease from %s to %s", l.Status, target))
	}
	l.Status = target
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}

// SubmitForApproval moves the lease out of DRAFT
func (l *Lease) SubmitForApproval() error {
	return l.transition(LeaseStatusPendingApproval)
}

// Approve accepts the lease terms
func (l *Lease) Approve() error {
	return l.transition(LeaseStatusApproved)
}

// ReturnToDraft sends the lease back for edits
func (l *Lease) ReturnToDraft() error {
	return l.transition(LeaseStatusDraft)
}

// Sign records tenant signature on an approved lease
func (l *Lease) Sign() error {
	if err := l.transition(LeaseStatusSigned); err != nil {
		return err
	}
	now := time.Now()
	l.SignedAt = &now
	l.AddDomainEvent(NewLeaseSignedEvent(l))
	return nil
}

// Activate puts the lease in force. The reconciler occupies the unit and
// removes its listing in the same transaction.
func (l *Lease) Activate() error {
	if err := l.transition(LeaseStatusActive); err != nil {
		return err
	}
	now := time.Now()
	l.ActivatedAt = &now
	l.AddDomainEvent(NewLeaseActivatedEvent(l))
	return nil
}

// Expire ends the lease at its natural end. Terminal.
func (l *Lease) Expire() error {
	if err := l.transition(LeaseStatusExpired); err != nil {
		return err
	}
	l.AddDomainEvent(NewLeaseEndedEvent(l, LeaseStatusExpired, ""))
	return nil
}

// Terminate ends the lease early. Terminal.
func (l *Lease) Terminate(reason string) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Termination reason is required")
	}
	if err := l.transition(LeaseStatusTerminated); err != nil {
		return err
	}
	now := time.Now()
	l.TerminatedAt = &now
	l.TerminationReason = reason
	l.AddDomainEvent(NewLeaseEndedEvent(l, LeaseStatusTerminated, reason))
	return nil
}

// IsActive returns true while the lease is in force
func (l *Lease) IsActive() bool {
	return l.Status == LeaseStatusActive
}
