package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BillStatus represents the lifecycle status of a utility bill
type BillStatus string

const (
	BillStatusDraft          BillStatus = "DRAFT"           // Imported or entered, not yet allocated
	BillStatusProcessing     BillStatus = "PROCESSING"      // Allocation in progress
	BillStatusReviewRequired BillStatus = "REVIEW_REQUIRED" // Needs a human decision before approval
	BillStatusApproved       BillStatus = "APPROVED"        // Allocations cover the total, ready to post
	BillStatusPosted         BillStatus = "POSTED"          // Reflected in the ledger, frozen
	BillStatusRejected       BillStatus = "REJECTED"        // Discarded, no ledger entry
)

// billTransitions is the allowed transition table for utility bills
var billTransitions = map[BillStatus][]BillStatus{
	BillStatusDraft:          {BillStatusProcessing, BillStatusRejected},
	BillStatusProcessing:     {BillStatusReviewRequired, BillStatusApproved, BillStatusRejected},
	BillStatusReviewRequired: {BillStatusApproved, BillStatusRejected},
	BillStatusApproved:       {BillStatusPosted, BillStatusRejected},
	BillStatusPosted:         {},
	BillStatusRejected:       {},
}

// IsValid checks if the status is a valid BillStatus
func (s BillStatus) IsValid() bool {
	_, ok := billTransitions[s]
	return ok
}

// String returns the string representation of BillStatus
func (s BillStatus) String() string {
	return string(s)
}

// IsTerminal returns true for POSTED and REJECTED
func (s BillStatus) IsTerminal() bool {
	return s == BillStatusPosted || s == BillStatusRejected
}

// CanTransitionTo returns true if the target status is reachable from this one
func (s BillStatus) CanTransitionTo(target BillStatus) bool {
	for _, allowed := range billTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// SplitMethod represents how a bill total is divided across units
type SplitMethod string

const (
	SplitMethodEqual          SplitMethod = "EQUAL"
	SplitMethodOccupancyBased SplitMethod = "OCCUPANCY_BASED"
	SplitMethodSqFootage      SplitMethod = "SQ_FOOTAGE"
	SplitMethodSubMetered     SplitMethod = "SUB_METERED"
	SplitMethodCustomRatio    SplitMethod = "CUSTOM_RATIO"
	SplitMethodAIOptimized    SplitMethod = "AI_OPTIMIZED"
)

// IsValid checks if the split method is valid
func (m SplitMethod) IsValid() bool {
	switch m {
	case SplitMethodEqual, SplitMethodOccupancyBased, SplitMethodSqFootage,
		SplitMethodSubMetered, SplitMethodCustomRatio, SplitMethodAIOptimized:
		return true
	}
	return false
}

// ImportMethod represents how the bill entered the system
type ImportMethod string

const (
	ImportMethodManual      ImportMethod = "MANUAL"
	ImportMethodOCRUpload   ImportMethod = "OCR_UPLOAD"
	ImportMethodEmail       ImportMethod = "EMAIL"
	ImportMethodProviderAPI ImportMethod = "PROVIDER_API"
)

// RoundingTolerance is the maximum allowed difference between the bill total
// and the sum of its allocations.
var RoundingTolerance = decimal.NewFromFloat(0.01)

// UtilityAllocation is one unit's computed share of a bill
type UtilityAllocation struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	UtilityBillID uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Percentage    decimal.Decimal `gorm:"type:decimal(7,4);not null"`
}

// TableName returns the table name for GORM
func (UtilityAllocation) TableName() string {
	return "utility_allocations"
}

// AllocationInput describes a requested allocation before it is attached to a bill
type AllocationInput struct {
	UnitID     uuid.UUID
	Amount     decimal.Decimal
	Percentage decimal.Decimal
}

// UtilityBill is a provider invoice addressed to a property.
// Lifecycle: DRAFT -> PROCESSING -> {REVIEW_REQUIRED, APPROVED} -> {POSTED, REJECTED}.
// Once POSTED the record is frozen; every mutator asserts that first.
type UtilityBill struct {
	shared.OrgAggregateRoot
	PropertyID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProviderName   string              `gorm:"type:varchar(200);not null"`
	TotalAmount    decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	BillDate       time.Time           `gorm:"not null"`
	DueDate        time.Time           `gorm:"not null"`
	Status         BillStatus          `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	SplitMethod    SplitMethod         `gorm:"type:varchar(20);not null;default:'EQUAL'"`
	ImportMethod   ImportMethod        `gorm:"type:varchar(20);not null;default:'MANUAL'"`
	OCRConfidence  *decimal.Decimal    `gorm:"type:decimal(5,4)"`
	JournalEntryID *uuid.UUID          `gorm:"type:uuid;index"`
	AuditHash      string              `gorm:"type:varchar(64)"`
	Allocations    []UtilityAllocation `gorm:"foreignKey:UtilityBillID;references:ID"`
	ApprovedAt     *time.Time
	ApprovedBy     *uuid.UUID `gorm:"type:uuid"`
	PostedAt       *time.Time
	RejectedAt     *time.Time
	RejectReason   string `gorm:"type:varchar(500)"`
	ReviewReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (UtilityBill) TableName() string {
	return "utility_bills"
}

// NewUtilityBill creates a new utility bill in DRAFT
func NewUtilityBill(
	organizationID uuid.UUID,
	propertyID uuid.UUID,
	providerName string,
	totalAmount decimal.Decimal,
	billDate time.Time,
	dueDate time.Time,
	splitMethod SplitMethod,
	importMethod ImportMethod,
) (*UtilityBill, error) {
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError("PROPERTY_NOT_FOUND", "Property ID cannot be empty")
	}
	if providerName == "" {
		return nil, shared.NewDomainError("INVALID_PROVIDER", "Provider name cannot be empty")
	}
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Bill amount must be positive")
	}
	if billDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_BILL_DATE", "Bill date is required")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}
	if !splitMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_SPLIT_METHOD", fmt.Sprintf("Split method %s is not valid", splitMethod))
	}
	if importMethod == "" {
		importMethod = ImportMethodManual
	}

	bill := &UtilityBill{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		PropertyID:       propertyID,
		ProviderName:     providerName,
		TotalAmount:      totalAmount,
		BillDate:         billDate,
		DueDate:          dueDate,
		Status:           BillStatusDraft,
		SplitMethod:      splitMethod,
		ImportMethod:     importMethod,
		Allocations:      make([]UtilityAllocation, 0),
	}

	bill.AddDomainEvent(NewUtilityBillCreatedEvent(bill))

	return bill, nil
}

// ensureNotPosted is the terminal-state idempotency guard. Every mutator
// calls it first, unconditionally, so a second call to any mutator after
// posting fails with ALREADY_POSTED rather than corrupting state.
func (b *UtilityBill) ensureNotPosted() error {
	if b.Status == BillStatusPosted {
		return shared.NewDomainError("ALREADY_POSTED",
			fmt.Sprintf("Bill %s has been posted to the ledger and cannot be modified", b.ID))
	}
	return nil
}

// BeginProcessing moves the bill from DRAFT to PROCESSING
func (b *UtilityBill) BeginProcessing() error {
	if err := b.ensureNotPosted(); err != nil {
		return err
	}
	if !b.Status.CanTransitionTo(BillStatusProcessing) {
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Cannot begin processing bill in %s status", b.Status))
	}

	b.Status = BillStatusProcessing
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// RequireReview flags the bill for a human decision before approval
func (b *UtilityBill) RequireReview(reason string) error {
	if err := b.ensureNotPosted(); err != nil {
		return err
	}
	if !b.Status.CanTransitionTo(BillStatusReviewRequired) {
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Cannot flag bill for review in %s status", b.Status))
	}

	b.Status = BillStatusReviewRequired
	b.ReviewReason = reason
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// ReplaceAllocations sets the allocation rows for the bill.
// Allowed while the bill is PROCESSING or REVIEW_REQUIRED.
func (b *UtilityBill) ReplaceAllocations(inputs []AllocationInput) error {
	if err := b.ensureNotPosted(); err != nil {
		return err
	}
	if b.Status != BillStatusProcessing && b.Status != BillStatusReviewRequired {
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Cannot change allocations in %s status", b.Status))
	}
	if len(inputs) == 0 {
		return shared.NewDomainError("NO_ALLOCATIONS", "At least one allocation is required")
	}

	seen := make(map[uuid.UUID]bool, len(inputs))
	allocations := make([]UtilityAllocation, 0, len(inputs))
	for _, input := range inputs {
		if input.UnitID == uuid.Nil {
			return shared.NewDomainError("INVALID_UNIT", "Allocation unit ID cannot be empty")
		}
		if seen[input.UnitID] {
			return shared.NewDomainError("DUPLICATE_UNIT",
				fmt.Sprintf("Unit %s appears more than once in the allocation set", input.UnitID))
		}
		if input.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
		}
		seen[input.UnitID] = true
		allocations = append(allocations, UtilityAllocation{
			ID:            uuid.New(),
			UtilityBillID: b.ID,
			UnitID:        input.UnitID,
			Amount:        input.Amount,
			Percentage:    input.Percentage,
		})
	}

	b.Allocations = allocations
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// AllocatedTotal returns the sum of all allocation amounts
func (b *UtilityBill) AllocatedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, alloc := range b.Allocations {
		total = total.Add(alloc.Amount)
	}
	return total
}

// AllocationsCoverTotal returns true when the allocation sum matches the
// bill total within the rounding tolerance
func (b *UtilityBill) AllocationsCoverTotal() bool {
	gap := b.TotalAmount.Sub(b.AllocatedTotal()).Abs()
	return gap.LessThanOrEqual(RoundingTolerance)
}

// Approve moves the bill to APPROVED after the conservation check passes
func (b *UtilityBill) Approve(approvedBy uuid.UUID) error {
	if err := b.ensureNotPosted(); err != nil {
		return err
	}
	if !b.Status.CanTransitionTo(BillStatusApproved) {
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Cannot approve bill in %s status", b.Status))
	}
	if len(b.Allocations) == 0 {
		return shared.NewDomainError("NO_ALLOCATIONS", "Bill has no allocations to approve")
	}
	if !b.AllocationsCoverTotal() {
		return shared.NewDomainError("ALLOCATION_MISMATCH",
			fmt.Sprintf("Allocations sum to %s but bill total is %s",
				b.AllocatedTotal().String(), b.TotalAmount.String()))
	}

	now := time.Now()
	b.Status = BillStatusApproved
	b.ApprovedAt = &now
	if approvedBy != uuid.Nil {
		b.ApprovedBy = &approvedBy
	}
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewUtilityBillApprovedEvent(b))

	return nil
}

// Reject discards the bill. REJECTED is terminal and carries no ledger entry.
func (b *UtilityBill) Reject(reason string) error {
	if err := b.ensureNotPosted(); err != nil {
		return err
	}
	if !b.Status.CanTransitionTo(BillStatusRejected) {
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Cannot reject bill in %s status", b.Status))
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reject reason is required")
	}

	now := time.Now()
	b.Status = BillStatusRejected
	b.RejectedAt = &now
	b.RejectReason = reason
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewUtilityBillRejectedEvent(b))

	return nil
}

// MarkPosted freezes the bill after its journal entry has been created.
// The repository commits this flip together with the journal reference in
// a single atomic write.
func (b *UtilityBill) MarkPosted(journalEntryID uuid.UUID, auditHash string) error {
	if err := b.ensureNotPosted(); err != nil {
		return err
	}
	if b.Status != BillStatusApproved {
		return shared.NewDomainError("NOT_APPROVED",
			fmt.Sprintf("Cannot post bill in %s status", b.Status))
	}
	if len(b.Allocations) == 0 {
		return shared.NewDomainError("NO_ALLOCATIONS", "Bill has no allocations to post")
	}
	if journalEntryID == uuid.Nil {
		return shared.NewDomainError("INVALID_JOURNAL_ENTRY", "Journal entry ID is required")
	}

	now := time.Now()
	b.Status = BillStatusPosted
	b.JournalEntryID = &journalEntryID
	b.AuditHash = auditHash
	b.PostedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()

	b.AddDomainEvent(NewUtilityBillPostedEvent(b))

	return nil
}

// IsPosted returns true when the bill is frozen in the ledger
func (b *UtilityBill) IsPosted() bool {
	return b.Status == BillStatusPosted
}

// ComputeAllocationHash computes the tamper-evidence checksum over the
// allocation set. Rows are rendered as "unitID:amount:percentage", sorted
// lexicographically so the hash is insensitive to retrieval order, joined
// and hashed with SHA-256. Reproducible from the allocation rows alone.
func (b *UtilityBill) ComputeAllocationHash() string {
	parts := make([]string, 0, len(b.Allocations))
	for _, alloc := range b.Allocations {
		parts = append(parts, fmt.Sprintf("%s:%s:%s",
			alloc.UnitID, alloc.Amount.String(), alloc.Percentage.String()))
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
