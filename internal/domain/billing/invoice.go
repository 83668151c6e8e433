package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceType represents what the invoice bills for
type InvoiceType string

const (
	InvoiceTypeRent    InvoiceType = "RENT"
	InvoiceTypeUtility InvoiceType = "UTILITY"
	InvoiceTypeDeposit InvoiceType = "DEPOSIT"
	InvoiceTypeLateFee InvoiceType = "LATE_FEE"
	InvoiceTypeOther   InvoiceType = "OTHER"
)

// IsValid checks if the invoice type is valid
func (t InvoiceType) IsValid() bool {
	switch t {
	case InvoiceTypeRent, InvoiceTypeUtility, InvoiceTypeDeposit, InvoiceTypeLateFee, InvoiceTypeOther:
		return true
	}
	return false
}

// InvoiceStatus represents the settlement state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// PostingStatus tracks whether a document has been reflected in the ledger
type PostingStatus string

const (
	PostingStatusPending PostingStatus = "PENDING"
	PostingStatusPosted  PostingStatus = "POSTED"
	PostingStatusFailed  PostingStatus = "FAILED"
)

// Payment is a recorded payment against an invoice. Reversed payments stay
// on the record but are excluded from every paid-amount aggregation.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method        string          `gorm:"type:varchar(30);not null"`
	Reference     string          `gorm:"type:varchar(100)"`
	PaidOn        time.Time       `gorm:"not null"`
	Reversed      bool            `gorm:"not null;default:false"`
	ReversedAt    *time.Time
	ReverseReason string        `gorm:"type:varchar(500)"`
	PostingStatus PostingStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// Invoice is a billable claim against a lease.
// Invariant: Balance == TotalAmount - AmountPaid at all times, where
// AmountPaid counts only non-reversed payments.
type Invoice struct {
	shared.OrgAggregateRoot
	LeaseID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type           InvoiceType     `gorm:"type:varchar(20);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DueDate        time.Time       `gorm:"not null;index"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	UtilityBillID  *uuid.UUID      `gorm:"type:uuid;index"`
	PostingStatus  PostingStatus   `gorm:"type:varchar(20);not null;default:'PENDING'"`
	JournalEntryID *uuid.UUID      `gorm:"type:uuid"`
	Payments       []Payment       `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new invoice in PENDING
func NewInvoice(
	organizationID uuid.UUID,
	leaseID uuid.UUID,
	invoiceType InvoiceType,
	totalAmount decimal.Decimal,
	dueDate time.Time,
) (*Invoice, error) {
	if leaseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LEASE", "Lease ID cannot be empty")
	}
	if !invoiceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INVOICE_TYPE", fmt.Sprintf("Invoice type %s is not valid", invoiceType))
	}
	if totalAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	return &Invoice{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		LeaseID:          leaseID,
		Type:             invoiceType,
		TotalAmount:      totalAmount,
		AmountPaid:       decimal.Zero,
		Balance:          totalAmount,
		DueDate:          dueDate,
		Status:           InvoiceStatusPending,
		PostingStatus:    PostingStatusPending,
		Payments:         make([]Payment, 0),
	}, nil
}

// NewUtilityInvoice creates a UTILITY invoice back-referencing its source bill
func NewUtilityInvoice(
	organizationID uuid.UUID,
	leaseID uuid.UUID,
	amount decimal.Decimal,
	dueDate time.Time,
	utilityBillID uuid.UUID,
) (*Invoice, error) {
	invoice, err := NewInvoice(organizationID, leaseID, InvoiceTypeUtility, amount, dueDate)
	if err != nil {
		return nil, err
	}
	billID := utilityBillID
	invoice.UtilityBillID = &billID
	return invoice, nil
}

// recalculate restores the balance invariant from the payment rows
func (i *Invoice) recalculate() {
	paid := decimal.Zero
	for _, p := range i.Payments {
		if p.Reversed {
			continue
		}
		paid = paid.Add(p.Amount)
	}
	i.AmountPaid = paid
	i.Balance = i.TotalAmount.Sub(paid)

	switch {
	case i.Balance.LessThanOrEqual(decimal.Zero):
		i.Status = InvoiceStatusPaid
	case i.Status == InvoiceStatusPaid:
		// A reversal reopened the invoice
		i.Status = InvoiceStatusPending
	}
}

// ApplyPayment records a payment against the invoice
func (i *Invoice) ApplyPayment(amount decimal.Decimal, method, reference string, paidOn time.Time) (*Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(i.Balance) {
		return nil, shared.NewDomainError("OVERPAYMENT",
			fmt.Sprintf("Payment %s exceeds outstanding balance %s", amount.String(), i.Balance.String()))
	}
	if paidOn.IsZero() {
		paidOn = time.Now()
	}

	payment := Payment{
		ID:            uuid.New(),
		InvoiceID:     i.ID,
		Amount:        amount,
		Method:        method,
		Reference:     reference,
		PaidOn:        paidOn,
		PostingStatus: PostingStatusPending,
	}
	i.Payments = append(i.Payments, payment)
	i.recalculate()
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return &i.Payments[len(i.Payments)-1], nil
}

// ReversePayment flags a payment as reversed and restores the balance
func (i *Invoice) ReversePayment(paymentID uuid.UUID, reason string) error {
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reverse reason is required")
	}
	for idx := range i.Payments {
		if i.Payments[idx].ID != paymentID {
			continue
		}
		if i.Payments[idx].Reversed {
			return shared.NewDomainError("ALREADY_REVERSED", "Payment has already been reversed")
		}
		now := time.Now()
		i.Payments[idx].Reversed = true
		i.Payments[idx].ReversedAt = &now
		i.Payments[idx].ReverseReason = reason
		i.recalculate()
		i.UpdatedAt = now
		i.IncrementVersion()
		return nil
	}
	return shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found on this invoice")
}

// MarkPosted records the ledger reference. Re-posting an already posted
// invoice is rejected so retries cannot duplicate ledger entries.
func (i *Invoice) MarkPosted(journalEntryID uuid.UUID) error {
	if i.PostingStatus == PostingStatusPosted {
		return shared.NewDomainError("ALREADY_POSTED", "Invoice has already been posted to the ledger")
	}
	if journalEntryID == uuid.Nil {
		return shared.NewDomainError("INVALID_JOURNAL_ENTRY", "Journal entry ID is required")
	}
	entryID := journalEntryID
	i.PostingStatus = PostingStatusPosted
	i.JournalEntryID = &entryID
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// MarkPostingFailed records a failed posting attempt; the invoice stays retryable
func (i *Invoice) MarkPostingFailed() {
	if i.PostingStatus == PostingStatusPosted {
		return
	}
	i.PostingStatus = PostingStatusFailed
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// MarkOverdueIfDue flips an unpaid invoice past its due date to OVERDUE.
// Returns true when a write happened.
func (i *Invoice) MarkOverdueIfDue(now time.Time) bool {
	if i.Status != InvoiceStatusPending || !i.DueDate.Before(now) {
		return false
	}
	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = now
	i.IncrementVersion()
	return true
}

// IsSettled returns true when nothing is outstanding
func (i *Invoice) IsSettled() bool {
	return i.Balance.LessThanOrEqual(decimal.Zero)
}
