package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Chart-of-accounts codes used by the posting callers. Remapping the chart
// is a configuration concern outside this core.
const (
	AccountUtilityExpense  = "6100"
	AccountAccountsPayable = "2000"
	AccountRentReceivable  = "1200"
	AccountRentalIncome    = "4000"
)

// JournalLine is a single debit or credit line within a journal entry.
// Dimension tags attribute the line to a property, lease or tenant party.
type JournalLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	JournalEntryID uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode    string          `gorm:"type:varchar(20);not null;index"`
	Debit          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Credit         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PropertyID     *uuid.UUID      `gorm:"type:uuid;index"`
	LeaseID        *uuid.UUID      `gorm:"type:uuid;index"`
	TenantPartyID  *uuid.UUID      `gorm:"type:uuid;index"`
	Memo           string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalLine) TableName() string {
	return "journal_lines"
}

// LineInput describes a requested journal line before the entry is built
type LineInput struct {
	AccountCode   string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	PropertyID    *uuid.UUID
	LeaseID       *uuid.UUID
	TenantPartyID *uuid.UUID
	Memo          string
}

// JournalEntry is an immutable, balanced set of debit/credit lines.
// Once created an entry is never edited; corrections are posted as
// reversing entries.
type JournalEntry struct {
	shared.OrgAggregateRoot
	EntryNumber string        `gorm:"type:varchar(50);not null;uniqueIndex:idx_journal_org_number,priority:2"`
	EntryDate   time.Time     `gorm:"not null;index"`
	Reference   string        `gorm:"type:varchar(100);index"`
	Description string        `gorm:"type:varchar(500)"`
	Lines       []JournalLine `gorm:"foreignKey:JournalEntryID;references:ID"`
	ReversesID  *uuid.UUID    `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// NewJournalEntry creates a balanced journal entry.
// It rejects empty line sets, negative line amounts and any entry where
// the debit total differs from the credit total.
func NewJournalEntry(
	organizationID uuid.UUID,
	entryNumber string,
	entryDate time.Time,
	reference string,
	description string,
	lines []LineInput,
) (*JournalEntry, error) {
	if entryNumber == "" {
		return nil, shared.NewDomainError("INVALID_ENTRY_NUMBER", "Entry number cannot be empty")
	}
	if entryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ENTRY_DATE", "Entry date is required")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("NO_LINES", "Journal entry requires at least one line")
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range lines {
		if line.AccountCode == "" {
			return nil, shared.NewDomainError("INVALID_ACCOUNT", fmt.Sprintf("Line %d is missing an account code", i+1))
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return nil, shared.NewDomainError("NEGATIVE_LINE", fmt.Sprintf("Line %d has a negative amount", i+1))
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, shared.NewDomainError("UNBALANCED_ENTRY",
			fmt.Sprintf("Debits %s do not equal credits %s", totalDebit.String(), totalCredit.String()))
	}

	entry := &JournalEntry{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		EntryNumber:      entryNumber,
		EntryDate:        entryDate,
		Reference:        reference,
		Description:      description,
		Lines:            make([]JournalLine, 0, len(lines)),
	}
	for _, line := range lines {
		entry.Lines = append(entry.Lines, JournalLine{
			ID:             uuid.New(),
			JournalEntryID: entry.ID,
			AccountCode:    line.AccountCode,
			Debit:          line.Debit,
			Credit:         line.Credit,
			PropertyID:     line.PropertyID,
			LeaseID:        line.LeaseID,
			TenantPartyID:  line.TenantPartyID,
			Memo:           line.Memo,
		})
	}

	entry.AddDomainEvent(NewJournalEntryPostedEvent(entry))

	return entry, nil
}

// NewReversingEntry builds the correction entry for an existing entry by
// swapping every line's debit and credit. The original entry is untouched.
func NewReversingEntry(original *JournalEntry, entryNumber string, entryDate time.Time, reason string) (*JournalEntry, error) {
	if original == nil {
		return nil, shared.NewDomainError("INVALID_ENTRY", "Original entry is required")
	}

	lines := make([]LineInput, 0, len(original.Lines))
	for _, line := range original.Lines {
		lines = append(lines, LineInput{
			AccountCode:   line.AccountCode,
			Debit:         line.Credit,
			Credit:        line.Debit,
			PropertyID:    line.PropertyID,
			LeaseID:       line.LeaseID,
			TenantPartyID: line.TenantPartyID,
			Memo:          line.Memo,
		})
	}

	entry, err := NewJournalEntry(
		original.OrganizationID,
		entryNumber,
		entryDate,
		original.Reference,
		fmt.Sprintf("Reversal of %s: %s", original.EntryNumber, reason),
		lines,
	)
	if err != nil {
		return nil, err
	}
	originalID := original.ID
	entry.ReversesID = &originalID
	return entry, nil
}

// TotalDebits returns the sum of all debit amounts
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Debit)
	}
	return total
}

// TotalCredits returns the sum of all credit amounts
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, line := range e.Lines {
		total = total.Add(line.Credit)
	}
	return total
}

// IsBalanced returns true when debit and credit totals match
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebits().Equal(e.TotalCredits())
}

// IsReversal returns true when this entry reverses another entry
func (e *JournalEntry) IsReversal() bool {
	return e.ReversesID != nil
}
