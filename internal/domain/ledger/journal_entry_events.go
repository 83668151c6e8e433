package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EventTypeJournalEntryPosted identifies journal posting events on the bus
const EventTypeJournalEntryPosted = "JournalEntryPosted"

// JournalEntryPostedEvent is raised when a journal entry enters the ledger
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryID     uuid.UUID       `json:"entry_id"`
	EntryNumber string          `json:"entry_number"`
	EntryDate   time.Time       `json:"entry_date"`
	Reference   string          `json:"reference"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	LineCount   int             `json:"line_count"`
}

// EventType returns the event type name
func (e *JournalEntryPostedEvent) EventType() string {
	return EventTypeJournalEntryPosted
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(entry *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, "JournalEntry", entry.ID, entry.OrganizationID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		EntryDate:       entry.EntryDate,
		Reference:       entry.Reference,
		TotalDebit:      entry.TotalDebits(),
		TotalCredit:     entry.TotalCredits(),
		LineCount:       len(entry.Lines),
	}
}
