package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PostRequest carries the lines of a financial event into the ledger
type PostRequest struct {
	OrganizationID uuid.UUID
	EntryDate      time.Time
	Reference      string
	Description    string
	Lines          []LineInput
}

// PostingService is the single point where money enters the books.
// It validates balance, resolves the organization's financial entity and
// appends the entry. Created entries are never mutated by any caller.
type PostingService struct {
	entityRepo  FinancialEntityRepository
	journalRepo JournalEntryRepository
	logger      *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(
	entityRepo FinancialEntityRepository,
	journalRepo JournalEntryRepository,
	logger *zap.Logger,
) *PostingService {
	return &PostingService{
		entityRepo:  entityRepo,
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// Post appends a balanced journal entry for the request.
// Missing financial entity surfaces as NO_FINANCIAL_ENTITY so callers can
// distinguish configuration failures from data errors; every other failure
// is wrapped as JOURNAL_FAILED with the underlying cause preserved.
func (s *PostingService) Post(ctx context.Context, req PostRequest) (*JournalEntry, error) {
	entity, err := s.entityRepo.FindByOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, shared.NewDomainError("JOURNAL_FAILED",
			fmt.Sprintf("Failed to resolve financial entity: %s", err.Error()))
	}
	if entity == nil || !entity.Active {
		return nil, shared.NewDomainError("NO_FINANCIAL_ENTITY",
			"Organization has no active financial entity configured for ledger posting")
	}

	entryNumber, err := s.journalRepo.GenerateEntryNumber(ctx, req.OrganizationID)
	if err != nil {
		return nil, shared.NewDomainError("JOURNAL_FAILED",
			fmt.Sprintf("Failed to generate entry number: %s", err.Error()))
	}

	entryDate := req.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now()
	}

	entry, err := NewJournalEntry(req.OrganizationID, entryNumber, entryDate, req.Reference, req.Description, req.Lines)
	if err != nil {
		// Validation failures (unbalanced, negative lines) keep their own codes
		return nil, err
	}

	if err := s.journalRepo.Create(ctx, entry); err != nil {
		return nil, shared.NewDomainError("JOURNAL_FAILED",
			fmt.Sprintf("Failed to persist journal entry: %s", err.Error()))
	}

	s.logger.Info("journal entry posted",
		zap.String("entry_id", entry.ID.String()),
		zap.String("entry_number", entry.EntryNumber),
		zap.String("reference", entry.Reference),
		zap.String("total_debit", entry.TotalDebits().String()),
		zap.Int("lines", len(entry.Lines)),
	)

	return entry, nil
}

// Reverse posts the correcting entry for an existing entry.
// History is never edited; the original stays in the ledger untouched.
func (s *PostingService) Reverse(ctx context.Context, organizationID, entryID uuid.UUID, reason string) (*JournalEntry, error) {
	original, err := s.journalRepo.FindByIDForOrg(ctx, organizationID, entryID)
	if err != nil {
		return nil, shared.NewDomainError("JOURNAL_FAILED",
			fmt.Sprintf("Failed to load original entry: %s", err.Error()))
	}
	if original == nil {
		return nil, shared.NewDomainError("ENTRY_NOT_FOUND", "Journal entry not found")
	}

	entryNumber, err := s.journalRepo.GenerateEntryNumber(ctx, organizationID)
	if err != nil {
		return nil, shared.NewDomainError("JOURNAL_FAILED",
			fmt.Sprintf("Failed to generate entry number: %s", err.Error()))
	}

	reversal, err := NewReversingEntry(original, entryNumber, time.Now(), reason)
	if err != nil {
		return nil, err
	}

	if err := s.journalRepo.Create(ctx, reversal); err != nil {
		return nil, shared.NewDomainError("JOURNAL_FAILED",
			fmt.Sprintf("Failed to persist reversing entry: %s", err.Error()))
	}

	s.logger.Info("journal entry reversed",
		zap.String("original_entry", original.EntryNumber),
		zap.String("reversal_entry", reversal.EntryNumber),
		zap.String("reason", reason),
	)

	return reversal, nil
}
