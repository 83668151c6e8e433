package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormJournalEntryRepository implements JournalEntryRepository using GORM.
// Journal entries are append-only: there is no update or delete here.
type GormJournalEntryRepository struct {
	db *gorm.DB
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// Create persists a new journal entry with its lines in one transaction
func (r *GormJournalEntryRepository) Create(ctx context.Context, entry *ledger.JournalEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entry).Error
	})
}

// FindByID finds a journal entry by ID, lines included
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	var entry ledger.JournalEntry
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByIDForOrg finds a journal entry by ID for a specific organization
func (r *GormJournalEntryRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var entry ledger.JournalEntry
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("organization_id = ? AND id = ?", organizationID, id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByReference finds entries carrying the given reference
func (r *GormJournalEntryRepository) FindByReference(ctx context.Context, organizationID uuid.UUID, reference string) ([]ledger.JournalEntry, error) {
	var entries []ledger.JournalEntry
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("organization_id = ? AND reference = ?", organizationID, reference).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindAllForOrg finds journal entries for an organization with filtering
func (r *GormJournalEntryRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	var entries []ledger.JournalEntry
	query := r.applyConditions(
		r.db.WithContext(ctx).Model(&ledger.JournalEntry{}).
			Preload("Lines").
			Where("journal_entries.organization_id = ?", organizationID),
		filter,
	)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, JournalEntrySortFields, "entry_date")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("entry_date DESC, entry_number DESC")
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CountForOrg counts journal entries for an organization
func (r *GormJournalEntryRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter ledger.JournalEntryFilter) (int64, error) {
	var count int64
	query := r.applyConditions(
		r.db.WithContext(ctx).Model(&ledger.JournalEntry{}).
			Where("journal_entries.organization_id = ?", organizationID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateEntryNumber generates a sequential entry number of the form
// JE-YYYY-NNNNNN, scoped per organization and calendar year. Numbers come
// from an allocator row drawn with an atomic upsert, so concurrent postings
// each get a distinct value. A posting that fails after drawing leaves a
// gap in the sequence.
func (r *GormJournalEntryRepository) GenerateEntryNumber(ctx context.Context, organizationID uuid.UUID) (string, error) {
	year := time.Now().UTC().Year()

	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO journal_entry_sequences (organization_id, year, last_value)
		VALUES (?, ?, 1)
		ON CONFLICT (organization_id, year)
		DO UPDATE SET last_value = journal_entry_sequences.last_value + 1
		RETURNING last_value`,
		organizationID, year,
	).Scan(&next).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JE-%d-%06d", year, next), nil
}

func (r *GormJournalEntryRepository) applyConditions(query *gorm.DB, filter ledger.JournalEntryFilter) *gorm.DB {
	if filter.AccountCode != nil {
		query = query.Where(
			"EXISTS (SELECT 1 FROM journal_lines WHERE journal_lines.journal_entry_id = journal_entries.id AND journal_lines.account_code = ?)",
			*filter.AccountCode,
		)
	}
	if filter.Reference != nil {
		query = query.Where("reference = ?", *filter.Reference)
	}
	if filter.FromDate != nil {
		query = query.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("entry_date <= ?", *filter.ToDate)
	}
	return query
}

// Ensure GormJournalEntryRepository implements JournalEntryRepository
var _ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
