package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BulkAction is an operation applied to one unit in a batch
type BulkAction string

const (
	BulkActionList     BulkAction = "LIST"
	BulkActionUnlist   BulkAction = "UNLIST"
	BulkActionSuspend  BulkAction = "SUSPEND"
	BulkActionActivate BulkAction = "ACTIVATE"
)

// MaxBulkBatchSize caps the number of operations accepted in one batch
const MaxBulkBatchSize = 50

// BulkOperation is one per-unit operation within a batch
type BulkOperation struct {
	UnitID      uuid.UUID
	Action      BulkAction
	ListingData *listing.CreateParams
	Reason      string
}

// BulkItemFailure records why one unit's operation failed
type BulkItemFailure struct {
	UnitID uuid.UUID `json:"unit_id"`
	Error  string    `json:"error"`
}

// BulkSummary is the count accounting for a batch
type BulkSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BulkResult reports the batch outcome. Every input unit appears in exactly
// one of the two lists and Succeeded+Failed always equals Total.
type BulkResult struct {
	Successful []uuid.UUID       `json:"successful"`
	Failed     []BulkItemFailure `json:"failed"`
	Summary    BulkSummary       `json:"summary"`
}

// BulkService applies a listing operation across many units with per-item
// isolation: one unit's failure never prevents, rolls back or alters the
// outcome of any other unit in the batch.
type BulkService struct {
	listings *ListingService
	repo     listing.ListingRepository
	logger   *zap.Logger
}

// NewBulkService creates a new BulkService
func NewBulkService(listings *ListingService, repo listing.ListingRepository, logger *zap.Logger) *BulkService {
	return &BulkService{listings: listings, repo: repo, logger: logger}
}

// BulkUpdateListings runs the batch sequentially, isolating each item
func (s *BulkService) BulkUpdateListings(ctx context.Context, organizationID, actorID uuid.UUID, operations []BulkOperation) (*BulkResult, error) {
	if len(operations) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Batch contains no operations")
	}
	if len(operations) > MaxBulkBatchSize {
		return nil, shared.NewDomainError("BATCH_TOO_LARGE", "Batch exceeds the maximum of 50 operations")
	}

	result := &BulkResult{
		Successful: make([]uuid.UUID, 0, len(operations)),
		Failed:     make([]BulkItemFailure, 0),
	}

	for _, op := range operations {
		if err := s.applyOne(ctx, organizationID, actorID, op); err != nil {
			result.Failed = append(result.Failed, BulkItemFailure{
				UnitID: op.UnitID,
				Error:  err.Error(),
			})
			continue
		}
		result.Successful = append(result.Successful, op.UnitID)
	}

	result.Summary = BulkSummary{
		Total:     len(operations),
		Succeeded: len(result.Successful),
		Failed:    len(result.Failed),
	}

	s.logger.Info("bulk listing update finished",
		zap.Int("total", result.Summary.Total),
		zap.Int("succeeded", result.Summary.Succeeded),
		zap.Int("failed", result.Summary.Failed))

	return result, nil
}

// applyOne executes a single operation; any error stays with this item
func (s *BulkService) applyOne(ctx context.Context, organizationID, actorID uuid.UUID, op BulkOperation) error {
	switch op.Action {
	case BulkActionList:
		if op.ListingData == nil {
			return shared.NewDomainError("LISTING_DATA_REQUIRED", "LIST action requires listing data")
		}
		_, err := s.listings.CreateListing(ctx, organizationID, op.UnitID, actorID, *op.ListingData)
		return err

	case BulkActionUnlist:
		lst, err := s.findUnitListing(ctx, op.UnitID)
		if err != nil {
			return err
		}
		return s.listings.RemoveListing(ctx, lst.ID, organizationID, actorID, op.Reason)

	case BulkActionSuspend:
		lst, err := s.findUnitListing(ctx, op.UnitID)
		if err != nil {
			return err
		}
		_, err = s.listings.UpdateListingStatus(ctx, lst.ID, organizationID, actorID, listing.ListingStatusSuspended, op.Reason)
		return err

	case BulkActionActivate:
		lst, err := s.findUnitListing(ctx, op.UnitID)
		if err != nil {
			return err
		}
		_, err = s.listings.UpdateListingStatus(ctx, lst.ID, organizationID, actorID, listing.ListingStatusActive, op.Reason)
		return err

	default:
		return shared.NewDomainError("INVALID_ACTION", "Unknown bulk action")
	}
}

// findUnitListing resolves the unit's listing or fails with NOT_FOUND
func (s *BulkService) findUnitListing(ctx context.Context, unitID uuid.UUID) (*listing.Listing, error) {
	lst, err := s.repo.FindByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if lst == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Unit has no listing")
	}
	return lst, nil
}
