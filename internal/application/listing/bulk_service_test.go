package listing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newBulkFixture() (*BulkService, *listingFixture) {
	f := newListingFixture()
	bulk := NewBulkService(f.service, f.listingRepo, zap.NewNop())
	return bulk, f
}

// =============================================================================
// Batch Validation Tests
// =============================================================================

func TestBulkUpdateListings_EmptyBatch(t *testing.T) {
	bulk, f := newBulkFixture()

	_, err := bulk.BulkUpdateListings(context.Background(), f.orgID, f.actorID, nil)
	assertDomainCode(t, err, "INVALID_INPUT")
}

func TestBulkUpdateListings_BatchTooLarge(t *testing.T) {
	bulk, f := newBulkFixture()

	operations := make([]BulkOperation, MaxBulkBatchSize+1)
	for i := range operations {
		operations[i] = BulkOperation{UnitID: uuid.New(), Action: BulkActionSuspend}
	}

	_, err := bulk.BulkUpdateListings(context.Background(), f.orgID, f.actorID, operations)
	assertDomainCode(t, err, "BATCH_TOO_LARGE")
}

// =============================================================================
// Per-Item Isolation Tests
// =============================================================================

func TestBulkUpdateListings_IsolationAndAccounting(t *testing.T) {
	bulk, f := newBulkFixture()

	// Three units: one suspendable listing, one with no listing, one LIST
	// action missing its data. Exactly one succeeds.
	okUnit := uuid.New()
	missingUnit := uuid.New()
	noDataUnit := uuid.New()

	okListing := f.activeListing(t, okUnit)
	f.listingRepo.On("FindByUnit", mock.Anything, okUnit).Return(okListing, nil)
	f.listingRepo.On("FindByIDForOrg", mock.Anything, okListing.ID, f.orgID).Return(okListing, nil)
	f.listingRepo.On("Save", mock.Anything, okListing).Return(nil)
	f.listingRepo.On("FindByUnit", mock.Anything, missingUnit).Return(nil, nil)
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	operations := []BulkOperation{
		{UnitID: okUnit, Action: BulkActionSuspend, Reason: "maintenance window"},
		{UnitID: missingUnit, Action: BulkActionSuspend},
		{UnitID: noDataUnit, Action: BulkActionList, ListingData: nil},
	}

	result, err := bulk.BulkUpdateListings(context.Background(), f.orgID, f.actorID, operations)
	assert.NoError(t, err)

	// succeeded + failed == total, every unit in exactly one list
	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 1, result.Summary.Succeeded)
	assert.Equal(t, 2, result.Summary.Failed)
	assert.Equal(t, result.Summary.Total, result.Summary.Succeeded+result.Summary.Failed)

	assert.Equal(t, []uuid.UUID{okUnit}, result.Successful)
	assert.Len(t, result.Failed, 2)

	seen := map[uuid.UUID]bool{okUnit: true}
	for _, failure := range result.Failed {
		assert.False(t, seen[failure.UnitID], "unit appears in both lists")
		seen[failure.UnitID] = true
	}
	assert.True(t, seen[missingUnit])
	assert.True(t, seen[noDataUnit])

	// The successful unit's record actually changed
	assert.Equal(t, listing.ListingStatusSuspended, okListing.Status)
}

func TestBulkUpdateListings_ListWithoutDataFailsPerItem(t *testing.T) {
	bulk, f := newBulkFixture()
	unitID := uuid.New()

	result, err := bulk.BulkUpdateListings(context.Background(), f.orgID, f.actorID, []BulkOperation{
		{UnitID: unitID, Action: BulkActionList},
	})

	// The batch itself succeeds; the item carries the explicit error
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Summary.Failed)
	assert.Contains(t, result.Failed[0].Error, "listing data required")
}

func TestBulkUpdateListings_EarlyFailureDoesNotStopLaterItems(t *testing.T) {
	bulk, f := newBulkFixture()

	badUnit := uuid.New()
	goodUnit := uuid.New()
	goodListing := f.activeListing(t, goodUnit)

	f.listingRepo.On("FindByUnit", mock.Anything, badUnit).Return(nil, nil)
	f.listingRepo.On("FindByUnit", mock.Anything, goodUnit).Return(goodListing, nil)
	f.listingRepo.On("FindByIDForOrg", mock.Anything, goodListing.ID, f.orgID).Return(goodListing, nil)
	f.listingRepo.On("Save", mock.Anything, goodListing).Return(nil)
	f.auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := bulk.BulkUpdateListings(context.Background(), f.orgID, f.actorID, []BulkOperation{
		{UnitID: badUnit, Action: BulkActionSuspend},
		{UnitID: goodUnit, Action: BulkActionSuspend, Reason: "seasonal"},
	})

	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{goodUnit}, result.Successful)
	assert.Equal(t, listing.ListingStatusSuspended, goodListing.Status)
}
