package leasing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockLeaseRepository is a mock implementation of leasing.LeaseRepository
type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) Create(ctx context.Context, lease *leasing.Lease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}

func (m *MockLeaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*leasing.Lease, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Lease), args.Error(1)
}

func (m *MockLeaseRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*leasing.Lease, error) {
	args := m.Called(ctx, id, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Lease), args.Error(1)
}

func (m *MockLeaseRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter leasing.LeaseFilter) ([]*leasing.Lease, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]*leasing.Lease), args.Error(1)
}

func (m *MockLeaseRepository) FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*leasing.Lease, error) {
	args := m.Called(ctx, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Lease), args.Error(1)
}

func (m *MockLeaseRepository) Save(ctx context.Context, lease *leasing.Lease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}

func (m *MockLeaseRepository) SaveWithReconciliation(ctx context.Context, lease *leasing.Lease, unit *leasing.Unit, lst *listing.Listing) error {
	args := m.Called(ctx, lease, unit, lst)
	return args.Error(0)
}

// MockUnitRepository is a mock implementation of leasing.UnitRepository
type MockUnitRepository struct {
	mock.Mock
}

func (m *MockUnitRepository) Create(ctx context.Context, unit *leasing.Unit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*leasing.Unit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Unit), args.Error(1)
}

func (m *MockUnitRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*leasing.Unit, error) {
	args := m.Called(ctx, id, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*leasing.Unit), args.Error(1)
}

func (m *MockUnitRepository) FindByProperty(ctx context.Context, propertyID uuid.UUID) ([]*leasing.Unit, error) {
	args := m.Called(ctx, propertyID)
	return args.Get(0).([]*leasing.Unit), args.Error(1)
}

func (m *MockUnitRepository) Save(ctx context.Context, unit *leasing.Unit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

// MockListingRepository is a mock implementation of listing.ListingRepository
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) Create(ctx context.Context, lst *listing.Listing) error {
	args := m.Called(ctx, lst)
	return args.Error(0)
}

func (m *MockListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, id, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindByUnit(ctx context.Context, unitID uuid.UUID) (*listing.Listing, error) {
	args := m.Called(ctx, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter listing.ListingFilter) ([]*listing.Listing, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindDueForActivation(ctx context.Context, now time.Time) ([]*listing.Listing, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindExpiredAsOf(ctx context.Context, now time.Time) ([]*listing.Listing, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) FindExpiringBefore(ctx context.Context, organizationID uuid.UUID, cutoff time.Time) ([]*listing.Listing, error) {
	args := m.Called(ctx, organizationID, cutoff)
	return args.Get(0).([]*listing.Listing), args.Error(1)
}

func (m *MockListingRepository) Save(ctx context.Context, lst *listing.Listing) error {
	args := m.Called(ctx, lst)
	return args.Error(0)
}

func (m *MockListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// =============================================================================
// Test Fixtures
// =============================================================================

type leaseFixture struct {
	service     *LeaseService
	leaseRepo   *MockLeaseRepository
	unitRepo    *MockUnitRepository
	listingRepo *MockListingRepository
	eventBus    *MockEventPublisher
	orgID       uuid.UUID
}

func newLeaseFixture() *leaseFixture {
	f := &leaseFixture{
		leaseRepo:   new(MockLeaseRepository),
		unitRepo:    new(MockUnitRepository),
		listingRepo: new(MockListingRepository),
		eventBus:    new(MockEventPublisher),
		orgID:       uuid.New(),
	}
	f.service = NewLeaseService(f.leaseRepo, f.unitRepo, f.listingRepo, f.eventBus, zap.NewNop())
	return f
}

func (f *leaseFixture) signedLease(t *testing.T, unitID uuid.UUID) *leasing.Lease {
	t.Helper()
	lease, err := leasing.NewLease(
		f.orgID, uuid.New(), unitID, uuid.New(),
		time.Now(), time.Now().AddDate(1, 0, 0),
		decimal.NewFromInt(1500), decimal.NewFromInt(1500),
	)
	assert.NoError(t, err)
	assert.NoError(t, lease.SubmitForApproval())
	assert.NoError(t, lease.Approve())
	assert.NoError(t, lease.Sign())
	lease.ClearDomainEvents()
	return lease
}

func (f *leaseFixture) unit(t *testing.T, unitID uuid.UUID) *leasing.Unit {
	t.Helper()
	unit, err := leasing.NewUnit(f.orgID, uuid.New(), "5D", 2, decimal.NewFromInt(1), 800, decimal.NewFromInt(1500))
	assert.NoError(t, err)
	unit.ID = unitID
	return unit
}

func (f *leaseFixture) activeListing(t *testing.T, unitID uuid.UUID) *listing.Listing {
	t.Helper()
	lst, err := listing.NewListing(f.orgID, listing.UnitFacts{
		UnitID: unitID, PropertyID: uuid.New(), UnitNumber: "5D",
		Bedrooms: 2, Bathrooms: decimal.NewFromInt(1), MarketRent: decimal.NewFromInt(1500),
	}, listing.CreateParams{}, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, lst.TransitionTo(listing.ListingStatusActive, "published"))
	lst.ClearDomainEvents()
	return lst
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	domainErr, ok := err.(*shared.DomainError)
	assert.True(t, ok, "expected a domain error, got %T", err)
	assert.Equal(t, code, domainErr.Code)
}

// =============================================================================
// Activation Reconciliation Tests
// =============================================================================

func TestChangeLeaseStatus_ActivateOccupiesUnitAndRemovesListing(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease := f.signedLease(t, unitID)
	unit := f.unit(t, unitID)
	lst := f.activeListing(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.unitRepo.On("FindByID", mock.Anything, unitID).Return(unit, nil)
	f.listingRepo.On("FindByUnit", mock.Anything, unitID).Return(lst, nil)
	f.leaseRepo.On("SaveWithReconciliation", mock.Anything, lease, unit, lst).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusActive, "")
	assert.NoError(t, err)
	assert.Equal(t, leasing.LeaseStatusActive, result.Status)
	assert.True(t, unit.IsOccupied)
	assert.Equal(t, lease.ID, *unit.CurrentLeaseID)

	// Occupancy flip and listing removal rode in the same repository call
	f.leaseRepo.AssertCalled(t, "SaveWithReconciliation", mock.Anything, lease, unit, lst)
}

func TestChangeLeaseStatus_ActivateWithoutListing(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease := f.signedLease(t, unitID)
	unit := f.unit(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.unitRepo.On("FindByID", mock.Anything, unitID).Return(unit, nil)
	f.listingRepo.On("FindByUnit", mock.Anything, unitID).Return(nil, nil)
	f.leaseRepo.On("SaveWithReconciliation", mock.Anything, lease, unit, (*listing.Listing)(nil)).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusActive, "")
	assert.NoError(t, err)
	assert.Equal(t, leasing.LeaseStatusActive, result.Status)
	assert.True(t, unit.IsOccupied)
}

func TestChangeLeaseStatus_ActivateListingLookupFailureContinues(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease := f.signedLease(t, unitID)
	unit := f.unit(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.unitRepo.On("FindByID", mock.Anything, unitID).Return(unit, nil)
	f.listingRepo.On("FindByUnit", mock.Anything, unitID).Return(nil, errors.New("timeout"))
	f.leaseRepo.On("SaveWithReconciliation", mock.Anything, lease, unit, (*listing.Listing)(nil)).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	// Nothing to unlist must not abort a lease activation
	result, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusActive, "")
	assert.NoError(t, err)
	assert.Equal(t, leasing.LeaseStatusActive, result.Status)
}

func TestChangeLeaseStatus_ReconciliationWriteFailureSurfaces(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease := f.signedLease(t, unitID)
	unit := f.unit(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.unitRepo.On("FindByID", mock.Anything, unitID).Return(unit, nil)
	f.listingRepo.On("FindByUnit", mock.Anything, unitID).Return(nil, nil)
	f.leaseRepo.On("SaveWithReconciliation", mock.Anything, lease, unit, (*listing.Listing)(nil)).
		Return(errors.New("deadlock detected"))

	// The failure is not swallowed; the transition is not committed
	_, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusActive, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
}

// =============================================================================
// Lease End Reconciliation Tests
// =============================================================================

func TestChangeLeaseStatus_TerminateVacatesAndPrompts(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease := f.signedLease(t, unitID)
	unit := f.unit(t, unitID)
	assert.NoError(t, lease.Activate())
	lease.ClearDomainEvents()
	assert.NoError(t, unit.Occupy(lease.ID))

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.unitRepo.On("FindByID", mock.Anything, unitID).Return(unit, nil)
	f.leaseRepo.On("SaveWithReconciliation", mock.Anything, lease, unit, (*listing.Listing)(nil)).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusTerminated, "tenant default")
	assert.NoError(t, err)
	assert.Equal(t, leasing.LeaseStatusTerminated, result.Status)
	assert.False(t, unit.IsOccupied)

	// A relist prompt was raised; no listing was auto-created
	prompted := false
	for _, call := range f.eventBus.Calls {
		events := call.Arguments.Get(1).([]shared.DomainEvent)
		for _, ev := range events {
			if _, ok := ev.(*listing.RelistPromptRaisedEvent); ok {
				prompted = true
			}
		}
	}
	assert.True(t, prompted, "expected a relist prompt event")
	f.listingRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestChangeLeaseStatus_ExpireVacatesUnit(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease := f.signedLease(t, unitID)
	unit := f.unit(t, unitID)
	assert.NoError(t, lease.Activate())
	lease.ClearDomainEvents()
	assert.NoError(t, unit.Occupy(lease.ID))

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.unitRepo.On("FindByID", mock.Anything, unitID).Return(unit, nil)
	f.leaseRepo.On("SaveWithReconciliation", mock.Anything, lease, unit, (*listing.Listing)(nil)).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusExpired, "")
	assert.NoError(t, err)
	assert.Equal(t, leasing.LeaseStatusExpired, result.Status)
	assert.False(t, unit.IsOccupied)
}

// =============================================================================
// Signature Notification Tests
// =============================================================================

func TestChangeLeaseStatus_SignNotifiesWithoutOccupancyChange(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease, err := leasing.NewLease(
		f.orgID, uuid.New(), unitID, uuid.New(),
		time.Now(), time.Now().AddDate(1, 0, 0),
		decimal.NewFromInt(1500), decimal.NewFromInt(1500),
	)
	assert.NoError(t, err)
	assert.NoError(t, lease.SubmitForApproval())
	assert.NoError(t, lease.Approve())
	lst := f.activeListing(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.leaseRepo.On("Save", mock.Anything, lease).Return(nil)
	f.listingRepo.On("FindByUnit", mock.Anything, unitID).Return(lst, nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusSigned, "")
	assert.NoError(t, err)
	assert.Equal(t, leasing.LeaseStatusSigned, result.Status)

	// No occupancy or listing write on signature
	f.leaseRepo.AssertNotCalled(t, "SaveWithReconciliation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.listingRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Equal(t, listing.ListingStatusActive, lst.Status)
}

func TestChangeLeaseStatus_SignPublishesRemovalWarning(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease, err := leasing.NewLease(
		f.orgID, uuid.New(), unitID, uuid.New(),
		time.Now(), time.Now().AddDate(1, 0, 0),
		decimal.NewFromInt(1500), decimal.NewFromInt(1500),
	)
	assert.NoError(t, err)
	assert.NoError(t, lease.SubmitForApproval())
	assert.NoError(t, lease.Approve())
	lst := f.activeListing(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.leaseRepo.On("Save", mock.Anything, lease).Return(nil)
	f.listingRepo.On("FindByUnit", mock.Anything, unitID).Return(lst, nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err = f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusSigned, "")
	assert.NoError(t, err)

	f.eventBus.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		if len(events) != 1 {
			return false
		}
		warning, ok := events[0].(*listing.ListingRemovalPendingEvent)
		return ok && warning.ListingID == lst.ID && warning.LeaseID == lease.ID
	}))
}

func TestChangeLeaseStatus_SignSurvivesWarningPublishFailure(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease, err := leasing.NewLease(
		f.orgID, uuid.New(), unitID, uuid.New(),
		time.Now(), time.Now().AddDate(1, 0, 0),
		decimal.NewFromInt(1500), decimal.NewFromInt(1500),
	)
	assert.NoError(t, err)
	assert.NoError(t, lease.SubmitForApproval())
	assert.NoError(t, lease.Approve())
	lst := f.activeListing(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)
	f.leaseRepo.On("Save", mock.Anything, lease).Return(nil)
	f.listingRepo.On("FindByUnit", mock.Anything, unitID).Return(lst, nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("bus down"))

	// Fire-and-forget: the signature sticks even when delivery fails
	result, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusSigned, "")
	assert.NoError(t, err)
	assert.Equal(t, leasing.LeaseStatusSigned, result.Status)
}

// =============================================================================
// Transition Error Tests
// =============================================================================

func TestChangeLeaseStatus_InvalidTransition(t *testing.T) {
	f := newLeaseFixture()
	unitID := uuid.New()
	lease := f.signedLease(t, unitID)

	f.leaseRepo.On("FindByIDForOrg", mock.Anything, lease.ID, f.orgID).Return(lease, nil)

	// SIGNED -> APPROVED is not in the table
	_, err := f.service.ChangeLeaseStatus(context.Background(), lease.ID, f.orgID, leasing.LeaseStatusApproved, "")
	assertDomainCode(t, err, "INVALID_STATUS_TRANSITION")
	f.leaseRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestChangeLeaseStatus_NotFound(t *testing.T) {
	f := newLeaseFixture()
	leaseID := uuid.New()
	f.leaseRepo.On("FindByIDForOrg", mock.Anything, leaseID, f.orgID).Return(nil, nil)

	_, err := f.service.ChangeLeaseStatus(context.Background(), leaseID, f.orgID, leasing.LeaseStatusActive, "")
	assertDomainCode(t, err, "NOT_FOUND")
}
