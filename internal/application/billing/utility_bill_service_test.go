package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/ledger"
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

// MockUtilityBillRepository is a mock implementation of billing.UtilityBillRepository
type MockUtilityBillRepository struct {
	mock.Mock
}

func (m *MockUtilityBillRepository) Create(ctx context.Context, bill *billing.UtilityBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockUtilityBillRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.UtilityBill, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*billing.UtilityBill, error) {
	args := m.Called(ctx, id, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.UtilityBillFilter) ([]*billing.UtilityBill, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]*billing.UtilityBill), args.Error(1)
}

func (m *MockUtilityBillRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter billing.UtilityBillFilter) (int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUtilityBillRepository) Save(ctx context.Context, bill *billing.UtilityBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

func (m *MockUtilityBillRepository) MarkPosted(ctx context.Context, bill *billing.UtilityBill) error {
	args := m.Called(ctx, bill)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CreateBatch(ctx context.Context, invoices []*billing.Invoice) error {
	args := m.Called(ctx, invoices)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByLease(ctx context.Context, leaseID uuid.UUID) ([]*billing.Invoice, error) {
	args := m.Called(ctx, leaseID)
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsByUtilityBill(ctx context.Context, utilityBillID uuid.UUID) (bool, error) {
	args := m.Called(ctx, utilityBillID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

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

// MockJournalEntryRepository is a mock implementation of ledger.JournalEntryRepository
type MockJournalEntryRepository struct {
	mock.Mock
}

func (m *MockJournalEntryRepository) Create(ctx context.Context, entry *ledger.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByIDForOrg(ctx context.Context, organizationID, id uuid.UUID) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, organizationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByReference(ctx context.Context, organizationID uuid.UUID, reference string) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, organizationID, reference)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) CountForOrg(ctx context.Context, organizationID uuid.UUID, filter ledger.JournalEntryFilter) (int64, error) {
	args := m.Called(ctx, organizationID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJournalEntryRepository) GenerateEntryNumber(ctx context.Context, organizationID uuid.UUID) (string, error) {
	args := m.Called(ctx, organizationID)
	return args.String(0), args.Error(1)
}

// MockFinancialEntityRepository is a mock implementation of ledger.FinancialEntityRepository
type MockFinancialEntityRepository struct {
	mock.Mock
}

func (m *MockFinancialEntityRepository) FindByOrganization(ctx context.Context, organizationID uuid.UUID) (*ledger.FinancialEntity, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.FinancialEntity), args.Error(1)
}

func (m *MockFinancialEntityRepository) Save(ctx context.Context, entity *ledger.FinancialEntity) error {
	args := m.Called(ctx, entity)
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

type billServiceFixture struct {
	service     *UtilityBillService
	billRepo    *MockUtilityBillRepository
	invoiceRepo *MockInvoiceRepository
	leaseRepo   *MockLeaseRepository
	unitRepo    *MockUnitRepository
	journalRepo *MockJournalEntryRepository
	entityRepo  *MockFinancialEntityRepository
	eventBus    *MockEventPublisher
	orgID       uuid.UUID
}

func newBillServiceFixture() *billServiceFixture {
	f := &billServiceFixture{
		billRepo:    new(MockUtilityBillRepository),
		invoiceRepo: new(MockInvoiceRepository),
		leaseRepo:   new(MockLeaseRepository),
		unitRepo:    new(MockUnitRepository),
		journalRepo: new(MockJournalEntryRepository),
		entityRepo:  new(MockFinancialEntityRepository),
		eventBus:    new(MockEventPublisher),
		orgID:       uuid.New(),
	}
	posting := ledger.NewPostingService(f.entityRepo, f.journalRepo, zap.NewNop())
	f.service = NewUtilityBillService(
		f.billRepo, f.invoiceRepo, f.leaseRepo, f.unitRepo,
		posting, f.eventBus, zap.NewNop(),
	)
	return f
}

func (f *billServiceFixture) financialEntity() *ledger.FinancialEntity {
	return &ledger.FinancialEntity{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(f.orgID),
		Name:             "Propfolio Test Org",
		Active:           true,
	}
}

func (f *billServiceFixture) approvedBill(t *testing.T) *billing.UtilityBill {
	t.Helper()
	bill, err := billing.NewUtilityBill(
		f.orgID, uuid.New(), "City Power & Light",
		decimal.NewFromFloat(900.00),
		time.Now().AddDate(0, 0, -5), time.Now().AddDate(0, 0, 25),
		billing.SplitMethodEqual, billing.ImportMethodManual,
	)
	assert.NoError(t, err)
	assert.NoError(t, bill.BeginProcessing())
	assert.NoError(t, bill.ReplaceAllocations([]billing.AllocationInput{
		{UnitID: uuid.New(), Amount: decimal.NewFromFloat(300.00)},
		{UnitID: uuid.New(), Amount: decimal.NewFromFloat(300.00)},
		{UnitID: uuid.New(), Amount: decimal.NewFromFloat(300.00)},
	}))
	assert.NoError(t, bill.Approve(uuid.New()))
	bill.ClearDomainEvents()
	return bill
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	domainErr, ok := err.(*shared.DomainError)
	assert.True(t, ok, "expected a domain error, got %T", err)
	assert.Equal(t, code, domainErr.Code)
}

// =============================================================================
// CreateBill Tests
// =============================================================================

func TestCreateBill_Success(t *testing.T) {
	f := newBillServiceFixture()
	f.billRepo.On("Create", mock.Anything, mock.AnythingOfType("*billing.UtilityBill")).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	bill, err := f.service.CreateBill(context.Background(), CreateBillRequest{
		OrganizationID: f.orgID,
		PropertyID:     uuid.New(),
		ProviderName:   "Metro Water",
		TotalAmount:    decimal.NewFromFloat(420.50),
		BillDate:       time.Now(),
		DueDate:        time.Now().AddDate(0, 1, 0),
		SplitMethod:    billing.SplitMethodEqual,
		ImportMethod:   billing.ImportMethodManual,
	})

	assert.NoError(t, err)
	assert.Equal(t, billing.BillStatusDraft, bill.Status)
	f.billRepo.AssertExpectations(t)
	f.eventBus.AssertExpectations(t)
}

func TestCreateBill_InvalidInputNotPersisted(t *testing.T) {
	f := newBillServiceFixture()

	_, err := f.service.CreateBill(context.Background(), CreateBillRequest{
		OrganizationID: f.orgID,
		PropertyID:     uuid.New(),
		ProviderName:   "",
		TotalAmount:    decimal.NewFromFloat(100),
		BillDate:       time.Now(),
		DueDate:        time.Now().AddDate(0, 1, 0),
		SplitMethod:    billing.SplitMethodEqual,
	})

	assertDomainCode(t, err, "INVALID_PROVIDER")
	f.billRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =============================================================================
// TransitionToProcessing Tests
// =============================================================================

func TestTransitionToProcessing_LowOCRConfidenceFlagsReview(t *testing.T) {
	f := newBillServiceFixture()
	confidence := decimal.NewFromFloat(0.60)
	bill, err := billing.NewUtilityBill(
		f.orgID, uuid.New(), "City Power & Light",
		decimal.NewFromFloat(500.00), time.Now(), time.Now().AddDate(0, 1, 0),
		billing.SplitMethodEqual, billing.ImportMethodOCRUpload,
	)
	assert.NoError(t, err)
	bill.OCRConfidence = &confidence

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.billRepo.On("Save", mock.Anything, bill).Return(nil)

	result, err := f.service.TransitionToProcessing(context.Background(), bill.ID, f.orgID)
	assert.NoError(t, err)
	assert.Equal(t, billing.BillStatusReviewRequired, result.Status)
	assert.Contains(t, result.ReviewReason, "OCR confidence")
}

func TestTransitionToProcessing_NotFound(t *testing.T) {
	f := newBillServiceFixture()
	billID := uuid.New()
	f.billRepo.On("FindByIDForOrg", mock.Anything, billID, f.orgID).Return(nil, nil)

	_, err := f.service.TransitionToProcessing(context.Background(), billID, f.orgID)
	assertDomainCode(t, err, "NOT_FOUND")
}

// =============================================================================
// AddAllocations Tests
// =============================================================================

func TestAddAllocations_EqualSplitRemainderToLast(t *testing.T) {
	f := newBillServiceFixture()
	bill, err := billing.NewUtilityBill(
		f.orgID, uuid.New(), "Metro Gas",
		decimal.NewFromFloat(100.00), time.Now(), time.Now().AddDate(0, 1, 0),
		billing.SplitMethodEqual, billing.ImportMethodManual,
	)
	assert.NoError(t, err)
	assert.NoError(t, bill.BeginProcessing())

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.billRepo.On("Save", mock.Anything, bill).Return(nil)

	result, err := f.service.AddAllocations(context.Background(), bill.ID, f.orgID, []AllocationRequest{
		{UnitID: uuid.New()}, {UnitID: uuid.New()}, {UnitID: uuid.New()},
	})
	assert.NoError(t, err)
	assert.Len(t, result.Allocations, 3)

	// 33.33 + 33.33 + 33.34: the remainder lands on the last unit and the
	// rows sum to the total exactly
	assert.Equal(t, "33.33", result.Allocations[0].Amount.String())
	assert.Equal(t, "33.33", result.Allocations[1].Amount.String())
	assert.Equal(t, "33.34", result.Allocations[2].Amount.String())
	assert.True(t, result.AllocatedTotal().Equal(bill.TotalAmount))
}

func TestAddAllocations_CustomRatio(t *testing.T) {
	f := newBillServiceFixture()
	bill, err := billing.NewUtilityBill(
		f.orgID, uuid.New(), "Metro Gas",
		decimal.NewFromFloat(900.00), time.Now(), time.Now().AddDate(0, 1, 0),
		billing.SplitMethodCustomRatio, billing.ImportMethodManual,
	)
	assert.NoError(t, err)
	assert.NoError(t, bill.BeginProcessing())

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.billRepo.On("Save", mock.Anything, bill).Return(nil)

	result, err := f.service.AddAllocations(context.Background(), bill.ID, f.orgID, []AllocationRequest{
		{UnitID: uuid.New(), Percentage: decimal.NewFromInt(50)},
		{UnitID: uuid.New(), Percentage: decimal.NewFromInt(30)},
		{UnitID: uuid.New(), Percentage: decimal.NewFromInt(20)},
	})
	assert.NoError(t, err)
	assert.Equal(t, "450", result.Allocations[0].Amount.String())
	assert.Equal(t, "270", result.Allocations[1].Amount.String())
	assert.Equal(t, "180", result.Allocations[2].Amount.String())
	assert.True(t, result.AllocatedTotal().Equal(bill.TotalAmount))
}

func TestAddAllocations_CustomRatioMustSumTo100(t *testing.T) {
	f := newBillServiceFixture()
	bill, err := billing.NewUtilityBill(
		f.orgID, uuid.New(), "Metro Gas",
		decimal.NewFromFloat(900.00), time.Now(), time.Now().AddDate(0, 1, 0),
		billing.SplitMethodCustomRatio, billing.ImportMethodManual,
	)
	assert.NoError(t, err)
	assert.NoError(t, bill.BeginProcessing())

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)

	_, err = f.service.AddAllocations(context.Background(), bill.ID, f.orgID, []AllocationRequest{
		{UnitID: uuid.New(), Percentage: decimal.NewFromInt(50)},
		{UnitID: uuid.New(), Percentage: decimal.NewFromInt(30)},
	})
	assertDomainCode(t, err, "INVALID_RATIO")
	f.billRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// =============================================================================
// GenerateInvoicesForBill Tests
// =============================================================================

func TestGenerateInvoicesForBill_Success(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.invoiceRepo.On("ExistsByUtilityBill", mock.Anything, bill.ID).Return(false, nil)

	for _, alloc := range bill.Allocations {
		lease, err := leasing.NewLease(
			f.orgID, bill.PropertyID, alloc.UnitID, uuid.New(),
			time.Now().AddDate(-1, 0, 0), time.Now().AddDate(1, 0, 0),
			decimal.NewFromInt(1500), decimal.NewFromInt(1500),
		)
		assert.NoError(t, err)
		f.leaseRepo.On("FindActiveByUnit", mock.Anything, alloc.UnitID).Return(lease, nil)
	}
	f.invoiceRepo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*billing.Invoice")).Return(nil)

	invoices, err := f.service.GenerateInvoicesForBill(context.Background(), bill.ID, f.orgID)
	assert.NoError(t, err)
	assert.Len(t, invoices, 3)

	// Invoice amounts conserve the bill total
	sum := decimal.Zero
	for _, inv := range invoices {
		assert.Equal(t, billing.InvoiceTypeUtility, inv.Type)
		assert.Equal(t, bill.ID, *inv.UtilityBillID)
		sum = sum.Add(inv.TotalAmount)
	}
	assert.True(t, sum.Equal(bill.TotalAmount))
}

func TestGenerateInvoicesForBill_Idempotent(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.invoiceRepo.On("ExistsByUtilityBill", mock.Anything, bill.ID).Return(true, nil)

	_, err := f.service.GenerateInvoicesForBill(context.Background(), bill.ID, f.orgID)
	assertDomainCode(t, err, "ALREADY_EXISTS")
	f.invoiceRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestGenerateInvoicesForBill_MissingLease(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.invoiceRepo.On("ExistsByUtilityBill", mock.Anything, bill.ID).Return(false, nil)
	f.leaseRepo.On("FindActiveByUnit", mock.Anything, mock.Anything).Return(nil, nil)

	_, err := f.service.GenerateInvoicesForBill(context.Background(), bill.ID, f.orgID)
	assertDomainCode(t, err, "ALLOCATION_MISSING_LEASE")
	f.invoiceRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestGenerateInvoicesForBill_RequiresApprovedStatus(t *testing.T) {
	f := newBillServiceFixture()

	// Allocated but still PROCESSING: no approval, no invoices
	bill, err := billing.NewUtilityBill(
		f.orgID, uuid.New(), "City Power & Light",
		decimal.NewFromFloat(600.00),
		time.Now().AddDate(0, 0, -5), time.Now().AddDate(0, 0, 25),
		billing.SplitMethodEqual, billing.ImportMethodManual,
	)
	assert.NoError(t, err)
	assert.NoError(t, bill.BeginProcessing())
	assert.NoError(t, bill.ReplaceAllocations([]billing.AllocationInput{
		{UnitID: uuid.New(), Amount: decimal.NewFromFloat(600.00)},
	}))
	assert.Equal(t, billing.BillStatusProcessing, bill.Status)

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)

	_, err = f.service.GenerateInvoicesForBill(context.Background(), bill.ID, f.orgID)
	assertDomainCode(t, err, "NOT_APPROVED")
	f.invoiceRepo.AssertNotCalled(t, "ExistsByUtilityBill", mock.Anything, mock.Anything)
	f.invoiceRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

// =============================================================================
// PostUtilityBill Tests
// =============================================================================

func TestPostUtilityBill_Success(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.entityRepo.On("FindByOrganization", mock.Anything, f.orgID).Return(f.financialEntity(), nil)
	f.journalRepo.On("GenerateEntryNumber", mock.Anything, f.orgID).Return("JE-2026-000042", nil)
	f.journalRepo.On("Create", mock.Anything, mock.AnythingOfType("*ledger.JournalEntry")).Return(nil)
	f.billRepo.On("MarkPosted", mock.Anything, bill).Return(nil)
	f.eventBus.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.PostUtilityBill(context.Background(), bill.ID, f.orgID)
	assert.NoError(t, err)
	assert.Equal(t, billing.BillStatusPosted, result.Status)
	assert.NotNil(t, result.JournalEntryID)
	assert.NotEmpty(t, result.AuditHash)

	// The journal entry is balanced: debit 6100, credit 2000, equal amounts
	entry := f.journalRepo.Calls[1].Arguments.Get(1).(*ledger.JournalEntry)
	assert.True(t, entry.IsBalanced())
	assert.Len(t, entry.Lines, 2)
	assert.Equal(t, ledger.AccountUtilityExpense, entry.Lines[0].AccountCode)
	assert.Equal(t, ledger.AccountAccountsPayable, entry.Lines[1].AccountCode)
	assert.True(t, entry.TotalDebits().Equal(bill.TotalAmount))
}

func TestPostUtilityBill_AlreadyPostedGuardFirst(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)
	assert.NoError(t, bill.MarkPosted(uuid.New(), bill.ComputeAllocationHash()))

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)

	_, err := f.service.PostUtilityBill(context.Background(), bill.ID, f.orgID)
	assertDomainCode(t, err, "ALREADY_POSTED")

	// No second journal entry is ever attempted
	f.journalRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.entityRepo.AssertNotCalled(t, "FindByOrganization", mock.Anything, mock.Anything)
}

func TestPostUtilityBill_NoFinancialEntity(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.entityRepo.On("FindByOrganization", mock.Anything, f.orgID).Return(nil, nil)

	_, err := f.service.PostUtilityBill(context.Background(), bill.ID, f.orgID)
	assertDomainCode(t, err, "NO_FINANCIAL_ENTITY")
	assert.Equal(t, billing.BillStatusApproved, bill.Status)
}

func TestPostUtilityBill_StatusFlipFailureLeavesApproved(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)

	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)
	f.entityRepo.On("FindByOrganization", mock.Anything, f.orgID).Return(f.financialEntity(), nil)
	f.journalRepo.On("GenerateEntryNumber", mock.Anything, f.orgID).Return("JE-2026-000043", nil)
	f.journalRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.billRepo.On("MarkPosted", mock.Anything, bill).Return(errors.New("connection reset"))

	_, err := f.service.PostUtilityBill(context.Background(), bill.ID, f.orgID)
	assertDomainCode(t, err, "POSTING_FAILED")
}

// =============================================================================
// IsBillPosted Tests
// =============================================================================

func TestIsBillPosted(t *testing.T) {
	f := newBillServiceFixture()
	bill := f.approvedBill(t)
	f.billRepo.On("FindByIDForOrg", mock.Anything, bill.ID, f.orgID).Return(bill, nil)

	posted, err := f.service.IsBillPosted(context.Background(), bill.ID, f.orgID)
	assert.NoError(t, err)
	assert.False(t, posted)

	assert.NoError(t, bill.MarkPosted(uuid.New(), bill.ComputeAllocationHash()))
	posted, err = f.service.IsBillPosted(context.Background(), bill.ID, f.orgID)
	assert.NoError(t, err)
	assert.True(t, posted)
}
