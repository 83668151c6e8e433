package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// UtilityBillService drives a utility bill from draft through allocation,
// approval and invoice generation to its posted, immutable ledger entry.
type UtilityBillService struct {
	billRepo    billing.UtilityBillRepository
	invoiceRepo billing.InvoiceRepository
	leaseRepo   leasing.LeaseRepository
	unitRepo    leasing.UnitRepository
	posting     *ledger.PostingService
	eventBus    shared.EventPublisher
	logger      *zap.Logger
}

// NewUtilityBillService creates a new UtilityBillService
func NewUtilityBillService(
	billRepo billing.UtilityBillRepository,
	invoiceRepo billing.InvoiceRepository,
	leaseRepo leasing.LeaseRepository,
	unitRepo leasing.UnitRepository,
	posting *ledger.PostingService,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *UtilityBillService {
	return &UtilityBillService{
		billRepo:    billRepo,
		invoiceRepo: invoiceRepo,
		leaseRepo:   leaseRepo,
		unitRepo:    unitRepo,
		posting:     posting,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// CreateBillRequest carries the inputs for a new utility bill
type CreateBillRequest struct {
	OrganizationID uuid.UUID
	PropertyID     uuid.UUID
	ProviderName   string
	TotalAmount    decimal.Decimal
	BillDate       time.Time
	DueDate        time.Time
	SplitMethod    billing.SplitMethod
	ImportMethod   billing.ImportMethod
	OCRConfidence  *decimal.Decimal
}

// CreateBill creates a new bill in DRAFT
func (s *UtilityBillService) CreateBill(ctx context.Context, req CreateBillRequest) (*billing.UtilityBill, error) {
	bill, err := billing.NewUtilityBill(
		req.OrganizationID,
		req.PropertyID,
		req.ProviderName,
		req.TotalAmount,
		req.BillDate,
		req.DueDate,
		req.SplitMethod,
		req.ImportMethod,
	)
	if err != nil {
		return nil, err
	}
	bill.OCRConfidence = req.OCRConfidence

	if err := s.billRepo.Create(ctx, bill); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, bill)
	s.logger.Info("utility bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("provider", bill.ProviderName),
		zap.String("total", bill.TotalAmount.String()))

	return bill, nil
}

// loadBill fetches an org-scoped bill or fails with NOT_FOUND
func (s *UtilityBillService) loadBill(ctx context.Context, billID, organizationID uuid.UUID) (*billing.UtilityBill, error) {
	bill, err := s.billRepo.FindByIDForOrg(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Utility bill not found")
	}
	return bill, nil
}

// TransitionToProcessing moves a DRAFT bill into PROCESSING. Bills imported
// by OCR with low confidence are flagged for review in the same step.
func (s *UtilityBillService) TransitionToProcessing(ctx context.Context, billID, organizationID uuid.UUID) (*billing.UtilityBill, error) {
	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}

	if err := bill.BeginProcessing(); err != nil {
		return nil, err
	}

	if bill.ImportMethod == billing.ImportMethodOCRUpload && bill.OCRConfidence != nil &&
		bill.OCRConfidence.LessThan(decimal.NewFromFloat(0.85)) {
		if err := bill.RequireReview(fmt.Sprintf("OCR confidence %s below threshold", bill.OCRConfidence.String())); err != nil {
			return nil, err
		}
	}

	if err := s.billRepo.Save(ctx, bill); err != nil {
		return nil, err
	}

	return bill, nil
}

// AllocationRequest carries allocation inputs for AddAllocations.
// For EQUAL splits only UnitIDs are read; for CUSTOM_RATIO each entry
// needs a percentage; otherwise explicit amounts are taken as given.
type AllocationRequest struct {
	UnitID     uuid.UUID
	Amount     decimal.Decimal
	Percentage decimal.Decimal
}

// AddAllocations computes and attaches the allocation rows for the bill
// according to its split method. Any rounding remainder lands on the last
// unit so the rows always sum to the bill total exactly.
func (s *UtilityBillService) AddAllocations(ctx context.Context, billID, organizationID uuid.UUID, requests []AllocationRequest) (*billing.UtilityBill, error) {
	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, shared.NewDomainError("NO_ALLOCATIONS", "At least one allocation is required")
	}

	inputs, err := s.computeAllocations(bill, requests)
	if err != nil {
		return nil, err
	}

	if err := bill.ReplaceAllocations(inputs); err != nil {
		return nil, err
	}
	if err := s.billRepo.Save(ctx, bill); err != nil {
		return nil, err
	}

	return bill, nil
}

// computeAllocations turns allocation requests into concrete amounts
func (s *UtilityBillService) computeAllocations(bill *billing.UtilityBill, requests []AllocationRequest) ([]billing.AllocationInput, error) {
	inputs := make([]billing.AllocationInput, len(requests))

	switch bill.SplitMethod {
	case billing.SplitMethodEqual:
		count := decimal.NewFromInt(int64(len(requests)))
		share := bill.TotalAmount.Div(count).Round(2)
		percentage := decimal.NewFromInt(100).Div(count).Round(4)
		running := decimal.Zero
		for i, req := range requests {
			amount := share
			if i == len(requests)-1 {
				amount = bill.TotalAmount.Sub(running)
			}
			running = running.Add(amount)
			inputs[i] = billing.AllocationInput{UnitID: req.UnitID, Amount: amount, Percentage: percentage}
		}

	case billing.SplitMethodCustomRatio:
		totalRatio := decimal.Zero
		for _, req := range requests {
			totalRatio = totalRatio.Add(req.Percentage)
		}
		if !totalRatio.Sub(decimal.NewFromInt(100)).Abs().LessThanOrEqual(decimal.NewFromFloat(0.01)) {
			return nil, shared.NewDomainError("INVALID_RATIO",
				fmt.Sprintf("Custom ratios sum to %s, expected 100", totalRatio.String()))
		}
		running := decimal.Zero
		for i, req := range requests {
			amount := bill.TotalAmount.Mul(req.Percentage).Div(decimal.NewFromInt(100)).Round(2)
			if i == len(requests)-1 {
				amount = bill.TotalAmount.Sub(running)
			}
			running = running.Add(amount)
			inputs[i] = billing.AllocationInput{UnitID: req.UnitID, Amount: amount, Percentage: req.Percentage}
		}

	default:
		// SUB_METERED and the remaining methods arrive with explicit amounts
		for i, req := range requests {
			inputs[i] = billing.AllocationInput{UnitID: req.UnitID, Amount: req.Amount, Percentage: req.Percentage}
		}
	}

	return inputs, nil
}

// RequestReview flags a PROCESSING bill for a human decision
func (s *UtilityBillService) RequestReview(ctx context.Context, billID, organizationID uuid.UUID, reason string) (*billing.UtilityBill, error) {
	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}
	if err := bill.RequireReview(reason); err != nil {
		return nil, err
	}
	if err := s.billRepo.Save(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// ApproveBill verifies allocation conservation and moves the bill to APPROVED
func (s *UtilityBillService) ApproveBill(ctx context.Context, billID, organizationID, approvedBy uuid.UUID) (*billing.UtilityBill, error) {
	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}
	if err := bill.Approve(approvedBy); err != nil {
		return nil, err
	}
	if err := s.billRepo.Save(ctx, bill); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, bill)
	return bill, nil
}

// RejectBill discards the bill. Terminal, no ledger entry is ever created.
func (s *UtilityBillService) RejectBill(ctx context.Context, billID, organizationID uuid.UUID, reason string) (*billing.UtilityBill, error) {
	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}
	if err := bill.Reject(reason); err != nil {
		return nil, err
	}
	if err := s.billRepo.Save(ctx, bill); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, bill)
	return bill, nil
}

// GenerateInvoicesForBill creates one utility invoice per allocation,
// addressed to the unit's active lease. Only APPROVED bills can be
// invoiced. Generation is idempotent: a second
// call for the same bill fails with ALREADY_EXISTS and writes nothing.
func (s *UtilityBillService) GenerateInvoicesForBill(ctx context.Context, billID, organizationID uuid.UUID) ([]*billing.Invoice, error) {
	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}
	if bill.IsPosted() {
		return nil, shared.NewDomainError("ALREADY_POSTED",
			fmt.Sprintf("Bill %s has been posted to the ledger and cannot be modified", bill.ID))
	}
	if bill.Status != billing.BillStatusApproved {
		return nil, shared.NewDomainError("NOT_APPROVED",
			fmt.Sprintf("Cannot generate invoices for bill in %s status", bill.Status))
	}
	if len(bill.Allocations) == 0 {
		return nil, shared.NewDomainError("NO_ALLOCATIONS", "Bill has no allocations to invoice")
	}

	exists, err := s.invoiceRepo.ExistsByUtilityBill(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoices have already been generated for this bill")
	}

	invoices := make([]*billing.Invoice, 0, len(bill.Allocations))
	for _, alloc := range bill.Allocations {
		lease, err := s.leaseRepo.FindActiveByUnit(ctx, alloc.UnitID)
		if err != nil {
			return nil, err
		}
		if lease == nil {
			return nil, shared.NewDomainError("ALLOCATION_MISSING_LEASE",
				fmt.Sprintf("Unit %s has no active lease to invoice", alloc.UnitID))
		}

		invoice, err := billing.NewUtilityInvoice(organizationID, lease.ID, alloc.Amount, bill.DueDate, bill.ID)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}

	if err := s.invoiceRepo.CreateBatch(ctx, invoices); err != nil {
		return nil, err
	}

	s.logger.Info("utility invoices generated",
		zap.String("bill_id", bill.ID.String()),
		zap.Int("count", len(invoices)))

	return invoices, nil
}

// PostUtilityBill posts the approved bill to the general ledger: debit
// Utility Expense, credit Accounts Payable, one balanced entry. The journal
// entry is created first; the status flip to POSTED and the journal
// reference then commit in one transaction. If anything fails after the
// journal write the bill stays APPROVED and the attempt is retryable.
func (s *UtilityBillService) PostUtilityBill(ctx context.Context, billID, organizationID uuid.UUID) (_ *billing.UtilityBill, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "utility_bill", "post",
		attribute.String("bill.id", billID.String()))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()

	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return nil, err
	}

	// Surface the guard before touching the ledger
	if bill.IsPosted() {
		return nil, shared.NewDomainError("ALREADY_POSTED",
			fmt.Sprintf("Bill %s has been posted to the ledger and cannot be modified", bill.ID))
	}
	if bill.Status != billing.BillStatusApproved {
		return nil, shared.NewDomainError("NOT_APPROVED",
			fmt.Sprintf("Cannot post bill in %s status", bill.Status))
	}

	propertyID := bill.PropertyID
	entry, err := s.posting.Post(ctx, ledger.PostRequest{
		OrganizationID: organizationID,
		EntryDate:      bill.BillDate,
		Reference:      fmt.Sprintf("UB-%s", bill.ID),
		Description:    fmt.Sprintf("Utility bill from %s", bill.ProviderName),
		Lines: []ledger.LineInput{
			{
				AccountCode: ledger.AccountUtilityExpense,
				Debit:       bill.TotalAmount,
				PropertyID:  &propertyID,
				Memo:        fmt.Sprintf("%s utility expense", bill.ProviderName),
			},
			{
				AccountCode: ledger.AccountAccountsPayable,
				Credit:      bill.TotalAmount,
				PropertyID:  &propertyID,
				Memo:        fmt.Sprintf("Payable to %s", bill.ProviderName),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	if err := bill.MarkPosted(entry.ID, bill.ComputeAllocationHash()); err != nil {
		return nil, err
	}
	if err := s.billRepo.MarkPosted(ctx, bill); err != nil {
		// The journal entry exists but the bill stayed APPROVED; the next
		// attempt re-posts cleanly because entries are append-only and the
		// status is the commit point.
		s.logger.Error("bill status flip failed after journal write",
			zap.String("bill_id", bill.ID.String()),
			zap.String("journal_entry", entry.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("POSTING_FAILED",
			fmt.Sprintf("Journal entry %s created but bill update failed: %s", entry.EntryNumber, err.Error()))
	}

	s.publishEvents(ctx, bill)
	s.logger.Info("utility bill posted",
		zap.String("bill_id", bill.ID.String()),
		zap.String("journal_entry", entry.EntryNumber),
		zap.String("audit_hash", bill.AuditHash))

	return bill, nil
}

// IsBillPosted reports whether the bill has reached its terminal POSTED state
func (s *UtilityBillService) IsBillPosted(ctx context.Context, billID, organizationID uuid.UUID) (bool, error) {
	bill, err := s.loadBill(ctx, billID, organizationID)
	if err != nil {
		return false, err
	}
	return bill.IsPosted(), nil
}

// GetBill returns a single bill with its allocations
func (s *UtilityBillService) GetBill(ctx context.Context, billID, organizationID uuid.UUID) (*billing.UtilityBill, error) {
	return s.loadBill(ctx, billID, organizationID)
}

// ListBills returns a page of bills for the organization
func (s *UtilityBillService) ListBills(ctx context.Context, organizationID uuid.UUID, filter billing.UtilityBillFilter) (shared.Paginated[*billing.UtilityBill], error) {
	bills, err := s.billRepo.FindAllForOrg(ctx, organizationID, filter)
	if err != nil {
		return shared.Paginated[*billing.UtilityBill]{}, err
	}
	total, err := s.billRepo.CountForOrg(ctx, organizationID, filter)
	if err != nil {
		return shared.Paginated[*billing.UtilityBill]{}, err
	}
	return shared.NewPaginated(bills, total, filter.Page, filter.PageSize), nil
}

// publishEvents flushes the aggregate's pending events to the bus.
// Event delivery is best-effort and never fails the primary operation.
func (s *UtilityBillService) publishEvents(ctx context.Context, bill *billing.UtilityBill) {
	events := bill.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish bill events",
			zap.String("bill_id", bill.ID.String()),
			zap.Error(err))
	}
	bill.ClearDomainEvents()
}
