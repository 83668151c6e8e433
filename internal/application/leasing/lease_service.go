package leasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LeaseService drives the lease lifecycle and keeps the unit's occupancy
// and listing consistent with it. A lease going ACTIVE occupies its unit
// and removes the unit's active listing in the same transaction; a lease
// ending vacates the unit and prompts the manager to relist.
type LeaseService struct {
	leaseRepo   leasing.LeaseRepository
	unitRepo    leasing.UnitRepository
	listingRepo listing.ListingRepository
	eventBus    shared.EventPublisher
	logger      *zap.Logger
}

// NewLeaseService creates a new LeaseService
func NewLeaseService(
	leaseRepo leasing.LeaseRepository,
	unitRepo leasing.UnitRepository,
	listingRepo listing.ListingRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *LeaseService {
	return &LeaseService{
		leaseRepo:   leaseRepo,
		unitRepo:    unitRepo,
		listingRepo: listingRepo,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// CreateLeaseRequest carries the inputs for a new lease
type CreateLeaseRequest struct {
	OrganizationID uuid.UUID
	PropertyID     uuid.UUID
	UnitID         uuid.UUID
	TenantPartyID  uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	RentAmount     decimal.Decimal
	DepositAmount  decimal.Decimal
}

// CreateLease creates a new lease in DRAFT
func (s *LeaseService) CreateLease(ctx context.Context, req CreateLeaseRequest) (*leasing.Lease, error) {
	unit, err := s.unitRepo.FindByIDForOrg(ctx, req.UnitID, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Unit not found")
	}

	lease, err := leasing.NewLease(
		req.OrganizationID, req.PropertyID, req.UnitID, req.TenantPartyID,
		req.StartDate, req.EndDate, req.RentAmount, req.DepositAmount,
	)
	if err != nil {
		return nil, err
	}
	if err := s.leaseRepo.Create(ctx, lease); err != nil {
		return nil, err
	}
	return lease, nil
}

// ChangeLeaseStatus applies a lease transition and runs the listing
// reconciliation the new status demands. The reconciliation writes commit
// atomically with the lease status: if the occupancy or listing write
// fails, the lease transition itself does not persist.
func (s *LeaseService) ChangeLeaseStatus(ctx context.Context, leaseID, organizationID uuid.UUID, target leasing.LeaseStatus, reason string) (*leasing.Lease, error) {
	lease, err := s.leaseRepo.FindByIDForOrg(ctx, leaseID, organizationID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Lease not found")
	}

	switch target {
	case leasing.LeaseStatusPendingApproval:
		err = lease.SubmitForApproval()
	case leasing.LeaseStatusApproved:
		err = lease.Approve()
	case leasing.LeaseStatusDraft:
		err = lease.ReturnToDraft()
	case leasing.LeaseStatusSigned:
		err = lease.Sign()
	case leasing.LeaseStatusActive:
		return s.activate(ctx, lease)
	case leasing.LeaseStatusExpired:
		return s.end(ctx, lease, leasing.LeaseStatusExpired, reason)
	case leasing.LeaseStatusTerminated:
		return s.end(ctx, lease, leasing.LeaseStatusTerminated, reason)
	default:
		return nil, shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Status %s is not a valid lease status", target))
	}
	if err != nil {
		return nil, err
	}

	if err := s.leaseRepo.Save(ctx, lease); err != nil {
		return nil, err
	}

	if target == leasing.LeaseStatusSigned {
		s.notifyPendingRemoval(ctx, lease)
	}
	s.publishEvents(ctx, lease)

	return lease, nil
}

// activate puts the lease in force: the unit becomes occupied and any
// ACTIVE listing on it is removed, all in one transaction with the lease
// status write. A failure here rolls the whole transition back.
func (s *LeaseService) activate(ctx context.Context, lease *leasing.Lease) (_ *leasing.Lease, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lease", "activate",
		attribute.String("lease.id", lease.ID.String()),
		attribute.String("unit.id", lease.UnitID.String()))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()

	unit, err := s.unitRepo.FindByID(ctx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Unit not found for lease")
	}

	if err := lease.Activate(); err != nil {
		return nil, err
	}
	if err := unit.Occupy(lease.ID); err != nil {
		return nil, err
	}

	// A missing listing is not an error: there is simply nothing to unlist.
	var toRemove *listing.Listing
	lst, err := s.listingRepo.FindByUnit(ctx, lease.UnitID)
	if err != nil {
		s.logger.Warn("listing lookup failed during lease activation, continuing without removal",
			zap.String("unit_id", lease.UnitID.String()), zap.Error(err))
	} else if lst != nil && lst.Status == listing.ListingStatusActive {
		toRemove = lst
	}

	if err := s.leaseRepo.SaveWithReconciliation(ctx, lease, unit, toRemove); err != nil {
		return nil, err
	}

	if toRemove != nil {
		if err := s.eventBus.Publish(ctx, listing.NewListingRemovedEvent(toRemove,
			"Automatic removal due to lease activation", true)); err != nil {
			s.logger.Warn("failed to publish automatic listing removal",
				zap.String("listing_id", toRemove.ID.String()), zap.Error(err))
		}
	}
	s.publishEvents(ctx, lease)

	s.logger.Info("lease activated",
		zap.String("lease_id", lease.ID.String()),
		zap.String("unit_id", unit.ID.String()),
		zap.Bool("listing_removed", toRemove != nil))

	return lease, nil
}

// end closes the lease and vacates the unit. No listing is auto-created;
// relisting needs a human pricing decision, so a prompt event is raised.
func (s *LeaseService) end(ctx context.Context, lease *leasing.Lease, target leasing.LeaseStatus, reason string) (*leasing.Lease, error) {
	unit, err := s.unitRepo.FindByID(ctx, lease.UnitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Unit not found for lease")
	}

	if target == leasing.LeaseStatusExpired {
		err = lease.Expire()
	} else {
		err = lease.Terminate(reason)
	}
	if err != nil {
		return nil, err
	}

	unit.Vacate()

	if err := s.leaseRepo.SaveWithReconciliation(ctx, lease, unit, nil); err != nil {
		return nil, err
	}

	prompt := listing.NewRelistPromptRaisedEvent(
		lease.OrganizationID, unit.ID, lease.PropertyID, lease.ID,
		fmt.Sprintf("Lease %s, unit is now vacant", target))
	if err := s.eventBus.Publish(ctx, prompt); err != nil {
		s.logger.Warn("failed to publish relist prompt",
			zap.String("unit_id", unit.ID.String()), zap.Error(err))
	}
	s.publishEvents(ctx, lease)

	return lease, nil
}

// notifyPendingRemoval tells the listing owner that the unit's listing will
// come down once the signed lease activates. Fire-and-forget: a delivery
// failure is logged, never retried, and never fails the signature.
func (s *LeaseService) notifyPendingRemoval(ctx context.Context, lease *leasing.Lease) {
	lst, err := s.listingRepo.FindByUnit(ctx, lease.UnitID)
	if err != nil || lst == nil {
		return
	}
	event := listing.NewListingRemovalPendingEvent(lst, lease.ID)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish listing removal warning",
			zap.String("listing_id", lst.ID.String()),
			zap.String("lease_id", lease.ID.String()), zap.Error(err))
		return
	}
	s.logger.Info("listing will be removed when lease activates",
		zap.String("listing_id", lst.ID.String()),
		zap.String("unit_id", lease.UnitID.String()),
		zap.String("lease_id", lease.ID.String()))
}

// GetLease returns a single lease
func (s *LeaseService) GetLease(ctx context.Context, leaseID, organizationID uuid.UUID) (*leasing.Lease, error) {
	lease, err := s.leaseRepo.FindByIDForOrg(ctx, leaseID, organizationID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Lease not found")
	}
	return lease, nil
}

// publishEvents flushes the aggregate's pending events to the bus
func (s *LeaseService) publishEvents(ctx context.Context, lease *leasing.Lease) {
	events := lease.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish lease events",
			zap.String("lease_id", lease.ID.String()),
			zap.Error(err))
	}
	lease.ClearDomainEvents()
}
