package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ListingService owns marketplace visibility for units: creation with
// deterministic defaults, guarded status transitions, removal and the
// expiration helpers.
type ListingService struct {
	listingRepo listing.ListingRepository
	leaseRepo   leasing.LeaseRepository
	unitRepo    leasing.UnitRepository
	audit       listing.AuditService
	eventBus    shared.EventPublisher
	logger      *zap.Logger
}

// NewListingService creates a new ListingService
func NewListingService(
	listingRepo listing.ListingRepository,
	leaseRepo leasing.LeaseRepository,
	unitRepo leasing.UnitRepository,
	audit listing.AuditService,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *ListingService {
	return &ListingService{
		listingRepo: listingRepo,
		leaseRepo:   leaseRepo,
		unitRepo:    unitRepo,
		audit:       audit,
		eventBus:    eventBus,
		logger:      logger,
	}
}

// CreateListing lists a unit, filling any missing fields from the unit
// itself. A unit holds at most one listing; a second create conflicts.
func (s *ListingService) CreateListing(ctx context.Context, organizationID, unitID, actorID uuid.UUID, params listing.CreateParams) (*listing.Listing, error) {
	unit, err := s.unitRepo.FindByIDForOrg(ctx, unitID, organizationID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Unit not found")
	}

	existing, err := s.listingRepo.FindByUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("DUPLICATE_LISTING",
			fmt.Sprintf("Unit %s already has a listing in %s status", unit.UnitNumber, existing.Status))
	}

	lst, err := listing.NewListing(organizationID, listing.UnitFacts{
		UnitID:        unit.ID,
		PropertyID:    unit.PropertyID,
		UnitNumber:    unit.UnitNumber,
		Bedrooms:      unit.Bedrooms,
		Bathrooms:     unit.Bathrooms,
		SquareFootage: unit.SquareFootage,
		MarketRent:    unit.MarketRent,
	}, params, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.listingRepo.Create(ctx, lst); err != nil {
		return nil, err
	}

	listingID := lst.ID
	s.audit.Record(ctx, listing.AuditInput{
		OrganizationID: organizationID,
		UnitID:         unitID,
		ListingID:      &listingID,
		Action:         listing.AuditActionCreate,
		ActorID:        actorID,
		NewStatus:      lst.Status,
		Reason:         "Listing created",
	})
	s.publishEvents(ctx, lst)

	return lst, nil
}

// UpdateListingStatus applies a guarded transition. Beyond the transition
// table, entry into ACTIVE is refused while the unit has an active lease;
// both checks must pass.
func (s *ListingService) UpdateListingStatus(ctx context.Context, listingID, organizationID, actorID uuid.UUID, target listing.ListingStatus, reason string) (*listing.Listing, error) {
	lst, err := s.listingRepo.FindByIDForOrg(ctx, listingID, organizationID)
	if err != nil {
		return nil, err
	}
	if lst == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Listing not found")
	}

	if target == listing.ListingStatusActive {
		lease, err := s.leaseRepo.FindActiveByUnit(ctx, lst.UnitID)
		if err != nil {
			return nil, err
		}
		if lease != nil {
			return nil, shared.NewDomainError("LEASE_ACTIVE",
				fmt.Sprintf("Cannot activate listing: unit has an active lease (listing is %s, requested %s)",
					lst.Status, target))
		}
	}

	previous := lst.Status
	if err := lst.TransitionTo(target, reason); err != nil {
		return nil, err
	}
	if err := s.listingRepo.Save(ctx, lst); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, listing.AuditInput{
		OrganizationID: organizationID,
		UnitID:         lst.UnitID,
		ListingID:      &listingID,
		Action:         auditActionFor(target),
		ActorID:        actorID,
		PreviousStatus: previous,
		NewStatus:      target,
		Reason:         reason,
	})
	s.publishEvents(ctx, lst)

	return lst, nil
}

// auditActionFor maps a target status onto the audit action vocabulary
func auditActionFor(target listing.ListingStatus) listing.AuditAction {
	switch target {
	case listing.ListingStatusActive:
		return listing.AuditActionActivate
	case listing.ListingStatusSuspended:
		return listing.AuditActionSuspend
	case listing.ListingStatusExpired:
		return listing.AuditActionExpire
	default:
		return listing.AuditActionUpdate
	}
}

// RemoveListing deletes the unit's listing record
func (s *ListingService) RemoveListing(ctx context.Context, listingID, organizationID, actorID uuid.UUID, reason string) error {
	lst, err := s.listingRepo.FindByIDForOrg(ctx, listingID, organizationID)
	if err != nil {
		return err
	}
	if lst == nil {
		return shared.NewDomainError("NOT_FOUND", "Listing not found")
	}

	if err := s.listingRepo.Delete(ctx, lst.ID); err != nil {
		return err
	}

	s.audit.Record(ctx, listing.AuditInput{
		OrganizationID: organizationID,
		UnitID:         lst.UnitID,
		ListingID:      &lst.ID,
		Action:         listing.AuditActionRemove,
		ActorID:        actorID,
		PreviousStatus: lst.Status,
		Reason:         reason,
	})
	if err := s.eventBus.Publish(ctx, listing.NewListingRemovedEvent(lst, reason, false)); err != nil {
		s.logger.Warn("failed to publish listing removal",
			zap.String("listing_id", lst.ID.String()), zap.Error(err))
	}

	return nil
}

// ExtendListingExpiration pushes a listing's expiration date forward
func (s *ListingService) ExtendListingExpiration(ctx context.Context, listingID, organizationID, actorID uuid.UUID, newExpiration time.Time) (*listing.Listing, error) {
	lst, err := s.listingRepo.FindByIDForOrg(ctx, listingID, organizationID)
	if err != nil {
		return nil, err
	}
	if lst == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Listing not found")
	}

	if err := lst.ExtendExpiration(newExpiration); err != nil {
		return nil, err
	}
	if err := s.listingRepo.Save(ctx, lst); err != nil {
		return nil, err
	}

	listingIDCopy := lst.ID
	s.audit.Record(ctx, listing.AuditInput{
		OrganizationID: organizationID,
		UnitID:         lst.UnitID,
		ListingID:      &listingIDCopy,
		Action:         listing.AuditActionUpdate,
		ActorID:        actorID,
		PreviousStatus: lst.Status,
		NewStatus:      lst.Status,
		Reason:         fmt.Sprintf("Expiration extended to %s", newExpiration.Format("2006-01-02")),
	})

	return lst, nil
}

// GetExpiringSoonListings returns listings expiring within the window
func (s *ListingService) GetExpiringSoonListings(ctx context.Context, organizationID uuid.UUID, within time.Duration) ([]*listing.Listing, error) {
	return s.listingRepo.FindExpiringBefore(ctx, organizationID, time.Now().Add(within))
}

// GetListing returns a single listing
func (s *ListingService) GetListing(ctx context.Context, listingID, organizationID uuid.UUID) (*listing.Listing, error) {
	lst, err := s.listingRepo.FindByIDForOrg(ctx, listingID, organizationID)
	if err != nil {
		return nil, err
	}
	if lst == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Listing not found")
	}
	return lst, nil
}

// publishEvents flushes the aggregate's pending events to the bus
func (s *ListingService) publishEvents(ctx context.Context, lst *listing.Listing) {
	events := lst.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish listing events",
			zap.String("listing_id", lst.ID.String()),
			zap.Error(err))
	}
	lst.ClearDomainEvents()
}
