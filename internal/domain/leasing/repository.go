package leasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
)

// LeaseFilter carries the query conditions for lease listings
type LeaseFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	UnitID     *uuid.UUID
	Status     *LeaseStatus
}

// LeaseRepository persists lease aggregates
type LeaseRepository interface {
	Create(ctx context.Context, lease *Lease) error
	FindByID(ctx context.Context, id uuid.UUID) (*Lease, error)
	FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*Lease, error)
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter LeaseFilter) ([]*Lease, error)
	FindActiveByUnit(ctx context.Context, unitID uuid.UUID) (*Lease, error)
	Save(ctx context.Context, lease *Lease) error
	// SaveWithReconciliation commits the lease status change together with
	// the unit occupancy update and, when present, the listing change in
	// one transaction. A partially applied transition never persists.
	SaveWithReconciliation(ctx context.Context, lease *Lease, unit *Unit, lst *listing.Listing) error
}

// UnitRepository persists units
type UnitRepository interface {
	Create(ctx context.Context, unit *Unit) error
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)
	FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*Unit, error)
	FindByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Unit, error)
	Save(ctx context.Context, unit *Unit) error
}
