package listing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// ListingFilter carries the query conditions for listing queries
type ListingFilter struct {
	shared.Filter
	PropertyID *uuid.UUID
	Status     *ListingStatus
}

// ListingRepository persists listing aggregates
type ListingRepository interface {
	Create(ctx context.Context, lst *Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	FindByIDForOrg(ctx context.Context, id, organizationID uuid.UUID) (*Listing, error)
	// FindByUnit returns nil without error when the unit has no listing
	FindByUnit(ctx context.Context, unitID uuid.UUID) (*Listing, error)
	FindAllForOrg(ctx context.Context, organizationID uuid.UUID, filter ListingFilter) ([]*Listing, error)
	// FindDueForActivation returns COMING_SOON listings whose availability
	// date has passed
	FindDueForActivation(ctx context.Context, now time.Time) ([]*Listing, error)
	// FindExpiredAsOf returns non-EXPIRED listings whose expiration date
	// has passed
	FindExpiredAsOf(ctx context.Context, now time.Time) ([]*Listing, error)
	// FindExpiringBefore returns listings that will expire before the cutoff
	FindExpiringBefore(ctx context.Context, organizationID uuid.UUID, cutoff time.Time) ([]*Listing, error)
	Save(ctx context.Context, lst *Listing) error
	Delete(ctx context.Context, id uuid.UUID) error
}
