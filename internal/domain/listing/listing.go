package listing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ListingStatus represents the marketplace visibility of a unit
type ListingStatus string

const (
	ListingStatusPrivate     ListingStatus = "PRIVATE"
	ListingStatusPending     ListingStatus = "PENDING"
	ListingStatusComingSoon  ListingStatus = "COMING_SOON"
	ListingStatusActive      ListingStatus = "ACTIVE"
	ListingStatusSuspended   ListingStatus = "SUSPENDED"
	ListingStatusExpired     ListingStatus = "EXPIRED"
	ListingStatusMaintenance ListingStatus = "MAINTENANCE"
)

// listingTransitions is the allowed transition table. Transitions are
// directed; membership here is necessary but not sufficient, the
// active-lease guard on entering ACTIVE is checked by the service layer.
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusPrivate:     {ListingStatusActive, ListingStatusPending, ListingStatusComingSoon},
	ListingStatusPending:     {ListingStatusActive, ListingStatusPrivate, ListingStatusSuspended, ListingStatusComingSoon},
	ListingStatusComingSoon:  {ListingStatusActive, ListingStatusPrivate, ListingStatusSuspended},
	ListingStatusActive:      {ListingStatusSuspended, ListingStatusPrivate, ListingStatusExpired, ListingStatusMaintenance},
	ListingStatusSuspended:   {ListingStatusActive, ListingStatusPrivate, ListingStatusMaintenance},
	ListingStatusExpired:     {ListingStatusActive, ListingStatusPrivate, ListingStatusComingSoon},
	ListingStatusMaintenance: {ListingStatusActive, ListingStatusPrivate, ListingStatusSuspended},
}

// IsValid checks if the status is a valid ListingStatus
func (s ListingStatus) IsValid() bool {
	_, ok := listingTransitions[s]
	return ok
}

// String returns the string representation of ListingStatus
func (s ListingStatus) String() string {
	return string(s)
}

// CanTransitionTo returns true if the target status is reachable from this one
func (s ListingStatus) CanTransitionTo(target ListingStatus) bool {
	for _, allowed := range listingTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// MinimumListingPrice is the floor applied when neither the request nor
// the unit supplies a usable price.
var MinimumListingPrice = decimal.NewFromInt(100)

// Listing is the marketplace visibility record for a unit.
// A unit holds at most one listing at a time, and a unit with an ACTIVE
// lease must never hold an ACTIVE listing.
type Listing struct {
	shared.OrgAggregateRoot
	UnitID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_listings_unit"`
	PropertyID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title            string          `gorm:"type:varchar(200);not null"`
	Description      string          `gorm:"type:text"`
	Price            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AvailabilityDate time.Time       `gorm:"not null"`
	ExpirationDate   time.Time       `gorm:"not null;index"`
	Status           ListingStatus   `gorm:"type:varchar(20);not null;default:'PRIVATE';index"`
}

// TableName returns the table name for GORM
func (Listing) TableName() string {
	return "listings"
}

// CreateParams carries the caller-supplied listing fields. Zero values are
// populated deterministically from the unit by NewListing.
type CreateParams struct {
	Title            string
	Description      string
	Price            decimal.Decimal
	AvailabilityDate time.Time
	ExpirationDate   time.Time
}

// UnitFacts is the slice of unit data needed for default population
type UnitFacts struct {
	UnitID        uuid.UUID
	PropertyID    uuid.UUID
	UnitNumber    string
	Bedrooms      int
	Bathrooms     decimal.Decimal
	SquareFootage int
	MarketRent    decimal.Decimal
}

// DefaultListingDuration is applied when no expiration date is supplied
const DefaultListingDuration = 60 * 24 * time.Hour

// NewListing creates a listing for a unit, synthesizing any missing fields
// from the unit. Identical unit and input data always produce identical
// defaults; only a missing availability date depends on now. A listing whose
// availability date is still in the future starts in COMING_SOON, otherwise
// it starts in PRIVATE until the owner publishes it.
func NewListing(organizationID uuid.UUID, unit UnitFacts, params CreateParams, now time.Time) (*Listing, error) {
	if unit.UnitID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit ID cannot be empty")
	}
	if params.Price.LessThan(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Listing price cannot be negative")
	}

	title := params.Title
	if title == "" {
		title = fmt.Sprintf("%s - %dBR/%sBA", unit.UnitNumber, unit.Bedrooms, unit.Bathrooms.String())
	}

	description := params.Description
	if description == "" {
		description = fmt.Sprintf("%d bedroom, %s bathroom unit", unit.Bedrooms, unit.Bathrooms.String())
		if unit.SquareFootage > 0 {
			description = fmt.Sprintf("%s, %d sq ft", description, unit.SquareFootage)
		}
	}

	price := params.Price
	if price.IsZero() {
		price = unit.MarketRent
	}
	if price.LessThanOrEqual(decimal.Zero) {
		price = MinimumListingPrice
	}

	availability := params.AvailabilityDate
	if availability.IsZero() {
		availability = now
	}

	expiration := params.ExpirationDate
	if expiration.IsZero() {
		expiration = availability.Add(DefaultListingDuration)
	}
	if !expiration.After(availability) {
		return nil, shared.NewDomainError("INVALID_EXPIRATION", "Expiration date must be after the availability date")
	}

	status := ListingStatusPrivate
	if availability.After(now) {
		status = ListingStatusComingSoon
	}

	lst := &Listing{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		UnitID:           unit.UnitID,
		PropertyID:       unit.PropertyID,
		Title:            title,
		Description:      description,
		Price:            price,
		AvailabilityDate: availability,
		ExpirationDate:   expiration,
		Status:           status,
	}

	lst.AddDomainEvent(NewListingStatusChangedEvent(lst, "", status, "Listing created"))

	return lst, nil
}

// TransitionTo applies a status change after checking the transition table.
// An invalid transition fails naming both statuses; it never clamps to a
// nearby valid state. The active-lease guard on entering ACTIVE lives in
// the service layer, which knows about leases.
func (l *Listing) TransitionTo(target ListingStatus, reason string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS",
			fmt.Sprintf("Status %s is not a valid listing status", target))
	}
	if !l.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION",
			fmt.Sprintf("Cannot transition listing from %s to %s", l.Status, target))
	}

	previous := l.Status
	l.Status = target
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	l.AddDomainEvent(NewListingStatusChangedEvent(l, previous, target, reason))

	return nil
}

// IsExpiredAsOf returns true when the listing should be swept to EXPIRED
func (l *Listing) IsExpiredAsOf(now time.Time) bool {
	return l.Status != ListingStatusExpired && l.ExpirationDate.Before(now)
}

// Expire moves the listing to EXPIRED once its expiration date has passed.
// Time-driven expiry applies from every non-EXPIRED status; the transition
// table governs request-driven changes only.
func (l *Listing) Expire(now time.Time) error {
	if !l.IsExpiredAsOf(now) {
		return shared.NewDomainError("NOT_EXPIRED",
			fmt.Sprintf("Listing expiration date has not passed (status %s)", l.Status))
	}

	previous := l.Status
	l.Status = ListingStatusExpired
	l.UpdatedAt = time.Now()
	l.IncrementVersion()

	l.AddDomainEvent(NewListingStatusChangedEvent(l, previous, ListingStatusExpired, "Expiration date passed"))

	return nil
}

// IsDueForActivation returns true when a COMING_SOON listing's availability
// date has arrived
func (l *Listing) IsDueForActivation(now time.Time) bool {
	return l.Status == ListingStatusComingSoon && !l.AvailabilityDate.After(now)
}

// ExtendExpiration pushes the expiration date forward
func (l *Listing) ExtendExpiration(newExpiration time.Time) error {
	if !newExpiration.After(l.ExpirationDate) {
		return shared.NewDomainError("INVALID_EXPIRATION",
			"New expiration date must be after the current expiration date")
	}
	l.ExpirationDate = newExpiration
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
	return nil
}
