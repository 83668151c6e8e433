package listing

import (
	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// Event type names for listing events
const (
	EventTypeListingStatusChanged  = "ListingStatusChanged"
	EventTypeListingRemoved        = "ListingRemoved"
	EventTypeListingRemovalPending = "ListingRemovalPending"
	EventTypeRelistPromptRaised    = "RelistPromptRaised"
)

// ListingStatusChangedEvent is raised on creation and on every transition
type ListingStatusChangedEvent struct {
	shared.BaseDomainEvent
	ListingID      uuid.UUID     `json:"listing_id"`
	UnitID         uuid.UUID     `json:"unit_id"`
	PreviousStatus ListingStatus `json:"previous_status"`
	NewStatus      ListingStatus `json:"new_status"`
	Reason         string        `json:"reason,omitempty"`
}

// EventType returns the event type name
func (e *ListingStatusChangedEvent) EventType() string {
	return EventTypeListingStatusChanged
}

// NewListingStatusChangedEvent creates a new ListingStatusChangedEvent
func NewListingStatusChangedEvent(lst *Listing, previous, next ListingStatus, reason string) *ListingStatusChangedEvent {
	return &ListingStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingStatusChanged, "Listing", lst.ID, lst.OrganizationID),
		ListingID:       lst.ID,
		UnitID:          lst.UnitID,
		PreviousStatus:  previous,
		NewStatus:       next,
		Reason:          reason,
	}
}

// ListingRemovedEvent is raised when a listing record is deleted, either by
// the owner or automatically when a lease on the unit activates
type ListingRemovedEvent struct {
	shared.BaseDomainEvent
	ListingID uuid.UUID `json:"listing_id"`
	UnitID    uuid.UUID `json:"unit_id"`
	Reason    string    `json:"reason"`
	Automatic bool      `json:"automatic"`
}

// EventType returns the event type name
func (e *ListingRemovedEvent) EventType() string {
	return EventTypeListingRemoved
}

// NewListingRemovedEvent creates a new ListingRemovedEvent
func NewListingRemovedEvent(lst *Listing, reason string, automatic bool) *ListingRemovedEvent {
	return &ListingRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingRemoved, "Listing", lst.ID, lst.OrganizationID),
		ListingID:       lst.ID,
		UnitID:          lst.UnitID,
		Reason:          reason,
		Automatic:       automatic,
	}
}

// ListingRemovalPendingEvent warns the listing owner that a signed lease on
// the unit will take the listing down once it activates
type ListingRemovalPendingEvent struct {
	shared.BaseDomainEvent
	ListingID uuid.UUID `json:"listing_id"`
	UnitID    uuid.UUID `json:"unit_id"`
	LeaseID   uuid.UUID `json:"lease_id"`
}

// EventType returns the event type name
func (e *ListingRemovalPendingEvent) EventType() string {
	return EventTypeListingRemovalPending
}

// NewListingRemovalPendingEvent creates a new ListingRemovalPendingEvent
func NewListingRemovalPendingEvent(lst *Listing, leaseID uuid.UUID) *ListingRemovalPendingEvent {
	return &ListingRemovalPendingEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeListingRemovalPending, "Listing", lst.ID, lst.OrganizationID),
		ListingID:       lst.ID,
		UnitID:          lst.UnitID,
		LeaseID:         leaseID,
	}
}

// RelistPromptRaisedEvent asks the property manager whether a vacated unit
// should be relisted. Listings are never auto-created, pricing needs a human.
type RelistPromptRaisedEvent struct {
	shared.BaseDomainEvent
	UnitID     uuid.UUID `json:"unit_id"`
	PropertyID uuid.UUID `json:"property_id"`
	LeaseID    uuid.UUID `json:"lease_id"`
	Reason     string    `json:"reason"`
}

// EventType returns the event type name
func (e *RelistPromptRaisedEvent) EventType() string {
	return EventTypeRelistPromptRaised
}

// NewRelistPromptRaisedEvent creates a new RelistPromptRaisedEvent
func NewRelistPromptRaisedEvent(organizationID, unitID, propertyID, leaseID uuid.UUID, reason string) *RelistPromptRaisedEvent {
	return &RelistPromptRaisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRelistPromptRaised, "Unit", unitID, organizationID),
		UnitID:          unitID,
		PropertyID:      propertyID,
		LeaseID:         leaseID,
		Reason:          reason,
	}
}
