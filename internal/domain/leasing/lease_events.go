package leasing

import (
	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
)

// Event type names for lease lifecycle events
const (
	EventTypeLeaseSigned    = "LeaseSigned"
	EventTypeLeaseActivated = "LeaseActivated"
	EventTypeLeaseEnded     = "LeaseEnded"
)

// LeaseSignedEvent is raised when the tenant signs. Handlers notify the
// property manager; nothing about the unit or listing changes yet.
type LeaseSignedEvent struct {
	shared.BaseDomainEvent
	LeaseID       uuid.UUID `json:"lease_id"`
	PropertyID    uuid.UUID `json:"property_id"`
	UnitID        uuid.UUID `json:"unit_id"`
	TenantPartyID uuid.UUID `json:"tenant_party_id"`
}

// EventType returns the event type name
func (e *LeaseSignedEvent) EventType() string {
	return EventTypeLeaseSigned
}

// NewLeaseSignedEvent creates a new LeaseSignedEvent
func NewLeaseSignedEvent(lease *Lease) *LeaseSignedEvent {
	return &LeaseSignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseSigned, "Lease", lease.ID, lease.OrganizationID),
		LeaseID:         lease.ID,
		PropertyID:      lease.PropertyID,
		UnitID:          lease.UnitID,
		TenantPartyID:   lease.TenantPartyID,
	}
}

// LeaseActivatedEvent is raised when a lease goes into force
type LeaseActivatedEvent struct {
	shared.BaseDomainEvent
	LeaseID    uuid.UUID `json:"lease_id"`
	PropertyID uuid.UUID `json:"property_id"`
	UnitID     uuid.UUID `json:"unit_id"`
}

// EventType returns the event type name
func (e *LeaseActivatedEvent) EventType() string {
	return EventTypeLeaseActivated
}

// NewLeaseActivatedEvent creates a new LeaseActivatedEvent
func NewLeaseActivatedEvent(lease *Lease) *LeaseActivatedEvent {
	return &LeaseActivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseActivated, "Lease", lease.ID, lease.OrganizationID),
		LeaseID:         lease.ID,
		PropertyID:      lease.PropertyID,
		UnitID:          lease.UnitID,
	}
}

// LeaseEndedEvent is raised when a lease reaches EXPIRED or TERMINATED.
// Handlers prompt the manager to relist the now-vacant unit.
type LeaseEndedEvent struct {
	shared.BaseDomainEvent
	LeaseID     uuid.UUID   `json:"lease_id"`
	PropertyID  uuid.UUID   `json:"property_id"`
	UnitID      uuid.UUID   `json:"unit_id"`
	FinalStatus LeaseStatus `json:"final_status"`
	Reason      string      `json:"reason,omitempty"`
}

// EventType returns the event type name
func (e *LeaseEndedEvent) EventType() string {
	return EventTypeLeaseEnded
}

// NewLeaseEndedEvent creates a new LeaseEndedEvent
func NewLeaseEndedEvent(lease *Lease, finalStatus LeaseStatus, reason string) *LeaseEndedEvent {
	return &LeaseEndedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLeaseEnded, "Lease", lease.ID, lease.OrganizationID),
		LeaseID:         lease.ID,
		PropertyID:      lease.PropertyID,
		UnitID:          lease.UnitID,
		FinalStatus:     finalStatus,
		Reason:          reason,
	}
}
