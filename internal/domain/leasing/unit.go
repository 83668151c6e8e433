package leasing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Unit is a rentable unit within a property
type Unit struct {
	shared.OrgAggregateRoot
	PropertyID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitNumber     string          `gorm:"type:varchar(20);not null"`
	Bedrooms       int             `gorm:"not null"`
	Bathrooms      decimal.Decimal `gorm:"type:decimal(3,1);not null"`
	SquareFootage  int             `gorm:"not null;default:0"`
	MarketRent     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsOccupied     bool            `gorm:"not null;default:false;index"`
	CurrentLeaseID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Unit) TableName() string {
	return "units"
}

// NewUnit creates a new vacant unit
func NewUnit(
	organizationID uuid.UUID,
	propertyID uuid.UUID,
	unitNumber string,
	bedrooms int,
	bathrooms decimal.Decimal,
	squareFootage int,
	marketRent decimal.Decimal,
) (*Unit, error) {
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError("PROPERTY_NOT_FOUND", "Property ID cannot be empty")
	}
	if unitNumber == "" {
		return nil, shared.NewDomainError("INVALID_UNIT_NUMBER", "Unit number cannot be empty")
	}
	if bedrooms < 0 {
		return nil, shared.NewDomainError("INVALID_BEDROOMS", "Bedroom count cannot be negative")
	}
	if bathrooms.LessThan(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_BATHROOMS", "Bathroom count cannot be negative")
	}
	if marketRent.LessThan(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_RENT", "Market rent cannot be negative")
	}

	return &Unit{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(organizationID),
		PropertyID:       propertyID,
		UnitNumber:       unitNumber,
		Bedrooms:         bedrooms,
		Bathrooms:        bathrooms,
		SquareFootage:    squareFootage,
		MarketRent:       marketRent,
	}, nil
}

// Occupy marks the unit as occupied by the given lease
func (u *Unit) Occupy(leaseID uuid.UUID) error {
	if leaseID == uuid.Nil {
		return shared.NewDomainError("INVALID_LEASE", "Lease ID cannot be empty")
	}
	if u.IsOccupied && u.CurrentLeaseID != nil && *u.CurrentLeaseID != leaseID {
		return shared.NewDomainError("UNIT_OCCUPIED",
			fmt.Sprintf("Unit %s is already occupied by another lease", u.UnitNumber))
	}

	id := leaseID
	u.IsOccupied = true
	u.CurrentLeaseID = &id
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// Vacate clears the occupancy. Already-vacant units are left alone so the
// reconciler can run the same transition twice without error.
func (u *Unit) Vacate() {
	if !u.IsOccupied && u.CurrentLeaseID == nil {
		return
	}
	u.IsOccupied = false
	u.CurrentLeaseID = nil
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}
