package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	leasingapp "github.com/propfolio/backend/internal/application/leasing"
	"github.com/propfolio/backend/internal/domain/leasing"
)

// LeaseHandler handles lease API endpoints
type LeaseHandler struct {
	BaseHandler
	leases *leasingapp.LeaseService
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(leases *leasingapp.LeaseService) *LeaseHandler {
	return &LeaseHandler{leases: leases}
}

// RegisterRoutes registers lease routes
func (h *LeaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	leases := rg.Group("/leases")
	leases.POST("", h.Create)
	leases.GET("/:id", h.GetByID)
	leases.PUT("/:id/status", h.ChangeStatus)
}

// CreateLeaseRequest is the request body for creating a lease
type CreateLeaseRequest struct {
	PropertyID    string  `json:"property_id" binding:"required,uuid"`
	UnitID        string  `json:"unit_id" binding:"required,uuid"`
	TenantPartyID string  `json:"tenant_party_id" binding:"required,uuid"`
	StartDate     string  `json:"start_date" binding:"required,dateonly"`
	EndDate       string  `json:"end_date" binding:"required,dateonly"`
	RentAmount    float64 `json:"rent_amount" binding:"required,gt=0"`
	DepositAmount float64 `json:"deposit_amount" binding:"omitempty,gte=0"`
}

// ChangeLeaseStatusRequest is the request body for a lease status change
type ChangeLeaseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT PENDING_APPROVAL APPROVED SIGNED ACTIVE EXPIRED TERMINATED"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// LeaseResponse represents a lease in API responses
type LeaseResponse struct {
	ID                string     `json:"id"`
	OrganizationID    string     `json:"organization_id"`
	PropertyID        string     `json:"property_id"`
	UnitID            string     `json:"unit_id"`
	TenantPartyID     string     `json:"tenant_party_id"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	RentAmount        float64    `json:"rent_amount"`
	DepositAmount     float64    `json:"deposit_amount"`
	Status            string     `json:"status"`
	SignedAt          *time.Time `json:"signed_at,omitempty"`
	ActivatedAt       *time.Time `json:"activated_at,omitempty"`
	TerminatedAt      *time.Time `json:"terminated_at,omitempty"`
	TerminationReason string     `json:"termination_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Version           int        `json:"version"`
}

// Create creates a new lease in DRAFT
func (h *LeaseHandler) Create(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}

	var req CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		h.BadRequest(c, "Invalid property ID format")
		return
	}
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		h.BadRequest(c, "Invalid unit ID format")
		return
	}
	tenantPartyID, err := uuid.Parse(req.TenantPartyID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant party ID format")
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		h.BadRequest(c, "Invalid start date, expected YYYY-MM-DD")
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		h.BadRequest(c, "Invalid end date, expected YYYY-MM-DD")
		return
	}

	lease, err := h.leases.CreateLease(c.Request.Context(), leasingapp.CreateLeaseRequest{
		OrganizationID: orgID,
		PropertyID:     propertyID,
		UnitID:         unitID,
		TenantPartyID:  tenantPartyID,
		StartDate:      startDate,
		EndDate:        endDate,
		RentAmount:     decimal.NewFromFloat(req.RentAmount),
		DepositAmount:  decimal.NewFromFloat(req.DepositAmount),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toLeaseResponse(lease))
}

// GetByID retrieves a lease by ID
func (h *LeaseHandler) GetByID(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID format")
		return
	}

	lease, err := h.leases.GetLease(c.Request.Context(), leaseID, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}

// ChangeStatus moves a lease along its lifecycle. Activation occupies the
// unit and removes its listing in the same transaction; termination and
// expiry vacate the unit.
func (h *LeaseHandler) ChangeStatus(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID format")
		return
	}

	var req ChangeLeaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	lease, err := h.leases.ChangeLeaseStatus(
		c.Request.Context(), leaseID, orgID,
		leasing.LeaseStatus(req.Status), req.Reason,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLeaseResponse(lease))
}

func toLeaseResponse(lease *leasing.Lease) LeaseResponse {
	return LeaseResponse{
		ID:                lease.ID.String(),
		OrganizationID:    lease.OrganizationID.String(),
		PropertyID:        lease.PropertyID.String(),
		UnitID:            lease.UnitID.String(),
		TenantPartyID:     lease.TenantPartyID.String(),
		StartDate:         lease.StartDate,
		EndDate:           lease.EndDate,
		RentAmount:        lease.RentAmount.InexactFloat64(),
		DepositAmount:     lease.DepositAmount.InexactFloat64(),
		Status:            string(lease.Status),
		SignedAt:          lease.SignedAt,
		ActivatedAt:       lease.ActivatedAt,
		TerminatedAt:      lease.TerminatedAt,
		TerminationReason: lease.TerminationReason,
		CreatedAt:         lease.CreatedAt,
		UpdatedAt:         lease.UpdatedAt,
		Version:           lease.Version,
	}
}
