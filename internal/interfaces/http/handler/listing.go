package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	listingapp "github.com/propfolio/backend/internal/application/listing"
	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/infrastructure/scheduler"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
)

// ListingHandler handles listing API endpoints
type ListingHandler struct {
	BaseHandler
	listings *listingapp.ListingService
	bulk     *listingapp.BulkService
	sweeper  *scheduler.ListingSweepScheduler
}

// NewListingHandler creates a new ListingHandler. sweeper may be nil when
// the background sweep is disabled.
func NewListingHandler(
	listings *listingapp.ListingService,
	bulk *listingapp.BulkService,
	sweeper *scheduler.ListingSweepScheduler,
) *ListingHandler {
	return &ListingHandler{listings: listings, bulk: bulk, sweeper: sweeper}
}

// RegisterRoutes registers listing routes
func (h *ListingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	listings := rg.Group("/listings")
	listings.POST("", h.Create)
	listings.GET("/expiring-soon", h.ExpiringSoon)
	listings.POST("/bulk", h.BulkUpdate)
	listings.POST("/sweep", h.TriggerSweep)
	listings.GET("/:id", h.GetByID)
	listings.PUT("/:id/status", h.UpdateStatus)
	listings.PUT("/:id/expiration", h.Extend)
	listings.DELETE("/:id", h.Remove)
}

// CreateListingRequest is the request body for creating a listing
type CreateListingRequest struct {
	UnitID           string     `json:"unit_id" binding:"required,uuid"`
	Title            string     `json:"title" binding:"omitempty,max=200"`
	Description      string     `json:"description" binding:"omitempty,max=5000"`
	Price            float64    `json:"price" binding:"omitempty,gte=0"`
	AvailabilityDate *time.Time `json:"availability_date"`
	ExpirationDate   *time.Time `json:"expiration_date"`
}

// UpdateListingStatusRequest is the request body for a status transition
type UpdateListingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PRIVATE PENDING COMING_SOON ACTIVE SUSPENDED EXPIRED MAINTENANCE"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// RemoveListingRequest is the request body for removing a listing
type RemoveListingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ExtendListingRequest is the request body for pushing out expiration
type ExtendListingRequest struct {
	ExpirationDate time.Time `json:"expiration_date" binding:"required"`
}

// BulkListingRequest is the request body for a bulk listing batch
type BulkListingRequest struct {
	Operations []BulkOperationRequest `json:"operations" binding:"required,min=1,dive"`
}

// BulkOperationRequest is one per-unit operation in a bulk batch
type BulkOperationRequest struct {
	UnitID      string                `json:"unit_id" binding:"required,uuid"`
	Action      string                `json:"action" binding:"required,oneof=LIST UNLIST SUSPEND ACTIVATE"`
	ListingData *CreateListingRequest `json:"listing_data"`
	Reason      string                `json:"reason" binding:"omitempty,max=500"`
}

// ListingResponse represents a listing in API responses
type ListingResponse struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organization_id"`
	UnitID           string    `json:"unit_id"`
	PropertyID       string    `json:"property_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Price            float64   `json:"price"`
	AvailabilityDate time.Time `json:"availability_date"`
	ExpirationDate   time.Time `json:"expiration_date"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int       `json:"version"`
}

// Create creates a new listing for a unit
func (h *ListingHandler) Create(c *gin.Context) {
	orgID, actorID, ok := h.actorScope(c)
	if !ok {
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		h.BadRequest(c, "Invalid unit ID format")
		return
	}

	lst, err := h.listings.CreateListing(c.Request.Context(), orgID, unitID, actorID, toCreateParams(&req))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toListingResponse(lst))
}

// GetByID retrieves a listing by ID
func (h *ListingHandler) GetByID(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	lst, err := h.listings.GetListing(c.Request.Context(), listingID, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toListingResponse(lst))
}

// UpdateStatus transitions a listing to a new status
func (h *ListingHandler) UpdateStatus(c *gin.Context) {
	orgID, actorID, ok := h.actorScope(c)
	if !ok {
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	var req UpdateListingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	lst, err := h.listings.UpdateListingStatus(
		c.Request.Context(), listingID, orgID, actorID,
		listing.ListingStatus(req.Status), req.Reason,
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toListingResponse(lst))
}

// Remove deletes a listing, subject to the active-lease guard
func (h *ListingHandler) Remove(c *gin.Context) {
	orgID, actorID, ok := h.actorScope(c)
	if !ok {
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	var req RemoveListingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BindingError(c, err)
		return
	}

	if err := h.listings.RemoveListing(c.Request.Context(), listingID, orgID, actorID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Extend pushes out a listing's expiration date
func (h *ListingHandler) Extend(c *gin.Context) {
	orgID, actorID, ok := h.actorScope(c)
	if !ok {
		return
	}

	listingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid listing ID format")
		return
	}

	var req ExtendListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	lst, err := h.listings.ExtendListingExpiration(c.Request.Context(), listingID, orgID, actorID, req.ExpirationDate)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toListingResponse(lst))
}

// ExpiringSoon returns active listings expiring within the given window
func (h *ListingHandler) ExpiringSoon(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}

	within := 7 * 24 * time.Hour
	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			h.BadRequest(c, "Invalid days parameter")
			return
		}
		within = time.Duration(days) * 24 * time.Hour
	}

	listings, err := h.listings.GetExpiringSoonListings(c.Request.Context(), orgID, within)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]ListingResponse, len(listings))
	for i, lst := range listings {
		items[i] = toListingResponse(lst)
	}

	h.Success(c, items)
}

// BulkUpdate applies one listing action per unit across a batch
func (h *ListingHandler) BulkUpdate(c *gin.Context) {
	orgID, actorID, ok := h.actorScope(c)
	if !ok {
		return
	}

	var req BulkListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	operations := make([]listingapp.BulkOperation, len(req.Operations))
	for i, op := range req.Operations {
		unitID, err := uuid.Parse(op.UnitID)
		if err != nil {
			h.BadRequest(c, "Invalid unit ID format")
			return
		}
		operations[i] = listingapp.BulkOperation{
			UnitID: unitID,
			Action: listingapp.BulkAction(op.Action),
			Reason: op.Reason,
		}
		if op.ListingData != nil {
			params := toCreateParams(op.ListingData)
			operations[i].ListingData = &params
		}
	}

	result, err := h.bulk.BulkUpdateListings(c.Request.Context(), orgID, actorID, operations)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// TriggerSweep kicks off one time-based transition pass. The pass runs in
// the background; callers observe its effect through listing statuses.
func (h *ListingHandler) TriggerSweep(c *gin.Context) {
	if h.sweeper == nil {
		h.Error(c, http.StatusServiceUnavailable, "SWEEP_UNAVAILABLE", "Listing sweep is not enabled")
		return
	}

	if err := h.sweeper.TriggerImmediateSweep(c.Request.Context()); err != nil {
		if errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			h.Error(c, http.StatusServiceUnavailable, "SWEEP_UNAVAILABLE", "Listing sweep is not running")
			return
		}
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(gin.H{"status": "sweep scheduled"}))
}

// actorScope pulls the organization and acting user out of the request
func (h *ListingHandler) actorScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return uuid.Nil, uuid.Nil, false
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, actorID, true
}

func toCreateParams(req *CreateListingRequest) listing.CreateParams {
	params := listing.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Price:       decimal.NewFromFloat(req.Price),
	}
	if req.AvailabilityDate != nil {
		params.AvailabilityDate = *req.AvailabilityDate
	}
	if req.ExpirationDate != nil {
		params.ExpirationDate = *req.ExpirationDate
	}
	return params
}

func toListingResponse(lst *listing.Listing) ListingResponse {
	return ListingResponse{
		ID:               lst.ID.String(),
		OrganizationID:   lst.OrganizationID.String(),
		UnitID:           lst.UnitID.String(),
		PropertyID:       lst.PropertyID.String(),
		Title:            lst.Title,
		Description:      lst.Description,
		Price:            lst.Price.InexactFloat64(),
		AvailabilityDate: lst.AvailabilityDate,
		ExpirationDate:   lst.ExpirationDate,
		Status:           string(lst.Status),
		CreatedAt:        lst.CreatedAt,
		UpdatedAt:        lst.UpdatedAt,
		Version:          lst.Version,
	}
}
