package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/propfolio/backend/internal/application/billing"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
)

// UtilityBillHandler handles utility bill API endpoints
type UtilityBillHandler struct {
	BaseHandler
	billService *billingapp.UtilityBillService
}

// NewUtilityBillHandler creates a new UtilityBillHandler
func NewUtilityBillHandler(billService *billingapp.UtilityBillService) *UtilityBillHandler {
	return &UtilityBillHandler{billService: billService}
}

// RegisterRoutes registers utility bill routes
func (h *UtilityBillHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/utility-bills")
	bills.POST("", h.Create)
	bills.GET("", h.List)
	bills.GET("/:id", h.GetByID)
	bills.POST("/:id/process", h.StartProcessing)
	bills.PUT("/:id/allocations", h.AddAllocations)
	bills.POST("/:id/review", h.RequestReview)
	bills.POST("/:id/approve", h.Approve)
	bills.POST("/:id/reject", h.Reject)
	bills.POST("/:id/invoices", h.GenerateInvoices)
	bills.POST("/:id/post", h.Post)
}

// CreateUtilityBillRequest is the request body for creating a utility bill
type CreateUtilityBillRequest struct {
	PropertyID    string   `json:"property_id" binding:"required,uuid"`
	ProviderName  string   `json:"provider_name" binding:"required,min=1,max=200"`
	TotalAmount   float64  `json:"total_amount" binding:"required,gt=0"`
	BillDate      string   `json:"bill_date" binding:"required,dateonly"`
	DueDate       string   `json:"due_date" binding:"required,dateonly"`
	SplitMethod   string   `json:"split_method" binding:"required,oneof=EQUAL OCCUPANCY_BASED SQ_FOOTAGE SUB_METERED CUSTOM_RATIO AI_OPTIMIZED"`
	ImportMethod  string   `json:"import_method" binding:"omitempty,oneof=MANUAL OCR_UPLOAD EMAIL PROVIDER_API"`
	OCRConfidence *float64 `json:"ocr_confidence" binding:"omitempty,gte=0,lte=1"`
}

// AllocationRequestInput is one requested unit share
type AllocationRequestInput struct {
	UnitID     string  `json:"unit_id" binding:"required,uuid"`
	Amount     float64 `json:"amount" binding:"omitempty,gte=0"`
	Percentage float64 `json:"percentage" binding:"omitempty,gte=0,lte=100"`
}

// AddAllocationsRequest is the request body for attaching allocations
type AddAllocationsRequest struct {
	Allocations []AllocationRequestInput `json:"allocations" binding:"required,min=1,dive"`
}

// ReasonRequest carries a free-text reason for review and reject actions
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// UtilityBillResponse represents a utility bill in API responses
type UtilityBillResponse struct {
	ID             string               `json:"id"`
	OrganizationID string               `json:"organization_id"`
	PropertyID     string               `json:"property_id"`
	ProviderName   string               `json:"provider_name"`
	TotalAmount    float64              `json:"total_amount"`
	BillDate       time.Time            `json:"bill_date"`
	DueDate        time.Time            `json:"due_date"`
	Status         string               `json:"status"`
	SplitMethod    string               `json:"split_method"`
	ImportMethod   string               `json:"import_method"`
	OCRConfidence  *float64             `json:"ocr_confidence,omitempty"`
	JournalEntryID *string              `json:"journal_entry_id,omitempty"`
	AuditHash      string               `json:"audit_hash,omitempty"`
	Allocations    []AllocationResponse `json:"allocations"`
	ReviewReason   string               `json:"review_reason,omitempty"`
	RejectReason   string               `json:"reject_reason,omitempty"`
	ApprovedAt     *time.Time           `json:"approved_at,omitempty"`
	PostedAt       *time.Time           `json:"posted_at,omitempty"`
	RejectedAt     *time.Time           `json:"rejected_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Version        int                  `json:"version"`
}

// AllocationResponse is one unit's computed share in API responses
type AllocationResponse struct {
	UnitID     string  `json:"unit_id"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// InvoiceResponse represents a generated invoice in API responses
type InvoiceResponse struct {
	ID            string    `json:"id"`
	LeaseID       string    `json:"lease_id"`
	Type          string    `json:"type"`
	TotalAmount   float64   `json:"total_amount"`
	Balance       float64   `json:"balance"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
	UtilityBillID *string   `json:"utility_bill_id,omitempty"`
}

// Create creates a new utility bill in DRAFT
func (h *UtilityBillHandler) Create(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}

	var req CreateUtilityBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		h.BadRequest(c, "Invalid property ID format")
		return
	}

	billDate, err := time.Parse("2006-01-02", req.BillDate)
	if err != nil {
		h.BadRequest(c, "Invalid bill date, expected YYYY-MM-DD")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due date, expected YYYY-MM-DD")
		return
	}

	importMethod := billing.ImportMethodManual
	if req.ImportMethod != "" {
		importMethod = billing.ImportMethod(req.ImportMethod)
	}

	appReq := billingapp.CreateBillRequest{
		OrganizationID: orgID,
		PropertyID:     propertyID,
		ProviderName:   req.ProviderName,
		TotalAmount:    decimal.NewFromFloat(req.TotalAmount),
		BillDate:       billDate,
		DueDate:        dueDate,
		SplitMethod:    billing.SplitMethod(req.SplitMethod),
		ImportMethod:   importMethod,
	}
	if req.OCRConfidence != nil {
		conf := decimal.NewFromFloat(*req.OCRConfidence)
		appReq.OCRConfidence = &conf
	}

	bill, err := h.billService.CreateBill(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toUtilityBillResponse(bill))
}

// GetByID retrieves a utility bill by ID
func (h *UtilityBillHandler) GetByID(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	bill, err := h.billService.GetBill(c.Request.Context(), billID, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUtilityBillResponse(bill))
}

// List returns a page of utility bills
func (h *UtilityBillHandler) List(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BindingError(c, err)
		return
	}

	filter := billing.UtilityBillFilter{}
	filter.Page = listReq.Page
	filter.PageSize = listReq.PageSize
	filter.OrderBy = listReq.OrderBy
	filter.OrderDir = listReq.OrderDir

	if propertyIDStr := c.Query("property_id"); propertyIDStr != "" {
		propertyID, err := uuid.Parse(propertyIDStr)
		if err != nil {
			h.BadRequest(c, "Invalid property ID format")
			return
		}
		filter.PropertyID = &propertyID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := billing.BillStatus(statusStr)
		filter.Status = &status
	}

	page, err := h.billService.ListBills(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]UtilityBillResponse, len(page.Items))
	for i, bill := range page.Items {
		items[i] = toUtilityBillResponse(bill)
	}

	h.SuccessWithMeta(c, items, page.Total, filter.Page, filter.PageSize)
}

// StartProcessing moves a DRAFT bill into PROCESSING
func (h *UtilityBillHandler) StartProcessing(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	bill, err := h.billService.TransitionToProcessing(c.Request.Context(), billID, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUtilityBillResponse(bill))
}

// AddAllocations attaches the unit allocations for a bill
func (h *UtilityBillHandler) AddAllocations(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	var req AddAllocationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	requests := make([]billingapp.AllocationRequest, len(req.Allocations))
	for i, a := range req.Allocations {
		unitID, err := uuid.Parse(a.UnitID)
		if err != nil {
			h.BadRequest(c, "Invalid unit ID format")
			return
		}
		requests[i] = billingapp.AllocationRequest{
			UnitID:     unitID,
			Amount:     decimal.NewFromFloat(a.Amount),
			Percentage: decimal.NewFromFloat(a.Percentage),
		}
	}

	bill, err := h.billService.AddAllocations(c.Request.Context(), billID, orgID, requests)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUtilityBillResponse(bill))
}

// RequestReview flags a PROCESSING bill for manual review
func (h *UtilityBillHandler) RequestReview(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	bill, err := h.billService.RequestReview(c.Request.Context(), billID, orgID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUtilityBillResponse(bill))
}

// Approve approves a bill for posting
func (h *UtilityBillHandler) Approve(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return
	}

	bill, err := h.billService.ApproveBill(c.Request.Context(), billID, orgID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUtilityBillResponse(bill))
}

// Reject rejects a bill with a reason
func (h *UtilityBillHandler) Reject(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	bill, err := h.billService.RejectBill(c.Request.Context(), billID, orgID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUtilityBillResponse(bill))
}

// GenerateInvoices creates tenant invoices from the bill's allocations
func (h *UtilityBillHandler) GenerateInvoices(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	invoices, err := h.billService.GenerateInvoicesForBill(c.Request.Context(), billID, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = toInvoiceResponse(inv)
	}

	h.Created(c, items)
}

// Post posts an APPROVED bill to the ledger
func (h *UtilityBillHandler) Post(c *gin.Context) {
	orgID, billID, ok := h.scopedID(c)
	if !ok {
		return
	}

	bill, err := h.billService.PostUtilityBill(c.Request.Context(), billID, orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toUtilityBillResponse(bill))
}

// scopedID pulls the organization scope and bill ID out of the request
func (h *UtilityBillHandler) scopedID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return uuid.Nil, uuid.Nil, false
	}

	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid bill ID format")
		return uuid.Nil, uuid.Nil, false
	}

	return orgID, billID, true
}

func toUtilityBillResponse(bill *billing.UtilityBill) UtilityBillResponse {
	resp := UtilityBillResponse{
		ID:             bill.ID.String(),
		OrganizationID: bill.OrganizationID.String(),
		PropertyID:     bill.PropertyID.String(),
		ProviderName:   bill.ProviderName,
		TotalAmount:    bill.TotalAmount.InexactFloat64(),
		BillDate:       bill.BillDate,
		DueDate:        bill.DueDate,
		Status:         string(bill.Status),
		SplitMethod:    string(bill.SplitMethod),
		ImportMethod:   string(bill.ImportMethod),
		AuditHash:      bill.AuditHash,
		ReviewReason:   bill.ReviewReason,
		RejectReason:   bill.RejectReason,
		ApprovedAt:     bill.ApprovedAt,
		PostedAt:       bill.PostedAt,
		RejectedAt:     bill.RejectedAt,
		CreatedAt:      bill.CreatedAt,
		UpdatedAt:      bill.UpdatedAt,
		Version:        bill.Version,
	}
	if bill.OCRConfidence != nil {
		conf := bill.OCRConfidence.InexactFloat64()
		resp.OCRConfidence = &conf
	}
	if bill.JournalEntryID != nil {
		id := bill.JournalEntryID.String()
		resp.JournalEntryID = &id
	}
	resp.Allocations = make([]AllocationResponse, len(bill.Allocations))
	for i, a := range bill.Allocations {
		resp.Allocations[i] = AllocationResponse{
			UnitID:     a.UnitID.String(),
			Amount:     a.Amount.InexactFloat64(),
			Percentage: a.Percentage.InexactFloat64(),
		}
	}
	return resp
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:          inv.ID.String(),
		LeaseID:     inv.LeaseID.String(),
		Type:        string(inv.Type),
		TotalAmount: inv.TotalAmount.InexactFloat64(),
		Balance:     inv.Balance.InexactFloat64(),
		DueDate:     inv.DueDate,
		Status:      string(inv.Status),
	}
	if inv.UtilityBillID != nil {
		id := inv.UtilityBillID.String()
		resp.UtilityBillID = &id
	}
	return resp
}
