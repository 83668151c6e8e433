package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	paymentapp "github.com/propfolio/backend/internal/application/payment"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/interfaces/http/dto"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	payments *paymentapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *paymentapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	payments.POST("", h.Charge)
}

// ChargePaymentRequest is the request body for charging an invoice.
// Field-level rules are checked again by the service so that every
// violation is reported in one aggregated response.
type ChargePaymentRequest struct {
	InvoiceID      string  `json:"invoice_id" binding:"required,uuid"`
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency" binding:"required"`
	Method         string  `json:"method" binding:"required"`
	PayerEmail     string  `json:"payer_email" binding:"omitempty"`
	PaymentRegion  string  `json:"payment_region" binding:"omitempty"`
	ExpectedRegion string  `json:"expected_region" binding:"omitempty"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            string    `json:"id"`
	InvoiceID     string    `json:"invoice_id"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Reference     string    `json:"reference,omitempty"`
	PaidOn        time.Time `json:"paid_on"`
	Reversed      bool      `json:"reversed"`
	PostingStatus string    `json:"posting_status"`
}

// Charge processes a payment against an invoice
func (h *PaymentHandler) Charge(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization scope required")
		return
	}
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authenticated user required")
		return
	}

	var req ChargePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	payment, err := h.payments.ProcessPayment(c.Request.Context(), paymentapp.ChargeRequest{
		OrganizationID: orgID,
		InvoiceID:      invoiceID,
		ActorID:        actorID,
		Amount:         decimal.NewFromFloat(req.Amount),
		Currency:       req.Currency,
		Method:         req.Method,
		PayerEmail:     req.PayerEmail,
		PaymentRegion:  req.PaymentRegion,
		ExpectedRegion: req.ExpectedRegion,
	})
	if err != nil {
		var verrs *paymentapp.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]dto.ValidationDetail, len(verrs.Errors))
			for i, fe := range verrs.Errors {
				details[i] = dto.ValidationDetail{Field: fe.Field, Message: fe.Message}
			}
			h.ValidationError(c, details)
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(payment))
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		InvoiceID:     p.InvoiceID.String(),
		Amount:        p.Amount.InexactFloat64(),
		Method:        p.Method,
		Reference:     p.Reference,
		PaidOn:        p.PaidOn,
		Reversed:      p.Reversed,
		PostingStatus: string(p.PostingStatus),
	}
}
