package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/billing"
	"github.com/propfolio/backend/internal/domain/fraud"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ChargeRequest is a request to collect money against an invoice
type ChargeRequest struct {
	OrganizationID uuid.UUID
	InvoiceID      uuid.UUID
	ActorID        uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Method         string
	PayerEmail     string
	PaymentRegion  string
	ExpectedRegion string
}

// ChargeResult is the gateway's answer to a charge
type ChargeResult struct {
	Reference string
	Succeeded bool
	Message   string
}

// Gateway submits charges to an external payment provider. Gateway
// failures surface as errors the caller can classify as retryable.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// AttemptTracker counts recent payment attempts for the velocity signal
type AttemptTracker interface {
	CountRecent(ctx context.Context, actorID uuid.UUID, window time.Duration) (int, error)
	RecordAttempt(ctx context.Context, actorID uuid.UUID) error
}

// velocityWindow is the look-back horizon for the velocity fraud signal
const velocityWindow = 15 * time.Minute

// PaymentService gates charges through validation and fraud scoring before
// the gateway sees them, then applies the result to the invoice.
type PaymentService struct {
	invoiceRepo billing.InvoiceRepository
	gateway     Gateway
	scorer      *fraud.Scorer
	attempts    AttemptTracker
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo billing.InvoiceRepository,
	gateway Gateway,
	scorer *fraud.Scorer,
	attempts AttemptTracker,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		gateway:     gateway,
		scorer:      scorer,
		attempts:    attempts,
		logger:      logger,
	}
}

// ProcessPayment validates, scores and submits a charge, then records the
// payment on the invoice. Validation failures come back as the full list
// of violated rules; a fraud BLOCK stops the request before the gateway is
// touched and surfaces only a generic message.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ChargeRequest) (_ *billing.Payment, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "charge",
		attribute.String("invoice.id", req.InvoiceID.String()))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()

	if verrs := validateChargeRequest(req); verrs != nil {
		return nil, verrs
	}

	invoice, err := s.invoiceRepo.FindByIDForOrg(ctx, req.InvoiceID, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}

	recent, err := s.attempts.CountRecent(ctx, req.ActorID, velocityWindow)
	if err != nil {
		// The velocity signal degrades to zero rather than blocking payments
		s.logger.Warn("attempt counter unavailable, velocity signal degraded",
			zap.String("actor_id", req.ActorID.String()), zap.Error(err))
		recent = 0
	}

	assessment := s.scorer.Assess(ctx, fraud.PaymentContext{
		OrganizationID: req.OrganizationID,
		ActorID:        req.ActorID,
		PayerEmail:     req.PayerEmail,
		Amount:         req.Amount,
		Currency:       req.Currency,
		ExpectedRegion: req.ExpectedRegion,
		PaymentRegion:  req.PaymentRegion,
		AttemptedAt:    time.Now(),
		RecentAttempts: recent,
		RecentWindow:   velocityWindow,
	})

	switch assessment.Recommendation {
	case fraud.RecommendationBlock:
		s.logger.Warn("payment blocked by fraud scoring",
			zap.String("invoice_id", req.InvoiceID.String()),
			zap.String("actor_id", req.ActorID.String()),
			zap.String("score", assessment.Score.String()),
			zap.Int("rules_failed", assessment.RulesFailed))
		// The caller sees a generic message; score and rule names stay internal
		return nil, shared.NewDomainError("FRAUD_BLOCKED",
			"This payment has been flagged for review. Please contact support.")
	case fraud.RecommendationReview:
		s.logger.Info("payment flagged for review, proceeding",
			zap.String("invoice_id", req.InvoiceID.String()),
			zap.String("score", assessment.Score.String()))
	}

	if err := s.attempts.RecordAttempt(ctx, req.ActorID); err != nil {
		s.logger.Warn("failed to record payment attempt",
			zap.String("actor_id", req.ActorID.String()), zap.Error(err))
	}

	result, err := s.gateway.Charge(ctx, req)
	if err != nil {
		return nil, shared.NewDomainError("GATEWAY_ERROR",
			fmt.Sprintf("Payment gateway failed: %s", err.Error()))
	}
	if !result.Succeeded {
		return nil, shared.NewDomainError("PAYMENT_DECLINED", result.Message)
	}

	payment, err := invoice.ApplyPayment(req.Amount, req.Method, result.Reference, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("payment collected",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("reference", result.Reference),
		zap.String("amount", req.Amount.String()),
		zap.String("balance", invoice.Balance.String()))

	return payment, nil
}
