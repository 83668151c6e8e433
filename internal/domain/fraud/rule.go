package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Severity weights a failed rule's contribution to the aggregate score
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Multiplier returns the score weight for the severity
func (s Severity) Multiplier() decimal.Decimal {
	switch s {
	case SeverityLow:
		return decimal.NewFromFloat(0.5)
	case SeverityHigh:
		return decimal.NewFromFloat(2.0)
	case SeverityCritical:
		return decimal.NewFromFloat(5.0)
	default:
		return decimal.NewFromFloat(1.0)
	}
}

// PaymentContext carries the facts a rule may inspect
type PaymentContext struct {
	OrganizationID  uuid.UUID
	ActorID         uuid.UUID
	PayerEmail      string
	Amount          decimal.Decimal
	Currency        string
	ExpectedRegion  string
	PaymentRegion   string
	AttemptedAt     time.Time
	RecentAttempts  int
	RecentWindow    time.Duration
	GatewayProvider string
}

// RuleResult is one rule's verdict on a payment
type RuleResult struct {
	RuleName string
	Passed   bool
	Severity Severity
	Score    int // 0-100 raw score before the severity multiplier
	Detail   string
}

// Rule evaluates one fraud signal. Rules are independent: a rule panic or
// error is contained by the scorer and never fails the overall check.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, payment PaymentContext) (RuleResult, error)
}
