package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propfolio/backend/internal/application/payment"
)

// SimulatedGateway is a local stand-in for an external payment provider.
// It approves every charge except a few magic amounts used in sandbox
// testing, mirroring how card processors expose decline scenarios.
type SimulatedGateway struct {
	logger *zap.Logger
}

// NewSimulatedGateway creates a new SimulatedGateway
func NewSimulatedGateway(logger *zap.Logger) *SimulatedGateway {
	return &SimulatedGateway{logger: logger}
}

// declineCents maps sandbox trigger amounts to decline messages
var declineCents = map[string]string{
	"666.00": "card declined by issuer",
	"667.00": "insufficient funds",
}

// Charge simulates submitting the charge to a provider
func (g *SimulatedGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reference := fmt.Sprintf("SIM-%s", strings.ToUpper(uuid.New().String()[:12]))

	if msg, ok := declineCents[req.Amount.StringFixed(2)]; ok {
		g.logger.Info("Simulated gateway declined charge",
			zap.String("reference", reference),
			zap.String("reason", msg))
		return &payment.ChargeResult{Reference: reference, Succeeded: false, Message: msg}, nil
	}

	g.logger.Debug("Simulated gateway approved charge",
		zap.String("reference", reference),
		zap.String("currency", req.Currency))
	return &payment.ChargeResult{Reference: reference, Succeeded: true, Message: "approved"}, nil
}
