package listing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/propfolio/backend/internal/domain/listing"
	"github.com/propfolio/backend/internal/domain/shared"
)

// RelistPromptHandler reacts to relist prompts raised when a lease ends.
// The unit is never auto-relisted; this handler records the prompt on the
// unit's audit trail so the manager sees the pending pricing decision.
type RelistPromptHandler struct {
	audit  listing.AuditService
	logger *zap.Logger
}

// NewRelistPromptHandler creates a new RelistPromptHandler
func NewRelistPromptHandler(audit listing.AuditService, logger *zap.Logger) *RelistPromptHandler {
	return &RelistPromptHandler{audit: audit, logger: logger}
}

// EventTypes returns the event types this handler subscribes to
func (h *RelistPromptHandler) EventTypes() []string {
	return []string{listing.EventTypeRelistPromptRaised}
}

// Handle records the relist prompt against the unit
func (h *RelistPromptHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	prompt, ok := event.(*listing.RelistPromptRaisedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", event, event.EventType())
	}

	h.logger.Info("Unit vacated, relist decision pending",
		zap.String("unit_id", prompt.UnitID.String()),
		zap.String("property_id", prompt.PropertyID.String()),
		zap.String("lease_id", prompt.LeaseID.String()),
		zap.String("reason", prompt.Reason))

	h.audit.Record(ctx, listing.AuditInput{
		OrganizationID: prompt.OrganizationID(),
		UnitID:         prompt.UnitID,
		Action:         listing.AuditActionUpdate,
		Reason:         "Relist prompt raised: " + prompt.Reason,
		Metadata:       fmt.Sprintf(`{"lease_id":%q}`, prompt.LeaseID),
	})
	return nil
}
