package listing

import (
	"context"

	"github.com/propfolio/backend/internal/domain/listing"
	"go.uber.org/zap"
)

// auditService writes listing audit rows fire-and-observe: a failed write
// is logged and dropped, never surfaced to the primary operation.
type auditService struct {
	repo   listing.AuditRepository
	logger *zap.Logger
}

// NewAuditService creates the standard audit recorder
func NewAuditService(repo listing.AuditRepository, logger *zap.Logger) listing.AuditService {
	return &auditService{repo: repo, logger: logger}
}

// Record appends one audit row
func (s *auditService) Record(ctx context.Context, input listing.AuditInput) {
	entry, err := listing.NewListingAuditEntry(input)
	if err != nil {
		s.logger.Warn("invalid listing audit input dropped",
			zap.String("unit_id", input.UnitID.String()),
			zap.String("action", string(input.Action)),
			zap.Error(err))
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("listing audit write failed",
			zap.String("unit_id", input.UnitID.String()),
			zap.String("action", string(input.Action)),
			zap.Error(err))
	}
}
