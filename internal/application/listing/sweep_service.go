package listing

import (
	"context"
	"time"

	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/listing"
	"go.uber.org/zap"
)

// SweepResult counts what a sweep pass changed
type SweepResult struct {
	Activated int
	Expired   int
}

// SweepService runs the time-based listing transitions: COMING_SOON
// listings whose availability date has arrived are promoted to ACTIVE, and
// any non-EXPIRED listing past its expiration date moves to EXPIRED. The
// sweep is idempotent: against an already-correct state it performs zero
// writes, so it can run repeatedly or concurrently from a cron trigger.
type SweepService struct {
	repo   listing.ListingRepository
	leases leasing.LeaseRepository
	logger *zap.Logger
}

// NewSweepService creates a new SweepService
func NewSweepService(repo listing.ListingRepository, leases leasing.LeaseRepository, logger *zap.Logger) *SweepService {
	return &SweepService{repo: repo, leases: leases, logger: logger}
}

// ProcessTimeBasedTransitions runs one sweep pass as of now
func (s *SweepService) ProcessTimeBasedTransitions(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	due, err := s.repo.FindDueForActivation(ctx, now)
	if err != nil {
		return result, err
	}
	for _, lst := range due {
		// The repository query and this predicate agree; the re-check keeps
		// a concurrent sweep from double-writing the same listing.
		if !lst.IsDueForActivation(now) {
			continue
		}
		// Same guard as a request-driven activation: a unit under an
		// active lease never carries an ACTIVE listing.
		lease, err := s.leases.FindActiveByUnit(ctx, lst.UnitID)
		if err != nil {
			s.logger.Warn("sweep could not check unit lease, skipping activation",
				zap.String("listing_id", lst.ID.String()), zap.Error(err))
			continue
		}
		if lease != nil {
			s.logger.Warn("sweep skipped activation, unit has an active lease",
				zap.String("listing_id", lst.ID.String()),
				zap.String("unit_id", lst.UnitID.String()))
			continue
		}
		if err := lst.TransitionTo(listing.ListingStatusActive, "Availability date reached"); err != nil {
			s.logger.Warn("sweep could not activate listing",
				zap.String("listing_id", lst.ID.String()), zap.Error(err))
			continue
		}
		if err := s.repo.Save(ctx, lst); err != nil {
			s.logger.Warn("sweep activation write failed",
				zap.String("listing_id", lst.ID.String()), zap.Error(err))
			continue
		}
		result.Activated++
	}

	expired, err := s.repo.FindExpiredAsOf(ctx, now)
	if err != nil {
		return result, err
	}
	for _, lst := range expired {
		if err := lst.Expire(now); err != nil {
			// Stale read: a concurrent sweep already expired it
			continue
		}
		if err := s.repo.Save(ctx, lst); err != nil {
			s.logger.Warn("sweep expiration write failed",
				zap.String("listing_id", lst.ID.String()), zap.Error(err))
			continue
		}
		result.Expired++
	}

	if result.Activated > 0 || result.Expired > 0 {
		s.logger.Info("listing sweep applied transitions",
			zap.Int("activated", result.Activated),
			zap.Int("expired", result.Expired))
	}

	return result, nil
}
