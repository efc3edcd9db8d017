package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs ledger pruning every six hours.
const DefaultPruneSchedule = "@every 6h"

// PruneService prunes the seen ledger on a cron schedule that is independent
// of the poll cycle.
type PruneService struct {
	ledger   *Ledger
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

// NewPruneService creates a PruneService. The schedule accepts standard
// five-field cron expressions and descriptors such as "@daily" or "@every 1h".
func NewPruneService(ledger *Ledger, schedule string) (*PruneService, error) {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	s := &PruneService{
		ledger:   ledger,
		schedule: schedule,
		cron:     cron.New(),
		now:      time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start prunes once, then runs the schedule until ctx is canceled.
func (s *PruneService) Start(ctx context.Context) {
	s.PruneNow(ctx)
	s.cron.Start()
	slog.Info("ledger prune scheduled", "schedule", s.schedule)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	slog.Info("prune service stopped")
}

// PruneNow prunes the ledger immediately and returns the number of entries
// removed.
func (s *PruneService) PruneNow(ctx context.Context) int {
	removed, err := s.ledger.Prune(ctx, s.now())
	if err != nil {
		slog.Error("ledger prune save failed", "removed", removed, "error", err)
		return removed
	}
	if removed > 0 {
		slog.Info("ledger pruned", "removed", removed, "remaining", s.ledger.Len())
	}
	return removed
}

func (s *PruneService) run() {
	s.PruneNow(context.Background())
}
