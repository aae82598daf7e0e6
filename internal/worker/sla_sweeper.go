package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opsledger/lifecycle-service/internal/service"
)

// Sweeps is the part of the lifecycle engine the sweeper drives.
type Sweeps interface {
	SweepOverdue(ctx context.Context) (int, error)
	ScanBreaches(ctx context.Context, window time.Duration) (service.BreachScan, error)
	PublishBreach(ctx context.Context, breach service.Breach)
}

// SweeperConfig tunes the periodic sweeps.
type SweeperConfig struct {
	Interval     time.Duration
	AtRiskWindow time.Duration
	DedupTTL     time.Duration
}

// Sweeper periodically moves past-due invoices to overdue and announces SLA
// breaches once per ticket deadline.
type Sweeper struct {
	sweeps Sweeps
	dedup  Deduper
	cfg    SweeperConfig
	logger *zap.Logger
}

// NewSweeper builds a sweeper. A nil deduper falls back to process memory.
func NewSweeper(sweeps Sweeps, dedup Deduper, cfg SweeperConfig, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dedup == nil {
		dedup = NewMemoryDeduper(nil)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	return &Sweeper{sweeps: sweeps, dedup: dedup, cfg: cfg, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("sla sweeper started", zap.Duration("interval", s.cfg.Interval))
	for {
		s.RunOnce(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("sla sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single overdue sweep and breach scan and returns the number
// of breaches announced.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	if _, err := s.sweeps.SweepOverdue(ctx); err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
	}

	scan, err := s.sweeps.ScanBreaches(ctx, s.cfg.AtRiskWindow)
	if err != nil {
		s.logger.Error("sla breach scan failed", zap.Error(err))
		return 0
	}
	announced := 0
	for _, breach := range scan.Breaches {
		claimed, err := s.dedup.Claim(ctx, BreachKey(breach), s.cfg.DedupTTL)
		if err != nil {
			// fail open
			s.logger.Warn("breach dedup unavailable", zap.Error(err))
			claimed = true
		}
		if !claimed {
			continue
		}
		s.sweeps.PublishBreach(ctx, breach)
		announced++
	}
	return announced
}

// BreachKey identifies one deadline of one ticket.
func BreachKey(b service.Breach) string {
	return fmt.Sprintf("sla:breach:%s:%s", b.Ticket.ID, b.Deadline)
}
