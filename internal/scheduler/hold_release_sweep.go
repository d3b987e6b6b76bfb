package scheduler

import (
	"context"
	"time"

	escrowsvc "fieldserve_backend/internal/escrow/service"
	"fieldserve_backend/platform/logger"
)

const (
	defaultHoldReleaseSweepInterval = time.Hour
	holdReleaseSweepBatch           = 500
)

// HoldReleaseSweep is the safety net behind the per-job hold-release
// timers: it releases any held split past its window whose timer was lost.
// Releasing is idempotent, so overlap with a late timer is harmless.
type HoldReleaseSweep struct {
	escrow   *escrowsvc.Service
	log      *logger.Logger
	interval time.Duration
}

func NewHoldReleaseSweep(escrow *escrowsvc.Service, log *logger.Logger, interval time.Duration) *HoldReleaseSweep {
	if interval <= 0 {
		interval = defaultHoldReleaseSweepInterval
	}
	return &HoldReleaseSweep{escrow: escrow, log: log, interval: interval}
}

func (s *HoldReleaseSweep) Run(ctx context.Context) {
	if s == nil || s.escrow == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *HoldReleaseSweep) sweep(ctx context.Context) {
	released, err := s.escrow.ReleaseDueHolds(ctx, holdReleaseSweepBatch)
	if err != nil {
		s.log.Warn("hold release sweep failed", "error", err)
		return
	}
	if released > 0 {
		s.log.Info("hold release sweep settled holds", "released", released)
	}
}
