package scheduler

import (
	"context"
	"time"

	"fieldserve_backend/internal/events"
	risksvc "fieldserve_backend/internal/risk/service"
	"fieldserve_backend/platform/logger"
)

const defaultSLAPollInterval = 15 * time.Minute

// SLAPoll periodically flags jobs that missed their timing expectations:
// no start within 24 hours of assignment, or runtime past 1.5 times the
// estimate. Findings are published for the notification module; the poll
// itself changes no job state.
type SLAPoll struct {
	risk     *risksvc.Service
	bus      events.Bus
	log      *logger.Logger
	interval time.Duration
}

func NewSLAPoll(risk *risksvc.Service, bus events.Bus, log *logger.Logger, interval time.Duration) *SLAPoll {
	if interval <= 0 {
		interval = defaultSLAPollInterval
	}
	return &SLAPoll{risk: risk, bus: bus, log: log, interval: interval}
}

func (p *SLAPoll) Run(ctx context.Context) {
	if p == nil || p.risk == nil {
		return
	}

	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *SLAPoll) poll(ctx context.Context) {
	breaches, err := p.risk.SLABreaches(ctx)
	if err != nil {
		p.log.Warn("sla poll failed", "error", err)
		return
	}

	for _, b := range breaches {
		p.bus.Publish(ctx, events.SLABreached{
			BaseEvent:    events.NewBaseEvent(),
			JobID:        b.JobID,
			JobNumber:    b.JobNumber,
			TechnicianID: b.TechnicianID,
			Breach:       b.Breach,
		})
	}

	if len(breaches) > 0 {
		p.log.Info("sla poll flagged jobs", "count", len(breaches))
	}
}
