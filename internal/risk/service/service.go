// Package service implements the risk engine: reliability metrics for
// technicians and dealers, a composite job risk score, and the recommended
// escrow hold percentage. The engine issues no side effects; the escrow
// manager and lifecycle controller act on its output.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fieldserve_backend/internal/risk/repository"
	"fieldserve_backend/platform/logger"
)

// Assessment is the risk engine's output for one job pairing.
type Assessment struct {
	TechnicianRisk     int      `json:"technicianRisk"`
	DealerRisk         int      `json:"dealerRisk"`
	JobRisk            int      `json:"jobRisk"`
	RecommendedHoldPct float64  `json:"recommendedHoldPct"`
	AutoRelease        bool     `json:"autoRelease"`
	Actions            []string `json:"actions"`
}

// Service provides risk scoring over historical aggregates.
type Service struct {
	repo *repository.Repo
	log  *logger.Logger
}

// New creates the risk service.
func New(repo *repository.Repo, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// TechnicianReliability computes derived reliability metrics for a technician.
func (s *Service) TechnicianReliability(ctx context.Context, technicianID uuid.UUID) (TechnicianMetrics, error) {
	stats, err := s.repo.TechnicianStats(ctx, technicianID)
	if err != nil {
		return TechnicianMetrics{}, fmt.Errorf("technician reliability: %w", err)
	}
	return TechnicianMetricsFromStats(stats), nil
}

// DealerReliability computes derived reliability metrics for a dealer.
func (s *Service) DealerReliability(ctx context.Context, dealerID uuid.UUID) (DealerMetrics, error) {
	stats, err := s.repo.DealerStats(ctx, dealerID)
	if err != nil {
		return DealerMetrics{}, fmt.Errorf("dealer reliability: %w", err)
	}
	return DealerMetricsFromStats(stats), nil
}

// Assess scores both sides of a job and derives the hold recommendation.
// Aggregates may be slightly stale; that is acceptable for scoring (unlike
// assignment exclusivity, which the lifecycle controller guards with CAS).
func (s *Service) Assess(ctx context.Context, technicianID, dealerID uuid.UUID) (Assessment, error) {
	techMetrics, err := s.TechnicianReliability(ctx, technicianID)
	if err != nil {
		return Assessment{}, err
	}
	dealerMetrics, err := s.DealerReliability(ctx, dealerID)
	if err != nil {
		return Assessment{}, err
	}

	techRisk := ScoreTechnician(techMetrics)
	dealerRisk := ScoreDealer(dealerMetrics)
	jobRisk := (techRisk + dealerRisk) / 2

	assessment := Assessment{
		TechnicianRisk:     techRisk,
		DealerRisk:         dealerRisk,
		JobRisk:            jobRisk,
		RecommendedHoldPct: RecommendedHoldPct(jobRisk),
		AutoRelease:        AutoReleaseEligible(jobRisk),
		Actions:            recommendActions(jobRisk, techMetrics, dealerMetrics),
	}
	return assessment, nil
}

// SLABreaches returns jobs currently missing their timing expectations.
func (s *Service) SLABreaches(ctx context.Context) ([]repository.SLABreach, error) {
	return s.repo.ListSLABreaches(ctx)
}

func recommendActions(jobRisk int, tech TechnicianMetrics, dealer DealerMetrics) []string {
	var actions []string

	switch {
	case jobRisk >= 70:
		actions = append(actions, "Require manual approval before releasing warranty hold")
	case jobRisk >= 50:
		actions = append(actions, "Consider manual approval before release")
	case jobRisk < 15:
		actions = append(actions, "Eligible for automatic release after warranty window")
	}

	if tech.CancellationRate > 0.20 {
		actions = append(actions, "Flag technician for cancellation review")
	}
	if tech.WarrantyComplaintRate > 0.10 {
		actions = append(actions, "Review technician warranty complaints before next assignment")
	}
	if dealer.PaymentDelayRate > 0.30 {
		actions = append(actions, "Follow up on dealer payment delays")
	}
	if dealer.CashFrequency > 0.50 {
		actions = append(actions, "Encourage dealer to use online payment")
	}

	return actions
}
