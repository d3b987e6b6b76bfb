// Package service implements the escrow manager: payment capture, the
// release/hold split created at approval, warranty issue gating, and dispute
// resolution. The split math is pure; everything stateful funnels through
// guarded repository updates so replays and double firings are no-ops.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldserve_backend/internal/escrow/repository"
	"fieldserve_backend/internal/events"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/logger"
)

// Service provides escrow and payment operations.
type Service struct {
	repo *repository.Repo
	bus  events.Bus
	cfg  config.EscrowConfig
	log  *logger.Logger
}

// New creates the escrow service.
func New(repo *repository.Repo, bus events.Bus, cfg config.EscrowConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, cfg: cfg, log: log}
}

// CapturePayment records the single payment against a job. Called by the
// lifecycle controller when the dealer locks payment.
func (s *Service) CapturePayment(ctx context.Context, jobID uuid.UUID, method string, amount int64, proofNote *string) (repository.Payment, error) {
	switch method {
	case repository.MethodUPI, repository.MethodBankTransfer, repository.MethodCash:
	default:
		return repository.Payment{}, apperr.Validation(fmt.Sprintf("unknown payment method %q", method))
	}
	if amount <= 0 {
		return repository.Payment{}, apperr.Validation("payment amount must be positive")
	}
	if method == repository.MethodCash && (proofNote == nil || *proofNote == "") {
		return repository.Payment{}, apperr.Validation("cash payment requires a proof reference")
	}

	return s.repo.RecordPayment(ctx, repository.Payment{
		JobID:     jobID,
		Method:    method,
		Amount:    amount,
		ProofNote: proofNote,
	})
}

// SplitParams carries everything the approval path hands to the escrow
// manager. HoldPct comes from the risk engine or a dealer override.
type SplitParams struct {
	JobID        uuid.UUID
	TechnicianID uuid.UUID
	TotalAmount  int64
	HoldPct      float64
	WarrantyDays int
	Method       string
	AutoRelease  bool
	CompletedAt  time.Time
}

// CreateSplit computes and persists the escrow split for an approved job.
// The hold release is due when the warranty window closes, counted from
// completion approval.
func (s *Service) CreateSplit(ctx context.Context, p SplitParams) (repository.PaymentSplit, error) {
	released, held, err := ComputeSplit(p.TotalAmount, p.HoldPct)
	if err != nil {
		return repository.PaymentSplit{}, err
	}
	if p.WarrantyDays < 0 {
		return repository.PaymentSplit{}, apperr.Validation("warranty days must not be negative")
	}

	split, err := s.repo.CreateSplit(ctx, repository.PaymentSplit{
		JobID:          p.JobID,
		TechnicianID:   p.TechnicianID,
		TotalAmount:    p.TotalAmount,
		HoldPct:        p.HoldPct,
		ReleasedAmount: released,
		HeldAmount:     held,
		WarrantyDays:   p.WarrantyDays,
		Method:         p.Method,
		AutoRelease:    p.AutoRelease,
		ReleaseDueAt:   p.CompletedAt.AddDate(0, 0, p.WarrantyDays),
	})
	if err != nil {
		return repository.PaymentSplit{}, err
	}

	s.bus.Publish(ctx, events.PaymentSplitCreated{
		BaseEvent:      events.NewBaseEvent(),
		JobID:          split.JobID,
		TechnicianID:   split.TechnicianID,
		TotalAmount:    split.TotalAmount,
		ReleasedAmount: split.ReleasedAmount,
		HeldAmount:     split.HeldAmount,
		HoldPct:        split.HoldPct,
	})
	return split, nil
}

// autoReleaseBlocked reports why the scheduled release must not touch a
// split. A settled hold or a manual-review hold is skipped outright; an
// open issue report waits for dispute resolution.
func autoReleaseBlocked(split repository.PaymentSplit, openIssue bool) (string, bool) {
	switch {
	case split.HoldState != repository.HoldStateHeld:
		return "already settled", true
	case !split.AutoRelease:
		return "manual review required", true
	case openIssue:
		return "open warranty issue", true
	}
	return "", false
}

// ReleaseDueHold releases a job's held amount once its warranty window has
// expired. Holds the risk engine flagged for manual review are left for an
// admin; an open issue report blocks the release until dispute resolution.
// Safe to call repeatedly.
func (s *Service) ReleaseDueHold(ctx context.Context, jobID uuid.UUID) error {
	split, err := s.repo.GetSplitByJob(ctx, jobID)
	if err != nil {
		return err
	}
	if split.HoldState != repository.HoldStateHeld {
		s.log.TimerNoop(jobID.String(), "hold_release", split.HoldState)
		return nil
	}

	open, err := s.repo.HasOpenWarrantyIssue(ctx, jobID)
	if err != nil {
		return err
	}
	if reason, blocked := autoReleaseBlocked(split, open); blocked {
		s.log.Info("hold release blocked", "jobId", jobID, "reason", reason)
		return nil
	}

	released, err := s.repo.ReleaseHold(ctx, jobID)
	if err != nil {
		return err
	}
	if released {
		s.bus.Publish(ctx, events.WarrantyHoldReleased{
			BaseEvent:    events.NewBaseEvent(),
			JobID:        jobID,
			TechnicianID: split.TechnicianID,
			Amount:       split.HeldAmount,
			Automatic:    true,
		})
	}
	return nil
}

// ReleaseHold settles a held split in the technician's favor outside the
// automatic path. Admins use it for holds flagged for manual review. An
// open issue report must be resolved through a dispute first.
func (s *Service) ReleaseHold(ctx context.Context, jobID uuid.UUID) (SplitView, error) {
	split, err := s.repo.GetSplitByJob(ctx, jobID)
	if err != nil {
		return SplitView{}, err
	}
	if split.HoldState != repository.HoldStateHeld {
		return SplitView{}, apperr.Conflict("warranty hold already settled")
	}

	open, err := s.repo.HasOpenWarrantyIssue(ctx, jobID)
	if err != nil {
		return SplitView{}, err
	}
	if open {
		return SplitView{}, apperr.Conflict("resolve the open warranty issue first")
	}

	released, err := s.repo.ReleaseHold(ctx, jobID)
	if err != nil {
		return SplitView{}, err
	}
	if released {
		s.bus.Publish(ctx, events.WarrantyHoldReleased{
			BaseEvent:    events.NewBaseEvent(),
			JobID:        jobID,
			TechnicianID: split.TechnicianID,
			Amount:       split.HeldAmount,
			Automatic:    false,
		})
	}
	return s.SplitForJob(ctx, jobID, false)
}

// ReportWarrantyIssue records an issue against a job whose hold window is
// still open. Issues against an already settled hold are rejected.
func (s *Service) ReportWarrantyIssue(ctx context.Context, jobID uuid.UUID, description string) (repository.Warranty, error) {
	if description == "" {
		return repository.Warranty{}, apperr.Validation("issue description is required")
	}

	split, err := s.repo.GetSplitByJob(ctx, jobID)
	if err != nil {
		return repository.Warranty{}, err
	}
	if split.HoldState != repository.HoldStateHeld {
		return repository.Warranty{}, apperr.Conflict("warranty hold already settled")
	}
	if time.Now().After(split.ReleaseDueAt) {
		return repository.Warranty{}, apperr.Conflict("warranty window has closed")
	}

	return s.repo.CreateWarrantyIssue(ctx, jobID, description)
}

// RaiseDispute opens a dispute against a job. Duplicate open disputes are
// rejected.
func (s *Service) RaiseDispute(ctx context.Context, jobID, raisedBy uuid.UUID, description string) (repository.Dispute, error) {
	if description == "" {
		return repository.Dispute{}, apperr.Validation("dispute description is required")
	}

	open, err := s.repo.HasOpenDispute(ctx, jobID)
	if err != nil {
		return repository.Dispute{}, err
	}
	if open {
		return repository.Dispute{}, apperr.Conflict("a dispute is already open for this job")
	}

	return s.repo.CreateDispute(ctx, jobID, raisedBy, description)
}

// ResolveDispute closes a dispute and settles the job's hold accordingly:
// release pays the technician, forfeit returns the held amount to the dealer.
// Open issue reports on the job close with the dispute.
func (s *Service) ResolveDispute(ctx context.Context, disputeID uuid.UUID, releaseToTechnician bool) (repository.Dispute, error) {
	outcome := repository.DisputeResolvedForfeit
	if releaseToTechnician {
		outcome = repository.DisputeResolvedRelease
	}

	dispute, err := s.repo.ResolveDispute(ctx, disputeID, outcome)
	if err != nil {
		return repository.Dispute{}, err
	}

	if err := s.repo.ResolveWarrantyIssues(ctx, dispute.JobID); err != nil {
		return repository.Dispute{}, err
	}

	split, err := s.repo.GetSplitByJob(ctx, dispute.JobID)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			// Disputes can be raised before approval creates a split.
			return dispute, nil
		}
		return repository.Dispute{}, err
	}

	if releaseToTechnician {
		released, err := s.repo.ReleaseHold(ctx, dispute.JobID)
		if err != nil {
			return repository.Dispute{}, err
		}
		if released {
			s.bus.Publish(ctx, events.WarrantyHoldReleased{
				BaseEvent:    events.NewBaseEvent(),
				JobID:        dispute.JobID,
				TechnicianID: split.TechnicianID,
				Amount:       split.HeldAmount,
				Automatic:    false,
			})
		}
	} else {
		if _, err := s.repo.ForfeitHold(ctx, dispute.JobID); err != nil {
			return repository.Dispute{}, err
		}
	}
	return dispute, nil
}

// SplitView is the role-scoped projection of an escrow split. Technicians
// see net amounts after commission; dealers and admins see gross.
type SplitView struct {
	JobID          uuid.UUID  `json:"jobId"`
	TotalAmount    int64      `json:"totalAmount"`
	HoldPct        float64    `json:"holdPct"`
	ReleasedAmount int64      `json:"releasedAmount"`
	HeldAmount     int64      `json:"heldAmount"`
	NetReleased    *int64     `json:"netReleased,omitempty"`
	NetHeld        *int64     `json:"netHeld,omitempty"`
	WarrantyDays   int        `json:"warrantyDays"`
	Method         string     `json:"method"`
	HoldState      string     `json:"holdState"`
	ReleaseDueAt   time.Time  `json:"releaseDueAt"`
	ReleasedAt     *time.Time `json:"releasedAt,omitempty"`
}

// SplitForJob returns the split for a job, with technician-facing net
// amounts included when asTechnician is set.
func (s *Service) SplitForJob(ctx context.Context, jobID uuid.UUID, asTechnician bool) (SplitView, error) {
	split, err := s.repo.GetSplitByJob(ctx, jobID)
	if err != nil {
		return SplitView{}, err
	}

	view := SplitView{
		JobID:          split.JobID,
		TotalAmount:    split.TotalAmount,
		HoldPct:        split.HoldPct,
		ReleasedAmount: split.ReleasedAmount,
		HeldAmount:     split.HeldAmount,
		WarrantyDays:   split.WarrantyDays,
		Method:         split.Method,
		HoldState:      split.HoldState,
		ReleaseDueAt:   split.ReleaseDueAt,
		ReleasedAt:     split.ReleasedAt,
	}
	if asTechnician {
		pct := s.cfg.GetCommissionPct()
		netReleased := NetToTechnician(split.ReleasedAmount, pct)
		netHeld := NetToTechnician(split.HeldAmount, pct)
		view.NetReleased = &netReleased
		view.NetHeld = &netHeld
	}
	return view, nil
}

// PaymentForJob returns the captured payment record for a job.
func (s *Service) PaymentForJob(ctx context.Context, jobID uuid.UUID) (repository.Payment, error) {
	return s.repo.GetPaymentByJob(ctx, jobID)
}

// ReleaseDueHolds sweeps all held splits past their release window. The
// scheduler runs this as a safety net behind the per-job release timers.
func (s *Service) ReleaseDueHolds(ctx context.Context, limit int) (int, error) {
	due, err := s.repo.ListDueHeldSplits(ctx, time.Now(), limit)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, split := range due {
		if err := s.ReleaseDueHold(ctx, split.JobID); err != nil {
			s.log.Error("release due hold", "jobId", split.JobID, "error", err)
			continue
		}
		released++
	}
	return released, nil
}
