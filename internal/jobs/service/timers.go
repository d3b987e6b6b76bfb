package service

import (
	"context"

	"github.com/google/uuid"

	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
)

// Timer handlers. Each one is a guarded transition through the repository's
// conditional updates: a firing that lost to a manual transition, or that
// belongs to an older lock generation, matches zero rows and is a no-op.

// HandleSoftLockExpiry releases an unconfirmed soft lock back to the pool.
// A firing for a lock whose window was reset or stretched by a
// counter-offer resolves to a no-op at the repository's expiry guard.
func (s *Service) HandleSoftLockExpiry(ctx context.Context, jobID uuid.UUID, generation int) error {
	job, released, err := s.repo.ReleaseExpiredSoftLock(ctx, jobID, generation)
	if err != nil {
		return err
	}
	if !released {
		s.logTimerNoop(ctx, jobID, "soft_lock_expiry")
		return nil
	}

	s.log.JobTransition(job.JobNumber, string(domain.StatusSoftLocked), string(domain.StatusPending), "soft_lock_timeout")
	s.publishReturnedToPool(ctx, job, domain.ReasonSoftLockTimeout)
	return nil
}

// HandlePaymentDeadline releases a job whose payment never arrived.
func (s *Service) HandlePaymentDeadline(ctx context.Context, jobID uuid.UUID, generation int) error {
	job, released, err := s.repo.ReleaseMissedPayment(ctx, jobID, generation)
	if err != nil {
		return err
	}
	if !released {
		s.logTimerNoop(ctx, jobID, "payment_deadline")
		return nil
	}

	s.log.JobTransition(job.JobNumber, string(domain.StatusWaitingForPayment), string(domain.StatusPending), "payment_deadline_timeout")
	s.publishReturnedToPool(ctx, job, domain.ReasonPaymentDeadlineTimeout)
	return nil
}

// HandleNegotiationExpiry cancels the pending acceptance of a job whose
// counter-offer went unanswered.
func (s *Service) HandleNegotiationExpiry(ctx context.Context, jobID uuid.UUID, generation int) error {
	job, released, err := s.repo.ReleaseNegotiationTimeout(ctx, jobID, generation)
	if err != nil {
		return err
	}
	if !released {
		s.logTimerNoop(ctx, jobID, "negotiation_expiry")
		return nil
	}

	s.log.JobTransition(job.JobNumber, "NEGOTIATING", string(domain.StatusPending), "negotiation_timeout")
	s.publishReturnedToPool(ctx, job, domain.ReasonNegotiationTimeout)
	return nil
}

func (s *Service) publishReturnedToPool(ctx context.Context, job repository.Job, reason string) {
	s.bus.Publish(ctx, events.JobReturnedToPool{
		BaseEvent: events.NewBaseEvent(),
		JobID:     job.ID,
		JobNumber: job.JobNumber,
		DealerID:  job.DealerID,
		Reason:    reason,
	})
}

func (s *Service) logTimerNoop(ctx context.Context, jobID uuid.UUID, task string) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		s.log.TimerNoop(jobID.String(), task, "unknown")
		return
	}
	s.log.TimerNoop(job.JobNumber, task, string(job.Status))
}
