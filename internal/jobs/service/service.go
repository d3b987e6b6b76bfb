// Package service implements the job lifecycle controller. Every transition,
// whether a request handler or a timer fired it, goes through the same
// conditional updates in the repository; losing a race surfaces as a
// conflict, and a stale timer resolves to a logged no-op.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	accountsrepo "fieldserve_backend/internal/accounts/repository"
	escrowrepo "fieldserve_backend/internal/escrow/repository"
	escrowsvc "fieldserve_backend/internal/escrow/service"
	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/internal/jobs/transport"
	"fieldserve_backend/internal/matching"
	risksvc "fieldserve_backend/internal/risk/service"
	taxsvc "fieldserve_backend/internal/taxonomy/service"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/phone"
)

const openJobsLimit = 200

// Store is the job persistence contract the controller drives. Implemented
// by the PostgreSQL repository; every mutation is a conditional update whose
// zero-rows outcome surfaces as a conflict or a (Job, false, nil) no-op.
type Store interface {
	NextJobNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, j repository.Job) (repository.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Job, error)
	ListOpen(ctx context.Context, limit int) ([]repository.Job, error)
	ListForDealer(ctx context.Context, dealerID uuid.UUID, limit int) ([]repository.Job, error)
	ListForTechnician(ctx context.Context, technicianID uuid.UUID, limit int) ([]repository.Job, error)
	TrySoftLock(ctx context.Context, jobID, technicianID uuid.UUID, expiresAt time.Time) (repository.Job, bool, error)
	ExtendSoftLock(ctx context.Context, jobID, dealerID uuid.UUID, expiresAt time.Time) (repository.Job, error)
	ConfirmSoftLock(ctx context.Context, jobID, dealerID uuid.UUID, paymentDueAt time.Time) (repository.Job, error)
	ReleaseExpiredSoftLock(ctx context.Context, jobID uuid.UUID, generation int) (repository.Job, bool, error)
	ReleaseMissedPayment(ctx context.Context, jobID uuid.UUID, generation int) (repository.Job, bool, error)
	ReleaseNegotiationTimeout(ctx context.Context, jobID uuid.UUID, generation int) (repository.Job, bool, error)
	MarkAssigned(ctx context.Context, jobID uuid.UUID) (repository.Job, error)
	Start(ctx context.Context, jobID, technicianID uuid.UUID) (repository.Job, error)
	SubmitCompletion(ctx context.Context, jobID, technicianID uuid.UUID) (repository.Job, error)
	Approve(ctx context.Context, jobID, dealerID uuid.UUID, finalPrice int64, rating *float64) (repository.Job, error)
	RequestRework(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error)
	Cancel(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error)
	Repost(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error)
	PermanentlyReject(ctx context.Context, jobID uuid.UUID) (repository.Job, error)
	SetCounterOffer(ctx context.Context, jobID, proposerID uuid.UUID, amount int64, expiresAt time.Time) (repository.Job, error)
	AcceptCounterOffer(ctx context.Context, jobID uuid.UUID) (repository.Job, error)
	DeclineCounterOffer(ctx context.Context, jobID uuid.UUID) (repository.Job, error)
}

// TimerScheduler arms the single-shot lifecycle timers. Implemented by the
// scheduler client; nil-safe so tests can run without a queue.
type TimerScheduler interface {
	ScheduleSoftLockExpiry(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error
	SchedulePaymentDeadline(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error
	ScheduleNegotiationExpiry(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error
	ScheduleHoldRelease(ctx context.Context, jobID uuid.UUID, runAt time.Time) error
}

// TechnicianDirectory lists approved technicians for matching.
type TechnicianDirectory interface {
	ListApprovedTechnicians(ctx context.Context) ([]accountsrepo.Technician, error)
	GetTechnician(ctx context.Context, accountID uuid.UUID) (accountsrepo.Technician, error)
}

// TaxonomyResolver resolves titles and warranty windows for jobs.
type TaxonomyResolver interface {
	ResolveTitles(ctx context.Context, domainIDs, categoryIDs, skillIDs []uuid.UUID) taxsvc.TitleSet
	ResolveWarrantyDays(ctx context.Context, categoryID uuid.UUID, subcategoryID *uuid.UUID) int
}

// RiskAssessor scores a job pairing for the hold recommendation.
type RiskAssessor interface {
	Assess(ctx context.Context, technicianID, dealerID uuid.UUID) (risksvc.Assessment, error)
}

// EscrowManager is the slice of the escrow service the controller drives.
type EscrowManager interface {
	CapturePayment(ctx context.Context, jobID uuid.UUID, method string, amount int64, proofNote *string) (escrowrepo.Payment, error)
	PaymentForJob(ctx context.Context, jobID uuid.UUID) (escrowrepo.Payment, error)
	CreateSplit(ctx context.Context, p escrowsvc.SplitParams) (escrowrepo.PaymentSplit, error)
	SplitForJob(ctx context.Context, jobID uuid.UUID, asTechnician bool) (escrowsvc.SplitView, error)
	RaiseDispute(ctx context.Context, jobID, raisedBy uuid.UUID, description string) (escrowrepo.Dispute, error)
	UPIQR(jobNumber string, amount int64) ([]byte, error)
}

// Service is the lifecycle controller.
type Service struct {
	repo     Store
	otp      *OTPStore
	bus      events.Bus
	timers   TimerScheduler
	techDir  TechnicianDirectory
	taxonomy TaxonomyResolver
	risk     RiskAssessor
	escrow   EscrowManager
	cfg      config.LifecycleConfig
	log      *logger.Logger
}

// New creates the jobs service.
func New(
	repo Store,
	otp *OTPStore,
	bus events.Bus,
	timers TimerScheduler,
	techDir TechnicianDirectory,
	taxonomy TaxonomyResolver,
	risk RiskAssessor,
	escrow EscrowManager,
	cfg config.LifecycleConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:     repo,
		otp:      otp,
		bus:      bus,
		timers:   timers,
		techDir:  techDir,
		taxonomy: taxonomy,
		risk:     risk,
		escrow:   escrow,
		cfg:      cfg,
		log:      log,
	}
}

// PostJob validates and creates a job, then fans out matching and
// notification outside the create transaction. A matching failure never
// rolls back the created job.
func (s *Service) PostJob(ctx context.Context, dealerID uuid.UUID, req transport.PostJobRequest) (repository.Job, error) {
	customerPhone := phone.NormalizeE164(req.CustomerPhone)
	if !phone.IsValid(customerPhone) {
		return repository.Job{}, apperr.Validation("customer phone is not a valid number")
	}

	warrantyDays := s.taxonomy.ResolveWarrantyDays(ctx, req.CategoryID, req.SubcategoryID)

	jobNumber, err := s.repo.NextJobNumber(ctx)
	if err != nil {
		return repository.Job{}, err
	}

	job, err := s.repo.Create(ctx, repository.Job{
		JobNumber:                jobNumber,
		DealerID:                 dealerID,
		Title:                    req.Title,
		Description:              req.Description,
		WorkDetail:               req.WorkDetail,
		Address:                  req.Address,
		City:                     req.City,
		State:                    req.State,
		Pincode:                  req.Pincode,
		Latitude:                 req.Latitude,
		Longitude:                req.Longitude,
		DomainID:                 req.DomainID,
		CategoryID:               req.CategoryID,
		SkillID:                  req.SkillID,
		CustomerName:             req.CustomerName,
		CustomerPhone:            customerPhone,
		Amount:                   req.Amount,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		ScheduledAt:              req.ScheduledAt,
		WarrantyDays:             warrantyDays,
		MaxReposts:               s.cfg.GetMaxReposts(),
	})
	if err != nil {
		return repository.Job{}, err
	}

	s.announceToPool(ctx, job)
	return job, nil
}

// announceToPool matches the job against approved technicians and publishes
// the fan-out event. Best effort: failures are logged, never surfaced.
func (s *Service) announceToPool(ctx context.Context, job repository.Job) {
	candidates, err := s.MatchCandidates(ctx, job)
	if err != nil {
		s.log.Error("match candidates", "jobNumber", job.JobNumber, "error", err)
		return
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.TechnicianID)
	}

	s.bus.Publish(ctx, events.JobPosted{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        job.ID,
		JobNumber:    job.JobNumber,
		DealerID:     job.DealerID,
		Title:        job.Title,
		City:         job.City,
		CandidateIDs: ids,
	})
}

// MatchCandidates runs the matcher for a job over all approved technicians.
// Taxonomy titles resolve in one batch per relation before the pure match.
func (s *Service) MatchCandidates(ctx context.Context, job repository.Job) ([]matching.Candidate, error) {
	technicians, err := s.techDir.ListApprovedTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}

	profiles := make([]matching.TechProfile, 0, len(technicians))
	domainIDs := []uuid.UUID{job.DomainID}
	categoryIDs := []uuid.UUID{job.CategoryID}
	var skillIDs []uuid.UUID
	if job.SkillID != nil {
		skillIDs = append(skillIDs, *job.SkillID)
	}

	for _, t := range technicians {
		skills := matching.ParseSkillRefs(t.SkillsPayload)
		for _, ref := range skills {
			if ref.DomainID != nil {
				domainIDs = append(domainIDs, *ref.DomainID)
			}
			if ref.SkillID != nil {
				skillIDs = append(skillIDs, *ref.SkillID)
			}
		}
		profiles = append(profiles, matching.TechProfile{
			ID:              t.AccountID,
			Latitude:        t.Latitude,
			Longitude:       t.Longitude,
			PlaceName:       t.PlaceName,
			ServiceRadiusKm: t.ServiceRadiusKm,
			Skills:          skills,
			CategoryLabels:  t.CategoryLabels,
		})
	}

	set := s.taxonomy.ResolveTitles(ctx, domainIDs, categoryIDs, skillIDs)
	titles := matching.Titles{
		DomainTitles:   set.DomainTitles,
		CategoryTitles: set.CategoryTitles,
		SkillTitles:    set.SkillTitles,
		DomainSkills:   set.DomainSkills,
	}

	return matching.Match(jobSpec(job), profiles, titles), nil
}

func jobSpec(job repository.Job) matching.JobSpec {
	return matching.JobSpec{
		Latitude:   job.Latitude,
		Longitude:  job.Longitude,
		City:       job.City,
		DomainID:   job.DomainID,
		CategoryID: job.CategoryID,
		SkillID:    job.SkillID,
	}
}

// GetJob returns a job by ID.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (repository.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

// ListForDealer returns a dealer's own jobs.
func (s *Service) ListForDealer(ctx context.Context, dealerID uuid.UUID) ([]repository.Job, error) {
	return s.repo.ListForDealer(ctx, dealerID, openJobsLimit)
}

// ListForTechnician returns jobs held by or assigned to a technician.
func (s *Service) ListForTechnician(ctx context.Context, technicianID uuid.UUID) ([]repository.Job, error) {
	return s.repo.ListForTechnician(ctx, technicianID, openJobsLimit)
}

// ListAvailable returns the pooled jobs the technician is eligible for,
// filtered through the matcher.
func (s *Service) ListAvailable(ctx context.Context, technicianID uuid.UUID) ([]repository.Job, error) {
	tech, err := s.techDir.GetTechnician(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if tech.ApprovalStatus != accountsrepo.ApprovalApproved {
		return nil, apperr.Forbidden("technician profile is not approved")
	}

	open, err := s.repo.ListOpen(ctx, openJobsLimit)
	if err != nil {
		return nil, err
	}

	var eligible []repository.Job
	for _, job := range open {
		candidates, err := s.MatchCandidates(ctx, job)
		if err != nil {
			s.log.Error("match candidates", "jobNumber", job.JobNumber, "error", err)
			continue
		}
		for _, c := range candidates {
			if c.TechnicianID == technicianID {
				eligible = append(eligible, job)
				break
			}
		}
	}
	return eligible, nil
}

// AcceptJob races the technician for the soft lock. Exactly one concurrent
// caller wins; the rest get a "no longer available" conflict.
func (s *Service) AcceptJob(ctx context.Context, jobID, technicianID uuid.UUID) (repository.Job, error) {
	tech, err := s.techDir.GetTechnician(ctx, technicianID)
	if err != nil {
		return repository.Job{}, err
	}
	if tech.ApprovalStatus != accountsrepo.ApprovalApproved {
		return repository.Job{}, apperr.Forbidden("technician profile is not approved")
	}

	expiresAt := time.Now().Add(s.cfg.GetSoftLockWindow())
	job, won, err := s.repo.TrySoftLock(ctx, jobID, technicianID, expiresAt)
	if err != nil {
		return repository.Job{}, err
	}
	if !won {
		return repository.Job{}, apperr.Conflict("job is no longer available")
	}

	s.log.JobTransition(job.JobNumber, string(domain.StatusPending), string(domain.StatusSoftLocked), "accept")
	s.armSoftLockTimer(ctx, job, expiresAt)

	s.bus.Publish(ctx, events.JobSoftLocked{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        job.ID,
		JobNumber:    job.JobNumber,
		DealerID:     job.DealerID,
		TechnicianID: technicianID,
	})
	return job, nil
}

func (s *Service) armSoftLockTimer(ctx context.Context, job repository.Job, runAt time.Time) {
	if s.timers == nil {
		return
	}
	if err := s.timers.ScheduleSoftLockExpiry(ctx, job.ID, job.SoftLockGeneration, runAt); err != nil {
		// The sweep in the worker backstops a lost timer.
		s.log.Error("schedule soft lock expiry", "jobNumber", job.JobNumber, "error", err)
	}
}

// ResetSoftLockTimer grants the dealer one fresh soft-lock window per lock
// instance. The Redis marker enforces the single reset; a new acceptance
// race starts a new lock instance with its own reset.
func (s *Service) ResetSoftLockTimer(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return repository.Job{}, err
	}
	if job.DealerID != dealerID {
		return repository.Job{}, apperr.Forbidden("job belongs to another dealer")
	}
	if job.Status != domain.StatusSoftLocked {
		return repository.Job{}, apperr.Conflict("job is not soft-locked")
	}

	window := s.cfg.GetSoftLockWindow()
	granted, err := s.otp.MarkTimerReset(ctx, jobID, job.SoftLockGeneration, window)
	if err != nil {
		return repository.Job{}, err
	}
	if !granted {
		return repository.Job{}, apperr.Conflict("soft-lock timer already reset for this lock")
	}

	expiresAt := time.Now().Add(window)
	job, err = s.repo.ExtendSoftLock(ctx, jobID, dealerID, expiresAt)
	if err != nil {
		return repository.Job{}, err
	}

	s.armSoftLockTimer(ctx, job, expiresAt)
	return job, nil
}

// ConfirmSoftLock is the dealer confirming the technician within the
// window; the job moves to WAITING_FOR_PAYMENT and the payment deadline is
// armed.
func (s *Service) ConfirmSoftLock(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	paymentDueAt := time.Now().Add(s.cfg.GetPaymentWindow())
	job, err := s.repo.ConfirmSoftLock(ctx, jobID, dealerID, paymentDueAt)
	if err != nil {
		return repository.Job{}, err
	}

	s.log.JobTransition(job.JobNumber, string(domain.StatusSoftLocked), string(domain.StatusWaitingForPayment), "confirm")
	if s.timers != nil {
		if err := s.timers.SchedulePaymentDeadline(ctx, job.ID, job.SoftLockGeneration, paymentDueAt); err != nil {
			s.log.Error("schedule payment deadline", "jobNumber", job.JobNumber, "error", err)
		}
	}
	return job, nil
}

// LockPayment captures the payment into escrow and assigns the job.
func (s *Service) LockPayment(ctx context.Context, jobID, dealerID uuid.UUID, method string, proofNote *string) (repository.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return repository.Job{}, err
	}
	if job.DealerID != dealerID {
		return repository.Job{}, apperr.Forbidden("job belongs to another dealer")
	}
	if job.Status != domain.StatusWaitingForPayment {
		return repository.Job{}, apperr.Conflict("job is not waiting for payment")
	}

	if _, err := s.escrow.CapturePayment(ctx, jobID, method, job.EffectivePrice(), proofNote); err != nil {
		return repository.Job{}, err
	}

	job, err = s.repo.MarkAssigned(ctx, jobID)
	if err != nil {
		return repository.Job{}, err
	}

	s.log.JobTransition(job.JobNumber, string(domain.StatusWaitingForPayment), string(domain.StatusAssigned), "payment_locked")
	s.bus.Publish(ctx, events.JobAssigned{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        job.ID,
		JobNumber:    job.JobNumber,
		DealerID:     job.DealerID,
		TechnicianID: *job.TechnicianID,
	})
	return job, nil
}

// PaymentQR renders the UPI QR code for a job awaiting payment.
func (s *Service) PaymentQR(ctx context.Context, jobID, dealerID uuid.UUID) ([]byte, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.DealerID != dealerID {
		return nil, apperr.Forbidden("job belongs to another dealer")
	}
	if job.Status != domain.StatusWaitingForPayment {
		return nil, apperr.Conflict("job is not waiting for payment")
	}
	return s.escrow.UPIQR(job.JobNumber, job.EffectivePrice())
}

// StartJob is the technician starting assigned work.
func (s *Service) StartJob(ctx context.Context, jobID, technicianID uuid.UUID) (repository.Job, error) {
	job, err := s.repo.Start(ctx, jobID, technicianID)
	if err != nil {
		return repository.Job{}, err
	}
	s.log.JobTransition(job.JobNumber, string(domain.StatusAssigned), string(domain.StatusInProgress), "start")
	return job, nil
}

// RequestCompletion issues the completion OTP to the customer without
// changing state. The job closes only when the customer's code verifies.
func (s *Service) RequestCompletion(ctx context.Context, jobID, technicianID uuid.UUID) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.TechnicianID == nil || *job.TechnicianID != technicianID {
		return apperr.Forbidden("job is not assigned to this technician")
	}
	if job.Status != domain.StatusInProgress {
		return apperr.Conflict("job is not in progress")
	}

	return s.issueOTP(ctx, job)
}

// ResendOTP re-issues the completion code. State is unchanged.
func (s *Service) ResendOTP(ctx context.Context, jobID, technicianID uuid.UUID) error {
	return s.RequestCompletion(ctx, jobID, technicianID)
}

func (s *Service) issueOTP(ctx context.Context, job repository.Job) error {
	code, err := s.otp.Issue(ctx, job.ID)
	if err != nil {
		return err
	}

	s.bus.Publish(ctx, events.CompletionOTPIssued{
		BaseEvent:     events.NewBaseEvent(),
		JobID:         job.ID,
		JobNumber:     job.JobNumber,
		DealerID:      job.DealerID,
		CustomerPhone: job.CustomerPhone,
		Code:          code,
	})
	return nil
}

// VerifyCompletionOTP checks the customer code and moves the job to
// COMPLETION_PENDING_APPROVAL. A mismatch leaves the job in progress with
// the resend path open.
func (s *Service) VerifyCompletionOTP(ctx context.Context, jobID, technicianID uuid.UUID, code string) (repository.Job, error) {
	if err := s.otp.Verify(ctx, jobID, code); err != nil {
		return repository.Job{}, err
	}

	job, err := s.repo.SubmitCompletion(ctx, jobID, technicianID)
	if err != nil {
		return repository.Job{}, err
	}
	s.log.JobTransition(job.JobNumber, string(domain.StatusInProgress), string(domain.StatusCompletionPendingApproval), "otp_verified")
	return job, nil
}

// ApproveJob is the dealer confirming completed work at a final price. The
// risk engine recommends the hold, the dealer may override it, and the
// escrow split plus its release timer follow the committed transition. An
// optional rating feeds future risk assessments of the technician. A retry
// after a failure between the transition and the split picks up where the
// first attempt stopped.
func (s *Service) ApproveJob(ctx context.Context, jobID, dealerID uuid.UUID, totalAmount int64, holdPctOverride, rating *float64) (repository.Job, error) {
	if totalAmount <= 0 {
		return repository.Job{}, apperr.Validation("set final price first")
	}

	current, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return repository.Job{}, err
	}
	if current.TechnicianID == nil {
		return repository.Job{}, apperr.Conflict("job has no assigned technician")
	}
	technicianID := *current.TechnicianID

	assessment, err := s.risk.Assess(ctx, technicianID, dealerID)
	if err != nil {
		return repository.Job{}, err
	}

	holdPct := assessment.RecommendedHoldPct
	if holdPctOverride != nil {
		holdPct = *holdPctOverride
	}

	job, err := s.repo.Approve(ctx, jobID, dealerID, totalAmount, rating)
	if err != nil {
		// An earlier approval may have committed and then failed before
		// its split was persisted. Resume at the split; an approval whose
		// split exists stays a conflict.
		if apperr.GetKind(err) != apperr.KindConflict ||
			current.Status != domain.StatusCompleted || current.DealerID != dealerID {
			return repository.Job{}, err
		}
		if _, splitErr := s.escrow.SplitForJob(ctx, jobID, false); splitErr == nil {
			return repository.Job{}, err
		} else if apperr.GetKind(splitErr) != apperr.KindNotFound {
			return repository.Job{}, splitErr
		}
		job = current
	}

	method := escrowrepo.MethodCash
	if payment, err := s.escrow.PaymentForJob(ctx, jobID); err == nil {
		method = payment.Method
	}

	split, err := s.escrow.CreateSplit(ctx, escrowsvc.SplitParams{
		JobID:        job.ID,
		TechnicianID: technicianID,
		TotalAmount:  job.EffectivePrice(),
		HoldPct:      holdPct,
		WarrantyDays: job.WarrantyDays,
		Method:       method,
		AutoRelease:  assessment.AutoRelease,
		CompletedAt:  *job.ApprovedAt,
	})
	if err != nil {
		return repository.Job{}, err
	}

	if s.timers != nil {
		if err := s.timers.ScheduleHoldRelease(ctx, job.ID, split.ReleaseDueAt); err != nil {
			s.log.Error("schedule hold release", "jobNumber", job.JobNumber, "error", err)
		}
	}

	s.log.JobTransition(job.JobNumber, string(domain.StatusCompletionPendingApproval), string(domain.StatusCompleted), "approved")
	s.bus.Publish(ctx, events.JobCompleted{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        job.ID,
		JobNumber:    job.JobNumber,
		DealerID:     job.DealerID,
		TechnicianID: technicianID,
		FinalPrice:   job.EffectivePrice(),
	})
	return job, nil
}

// RequestRework sends submitted work back to the technician.
func (s *Service) RequestRework(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	job, err := s.repo.RequestRework(ctx, jobID, dealerID)
	if err != nil {
		return repository.Job{}, err
	}
	s.log.JobTransition(job.JobNumber, string(domain.StatusCompletionPendingApproval), string(domain.StatusInProgress), "rework")
	return job, nil
}

// CancelJob cancels a job before work completes.
func (s *Service) CancelJob(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	job, err := s.repo.Cancel(ctx, jobID, dealerID)
	if err != nil {
		return repository.Job{}, err
	}
	s.log.JobTransition(job.JobNumber, "", string(domain.StatusCancelled), "cancel")
	return job, nil
}

// RepostJob refreshes a pooled job for another matching round. The bound is
// strict: past maxReposts the job is permanently rejected and the caller
// gets a terminal gone error, distinct from a transient timeout.
func (s *Service) RepostJob(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	current, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return repository.Job{}, err
	}
	if current.DealerID != dealerID {
		return repository.Job{}, apperr.Forbidden("job belongs to another dealer")
	}
	if current.PermanentlyRejected {
		return repository.Job{}, apperr.Gone("job was permanently rejected after exhausting reposts")
	}

	if current.RepostCount >= current.MaxReposts {
		job, err := s.repo.PermanentlyReject(ctx, jobID)
		if err != nil {
			return repository.Job{}, err
		}
		s.log.JobTransition(job.JobNumber, string(domain.StatusPending), string(domain.StatusCancelled), "repost_limit")
		s.bus.Publish(ctx, events.JobPermanentlyRejected{
			BaseEvent: events.NewBaseEvent(),
			JobID:     job.ID,
			JobNumber: job.JobNumber,
			DealerID:  job.DealerID,
		})
		return repository.Job{}, apperr.Gone("repost limit exceeded; job permanently rejected")
	}

	job, err := s.repo.Repost(ctx, jobID, dealerID)
	if err != nil {
		return repository.Job{}, err
	}

	s.announceToPool(ctx, job)
	return job, nil
}

// MakeCounterOffer proposes a new price during the acceptance window and
// arms the response timer on the counterparty. A soft-locked job keeps its
// lock for the whole response window; if the offer settles without the
// dealer confirming, the re-armed lock timer releases the job at the
// stretched expiry.
func (s *Service) MakeCounterOffer(ctx context.Context, jobID, proposerID uuid.UUID, amount int64) (repository.Job, error) {
	current, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return repository.Job{}, err
	}
	if current.DealerID != proposerID && (current.TechnicianID == nil || *current.TechnicianID != proposerID) {
		return repository.Job{}, apperr.Forbidden("only the dealer or the locked technician may negotiate")
	}

	expiresAt := time.Now().Add(s.cfg.GetNegotiationWindow())
	job, err := s.repo.SetCounterOffer(ctx, jobID, proposerID, amount, expiresAt)
	if err != nil {
		return repository.Job{}, err
	}

	if job.Status == domain.StatusSoftLocked && job.SoftLockExpiresAt != nil {
		s.armSoftLockTimer(ctx, job, *job.SoftLockExpiresAt)
	}
	if s.timers != nil {
		if err := s.timers.ScheduleNegotiationExpiry(ctx, job.ID, job.SoftLockGeneration, expiresAt); err != nil {
			s.log.Error("schedule negotiation expiry", "jobNumber", job.JobNumber, "error", err)
		}
	}

	recipient := job.DealerID
	if proposerID == job.DealerID && job.TechnicianID != nil {
		recipient = *job.TechnicianID
	}
	s.bus.Publish(ctx, events.CounterOfferMade{
		BaseEvent:   events.NewBaseEvent(),
		JobID:       job.ID,
		JobNumber:   job.JobNumber,
		ProposerID:  proposerID,
		RecipientID: recipient,
		Amount:      amount,
	})
	return job, nil
}

// RespondCounterOffer settles the pending counter-offer. Only the
// counterparty may respond; acceptance folds the amount into the job price,
// decline drops the offer and keeps the previous terms.
func (s *Service) RespondCounterOffer(ctx context.Context, jobID, responderID uuid.UUID, accept bool) (repository.Job, error) {
	current, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return repository.Job{}, err
	}
	if current.CounterOfferAmount == nil || current.CounterOfferBy == nil {
		return repository.Job{}, apperr.Conflict("no pending counter-offer on this job")
	}
	if *current.CounterOfferBy == responderID {
		return repository.Job{}, apperr.Forbidden("the proposer cannot respond to their own offer")
	}
	if current.DealerID != responderID && (current.TechnicianID == nil || *current.TechnicianID != responderID) {
		return repository.Job{}, apperr.Forbidden("only the counterparty may respond")
	}

	if accept {
		return s.repo.AcceptCounterOffer(ctx, jobID)
	}
	return s.repo.DeclineCounterOffer(ctx, jobID)
}

// RaiseDispute opens a dispute on a job the caller is party to.
func (s *Service) RaiseDispute(ctx context.Context, jobID, raisedBy uuid.UUID, description string) (escrowrepo.Dispute, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return escrowrepo.Dispute{}, err
	}
	if job.DealerID != raisedBy && (job.TechnicianID == nil || *job.TechnicianID != raisedBy) {
		return escrowrepo.Dispute{}, apperr.Forbidden("only a party to the job may raise a dispute")
	}

	dispute, err := s.escrow.RaiseDispute(ctx, jobID, raisedBy, description)
	if err != nil {
		return escrowrepo.Dispute{}, err
	}

	technicianID := uuid.Nil
	if job.TechnicianID != nil {
		technicianID = *job.TechnicianID
	}
	s.bus.Publish(ctx, events.DisputeRaised{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        job.ID,
		JobNumber:    job.JobNumber,
		DealerID:     job.DealerID,
		TechnicianID: technicianID,
		Description:  description,
	})
	return dispute, nil
}
