package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	accountsrepo "fieldserve_backend/internal/accounts/repository"
	escrowrepo "fieldserve_backend/internal/escrow/repository"
	escrowsvc "fieldserve_backend/internal/escrow/service"
	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
	risksvc "fieldserve_backend/internal/risk/service"
	taxsvc "fieldserve_backend/internal/taxonomy/service"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/logger"
)

// fakeStore mirrors the repository's guarded updates in memory, including
// the generation and expiry guards on the timer-driven releases. The clock
// is injectable so expiry windows are exercised without sleeping.
type fakeStore struct {
	jobs    map[uuid.UUID]repository.Job
	now     func() time.Time
	nextNum int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[uuid.UUID]repository.Job{}, now: time.Now}
}

func (f *fakeStore) put(j repository.Job) { f.jobs[j.ID] = j }
func (f *fakeStore) get(id uuid.UUID) repository.Job {
	return f.jobs[id]
}

func (f *fakeStore) NextJobNumber(ctx context.Context) (string, error) {
	f.nextNum++
	return fmt.Sprintf("JOB-TEST-%04d", f.nextNum), nil
}

func (f *fakeStore) Create(ctx context.Context, j repository.Job) (repository.Job, error) {
	j.ID = uuid.New()
	j.Status = domain.StatusPending
	j.CreatedAt = f.now()
	j.UpdatedAt = j.CreatedAt
	f.put(j)
	return j, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return repository.Job{}, apperr.NotFound("job not found")
	}
	return j, nil
}

func (f *fakeStore) ListOpen(ctx context.Context, limit int) ([]repository.Job, error) {
	var out []repository.Job
	for _, j := range f.jobs {
		if j.Status == domain.StatusPending {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForDealer(ctx context.Context, dealerID uuid.UUID, limit int) ([]repository.Job, error) {
	var out []repository.Job
	for _, j := range f.jobs {
		if j.DealerID == dealerID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForTechnician(ctx context.Context, technicianID uuid.UUID, limit int) ([]repository.Job, error) {
	var out []repository.Job
	for _, j := range f.jobs {
		if j.TechnicianID != nil && *j.TechnicianID == technicianID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeStore) TrySoftLock(ctx context.Context, jobID, technicianID uuid.UUID, expiresAt time.Time) (repository.Job, bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.StatusPending || j.TechnicianID != nil {
		return repository.Job{}, false, nil
	}
	j.Status = domain.StatusSoftLocked
	j.TechnicianID = &technicianID
	j.SoftLockGeneration++
	j.SoftLockExpiresAt = &expiresAt
	f.put(j)
	return j, true, nil
}

func (f *fakeStore) ExtendSoftLock(ctx context.Context, jobID, dealerID uuid.UUID, expiresAt time.Time) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.DealerID != dealerID || j.Status != domain.StatusSoftLocked {
		return repository.Job{}, apperr.Conflict("job is no longer soft-locked")
	}
	j.SoftLockExpiresAt = &expiresAt
	f.put(j)
	return j, nil
}

func (f *fakeStore) ConfirmSoftLock(ctx context.Context, jobID, dealerID uuid.UUID, paymentDueAt time.Time) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.DealerID != dealerID || j.Status != domain.StatusSoftLocked {
		return repository.Job{}, apperr.Conflict("job is not awaiting soft-lock confirmation")
	}
	j.Status = domain.StatusWaitingForPayment
	j.PaymentDueAt = &paymentDueAt
	j.SoftLockExpiresAt = nil
	f.put(j)
	return j, nil
}

func (f *fakeStore) releaseToPool(j repository.Job, reason string) repository.Job {
	j.Status = domain.StatusPending
	j.TechnicianID = nil
	j.SoftLockExpiresAt = nil
	j.PaymentDueAt = nil
	j.CounterOfferAmount = nil
	j.CounterOfferBy = nil
	j.CounterOfferExpiresAt = nil
	j.TimeoutReasons = append(j.TimeoutReasons, reason)
	f.put(j)
	return j
}

func (f *fakeStore) ReleaseExpiredSoftLock(ctx context.Context, jobID uuid.UUID, generation int) (repository.Job, bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.StatusSoftLocked || j.SoftLockGeneration != generation ||
		j.SoftLockExpiresAt == nil || j.SoftLockExpiresAt.After(f.now()) {
		return repository.Job{}, false, nil
	}
	return f.releaseToPool(j, domain.ReasonSoftLockTimeout), true, nil
}

func (f *fakeStore) ReleaseMissedPayment(ctx context.Context, jobID uuid.UUID, generation int) (repository.Job, bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.StatusWaitingForPayment || j.SoftLockGeneration != generation ||
		j.PaymentDueAt == nil || j.PaymentDueAt.After(f.now()) {
		return repository.Job{}, false, nil
	}
	return f.releaseToPool(j, domain.ReasonPaymentDeadlineTimeout), true, nil
}

func (f *fakeStore) ReleaseNegotiationTimeout(ctx context.Context, jobID uuid.UUID, generation int) (repository.Job, bool, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.SoftLockGeneration != generation || j.CounterOfferAmount == nil ||
		j.CounterOfferExpiresAt == nil || j.CounterOfferExpiresAt.After(f.now()) {
		return repository.Job{}, false, nil
	}
	if j.Status != domain.StatusSoftLocked && j.Status != domain.StatusWaitingForPayment {
		return repository.Job{}, false, nil
	}
	return f.releaseToPool(j, domain.ReasonNegotiationTimeout), true, nil
}

func (f *fakeStore) MarkAssigned(ctx context.Context, jobID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.StatusWaitingForPayment {
		return repository.Job{}, apperr.Conflict("job is not waiting for payment")
	}
	j.Status = domain.StatusAssigned
	j.PaymentDueAt = nil
	now := f.now()
	j.AssignedAt = &now
	f.put(j)
	return j, nil
}

func (f *fakeStore) Start(ctx context.Context, jobID, technicianID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.StatusAssigned || j.TechnicianID == nil || *j.TechnicianID != technicianID {
		return repository.Job{}, apperr.Conflict("job is not assigned to this technician")
	}
	j.Status = domain.StatusInProgress
	f.put(j)
	return j, nil
}

func (f *fakeStore) SubmitCompletion(ctx context.Context, jobID, technicianID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.StatusInProgress || j.TechnicianID == nil || *j.TechnicianID != technicianID {
		return repository.Job{}, apperr.Conflict("job is not in progress for this technician")
	}
	j.Status = domain.StatusCompletionPendingApproval
	f.put(j)
	return j, nil
}

func (f *fakeStore) Approve(ctx context.Context, jobID, dealerID uuid.UUID, finalPrice int64, rating *float64) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.DealerID != dealerID || j.Status != domain.StatusCompletionPendingApproval {
		return repository.Job{}, apperr.Conflict("job is not pending completion approval")
	}
	j.Status = domain.StatusCompleted
	j.FinalPrice = &finalPrice
	j.PriceLocked = true
	j.Rating = rating
	now := f.now()
	j.ApprovedAt = &now
	j.CompletedAt = &now
	f.put(j)
	return j, nil
}

func (f *fakeStore) RequestRework(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.DealerID != dealerID || j.Status != domain.StatusCompletionPendingApproval {
		return repository.Job{}, apperr.Conflict("job is not pending completion approval")
	}
	j.Status = domain.StatusInProgress
	f.put(j)
	return j, nil
}

func (f *fakeStore) Cancel(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.DealerID != dealerID {
		return repository.Job{}, apperr.Conflict("job can no longer be cancelled")
	}
	j.Status = domain.StatusCancelled
	f.put(j)
	return j, nil
}

func (f *fakeStore) Repost(ctx context.Context, jobID, dealerID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.DealerID != dealerID || j.Status != domain.StatusPending {
		return repository.Job{}, apperr.Conflict("only pooled jobs can be reposted")
	}
	j.RepostCount++
	f.put(j)
	return j, nil
}

func (f *fakeStore) PermanentlyReject(ctx context.Context, jobID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.Status != domain.StatusPending {
		return repository.Job{}, apperr.Conflict("job is not in the pool")
	}
	j.Status = domain.StatusCancelled
	j.PermanentlyRejected = true
	f.put(j)
	return j, nil
}

func (f *fakeStore) SetCounterOffer(ctx context.Context, jobID, proposerID uuid.UUID, amount int64, expiresAt time.Time) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.CounterOfferAmount != nil || j.PriceLocked ||
		(j.Status != domain.StatusSoftLocked && j.Status != domain.StatusWaitingForPayment) {
		return repository.Job{}, apperr.Conflict("job is not open for a counter-offer")
	}
	j.CounterOfferAmount = &amount
	j.CounterOfferBy = &proposerID
	j.CounterOfferExpiresAt = &expiresAt
	if j.Status == domain.StatusSoftLocked &&
		(j.SoftLockExpiresAt == nil || j.SoftLockExpiresAt.Before(expiresAt)) {
		j.SoftLockExpiresAt = &expiresAt
	}
	f.put(j)
	return j, nil
}

func (f *fakeStore) AcceptCounterOffer(ctx context.Context, jobID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.CounterOfferAmount == nil {
		return repository.Job{}, apperr.Conflict("no pending counter-offer on this job")
	}
	j.FinalPrice = j.CounterOfferAmount
	j.CounterOfferAmount = nil
	j.CounterOfferBy = nil
	j.CounterOfferExpiresAt = nil
	f.put(j)
	return j, nil
}

func (f *fakeStore) DeclineCounterOffer(ctx context.Context, jobID uuid.UUID) (repository.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok || j.CounterOfferAmount == nil {
		return repository.Job{}, apperr.Conflict("no pending counter-offer on this job")
	}
	j.CounterOfferAmount = nil
	j.CounterOfferBy = nil
	j.CounterOfferExpiresAt = nil
	f.put(j)
	return j, nil
}

type scheduledTimer struct {
	task       string
	jobID      uuid.UUID
	generation int
	runAt      time.Time
}

type fakeTimers struct {
	scheduled []scheduledTimer
}

func (f *fakeTimers) ScheduleSoftLockExpiry(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error {
	f.scheduled = append(f.scheduled, scheduledTimer{"soft_lock_expiry", jobID, generation, runAt})
	return nil
}

func (f *fakeTimers) SchedulePaymentDeadline(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error {
	f.scheduled = append(f.scheduled, scheduledTimer{"payment_deadline", jobID, generation, runAt})
	return nil
}

func (f *fakeTimers) ScheduleNegotiationExpiry(ctx context.Context, jobID uuid.UUID, generation int, runAt time.Time) error {
	f.scheduled = append(f.scheduled, scheduledTimer{"negotiation_expiry", jobID, generation, runAt})
	return nil
}

func (f *fakeTimers) ScheduleHoldRelease(ctx context.Context, jobID uuid.UUID, runAt time.Time) error {
	f.scheduled = append(f.scheduled, scheduledTimer{"hold_release", jobID, 0, runAt})
	return nil
}

func (f *fakeTimers) count(task string) int {
	n := 0
	for _, s := range f.scheduled {
		if s.task == task {
			n++
		}
	}
	return n
}

type fakeTechDir struct {
	techs map[uuid.UUID]accountsrepo.Technician
}

func (f *fakeTechDir) ListApprovedTechnicians(ctx context.Context) ([]accountsrepo.Technician, error) {
	var out []accountsrepo.Technician
	for _, t := range f.techs {
		if t.ApprovalStatus == accountsrepo.ApprovalApproved {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTechDir) GetTechnician(ctx context.Context, accountID uuid.UUID) (accountsrepo.Technician, error) {
	t, ok := f.techs[accountID]
	if !ok {
		return accountsrepo.Technician{}, apperr.NotFound("technician profile not found")
	}
	return t, nil
}

type fakeTaxonomy struct{}

func (fakeTaxonomy) ResolveTitles(ctx context.Context, domainIDs, categoryIDs, skillIDs []uuid.UUID) taxsvc.TitleSet {
	return taxsvc.TitleSet{}
}

func (fakeTaxonomy) ResolveWarrantyDays(ctx context.Context, categoryID uuid.UUID, subcategoryID *uuid.UUID) int {
	return 30
}

type fakeRisk struct {
	assessment risksvc.Assessment
}

func (f fakeRisk) Assess(ctx context.Context, technicianID, dealerID uuid.UUID) (risksvc.Assessment, error) {
	return f.assessment, nil
}

type fakeEscrow struct {
	payments  map[uuid.UUID]escrowrepo.Payment
	splits    map[uuid.UUID]escrowrepo.PaymentSplit
	failSplit bool
}

func newFakeEscrow() *fakeEscrow {
	return &fakeEscrow{
		payments: map[uuid.UUID]escrowrepo.Payment{},
		splits:   map[uuid.UUID]escrowrepo.PaymentSplit{},
	}
}

func (f *fakeEscrow) CapturePayment(ctx context.Context, jobID uuid.UUID, method string, amount int64, proofNote *string) (escrowrepo.Payment, error) {
	if _, exists := f.payments[jobID]; exists {
		return escrowrepo.Payment{}, apperr.Conflict("payment already captured for this job")
	}
	p := escrowrepo.Payment{ID: uuid.New(), JobID: jobID, Method: method, Amount: amount, ProofNote: proofNote, CapturedAt: time.Now()}
	f.payments[jobID] = p
	return p, nil
}

func (f *fakeEscrow) PaymentForJob(ctx context.Context, jobID uuid.UUID) (escrowrepo.Payment, error) {
	p, ok := f.payments[jobID]
	if !ok {
		return escrowrepo.Payment{}, apperr.NotFound("no payment captured for this job")
	}
	return p, nil
}

func (f *fakeEscrow) CreateSplit(ctx context.Context, p escrowsvc.SplitParams) (escrowrepo.PaymentSplit, error) {
	if f.failSplit {
		f.failSplit = false
		return escrowrepo.PaymentSplit{}, errors.New("escrow unavailable")
	}
	if _, exists := f.splits[p.JobID]; exists {
		return escrowrepo.PaymentSplit{}, apperr.Conflict("escrow split already exists for this job")
	}
	split := escrowrepo.PaymentSplit{
		ID:           uuid.New(),
		JobID:        p.JobID,
		TechnicianID: p.TechnicianID,
		TotalAmount:  p.TotalAmount,
		HoldPct:      p.HoldPct,
		WarrantyDays: p.WarrantyDays,
		Method:       p.Method,
		HoldState:    escrowrepo.HoldStateHeld,
		AutoRelease:  p.AutoRelease,
		ReleaseDueAt: p.CompletedAt.AddDate(0, 0, p.WarrantyDays),
	}
	f.splits[p.JobID] = split
	return split, nil
}

func (f *fakeEscrow) SplitForJob(ctx context.Context, jobID uuid.UUID, asTechnician bool) (escrowsvc.SplitView, error) {
	s, ok := f.splits[jobID]
	if !ok {
		return escrowsvc.SplitView{}, apperr.NotFound("no escrow split for this job")
	}
	return escrowsvc.SplitView{
		JobID:        s.JobID,
		TotalAmount:  s.TotalAmount,
		HoldPct:      s.HoldPct,
		HoldState:    s.HoldState,
		ReleaseDueAt: s.ReleaseDueAt,
	}, nil
}

func (f *fakeEscrow) RaiseDispute(ctx context.Context, jobID, raisedBy uuid.UUID, description string) (escrowrepo.Dispute, error) {
	return escrowrepo.Dispute{ID: uuid.New(), JobID: jobID, RaisedBy: raisedBy, Description: description, Status: escrowrepo.DisputeOpen}, nil
}

func (f *fakeEscrow) UPIQR(jobNumber string, amount int64) ([]byte, error) {
	return []byte("png"), nil
}

type testLifecycleConfig struct {
	softLock    time.Duration
	payment     time.Duration
	negotiation time.Duration
}

func (c testLifecycleConfig) GetSoftLockWindow() time.Duration    { return c.softLock }
func (c testLifecycleConfig) GetPaymentWindow() time.Duration     { return c.payment }
func (c testLifecycleConfig) GetNegotiationWindow() time.Duration { return c.negotiation }
func (c testLifecycleConfig) GetMaxReposts() int                  { return 3 }
func (c testLifecycleConfig) GetOTPTTL() time.Duration            { return 15 * time.Minute }

type lifecycleFixture struct {
	svc    *Service
	store  *fakeStore
	timers *fakeTimers
	escrow *fakeEscrow
	techs  map[uuid.UUID]accountsrepo.Technician
}

func newLifecycleFixture(t *testing.T, cfg testLifecycleConfig) *lifecycleFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.New("test")
	store := newFakeStore()
	timers := &fakeTimers{}
	esc := newFakeEscrow()
	techs := map[uuid.UUID]accountsrepo.Technician{}

	svc := New(
		store,
		NewOTPStore(rdb, cfg.GetOTPTTL()),
		events.NewInMemoryBus(log),
		timers,
		&fakeTechDir{techs: techs},
		fakeTaxonomy{},
		fakeRisk{assessment: risksvc.Assessment{RecommendedHoldPct: 20, AutoRelease: true}},
		esc,
		cfg,
		log,
	)
	return &lifecycleFixture{svc: svc, store: store, timers: timers, escrow: esc, techs: techs}
}

func (fx *lifecycleFixture) approveTechnician(id uuid.UUID) {
	fx.techs[id] = accountsrepo.Technician{AccountID: id, ApprovalStatus: accountsrepo.ApprovalApproved}
}

func (fx *lifecycleFixture) seedPendingJob(dealerID uuid.UUID) repository.Job {
	j := repository.Job{
		ID:        uuid.New(),
		JobNumber: "JOB-TEST-9001",
		DealerID:  dealerID,
		Status:    domain.StatusPending,
		Amount:    10000,
	}
	fx.store.put(j)
	return j
}

func defaultWindows() testLifecycleConfig {
	return testLifecycleConfig{
		softLock:    45 * time.Second,
		payment:     30 * time.Minute,
		negotiation: 5 * time.Minute,
	}
}

func TestStaleSoftLockTimerAfterReset(t *testing.T) {
	fx := newLifecycleFixture(t, defaultWindows())
	ctx := context.Background()
	dealer, tech := uuid.New(), uuid.New()
	fx.approveTechnician(tech)
	job := fx.seedPendingJob(dealer)

	accepted, err := fx.svc.AcceptJob(ctx, job.ID, tech)
	if err != nil {
		t.Fatalf("AcceptJob: %v", err)
	}

	reset, err := fx.svc.ResetSoftLockTimer(ctx, job.ID, dealer)
	if err != nil {
		t.Fatalf("ResetSoftLockTimer: %v", err)
	}
	if reset.SoftLockGeneration != accepted.SoftLockGeneration {
		t.Fatalf("reset changed the lock generation: %d -> %d", accepted.SoftLockGeneration, reset.SoftLockGeneration)
	}

	// The timer armed at acceptance fires while the fresh window is still
	// open. It carries a matching generation but must not release the job.
	if err := fx.svc.HandleSoftLockExpiry(ctx, job.ID, accepted.SoftLockGeneration); err != nil {
		t.Fatalf("HandleSoftLockExpiry: %v", err)
	}
	if got := fx.store.get(job.ID); got.Status != domain.StatusSoftLocked {
		t.Fatalf("early firing released a live lock: status %s", got.Status)
	}

	// Once the extended window has genuinely lapsed the re-armed timer
	// releases the job with the timeout reason recorded.
	fx.store.now = func() time.Time { return reset.SoftLockExpiresAt.Add(time.Second) }
	if err := fx.svc.HandleSoftLockExpiry(ctx, job.ID, reset.SoftLockGeneration); err != nil {
		t.Fatalf("HandleSoftLockExpiry after expiry: %v", err)
	}
	got := fx.store.get(job.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expired lock not released: status %s", got.Status)
	}
	if got.TechnicianID != nil {
		t.Error("released job should have no technician")
	}
	if len(got.TimeoutReasons) != 1 || got.TimeoutReasons[0] != domain.ReasonSoftLockTimeout {
		t.Errorf("timeout reasons = %v, want [%s]", got.TimeoutReasons, domain.ReasonSoftLockTimeout)
	}

	if n := fx.timers.count("soft_lock_expiry"); n != 2 {
		t.Errorf("scheduled %d soft-lock timers, want 2 (accept + reset)", n)
	}
}

func TestCounterOfferKeepsSoftLockThroughResponseWindow(t *testing.T) {
	fx := newLifecycleFixture(t, defaultWindows())
	ctx := context.Background()
	dealer, tech := uuid.New(), uuid.New()
	fx.approveTechnician(tech)
	job := fx.seedPendingJob(dealer)

	accepted, err := fx.svc.AcceptJob(ctx, job.ID, tech)
	if err != nil {
		t.Fatalf("AcceptJob: %v", err)
	}

	offered, err := fx.svc.MakeCounterOffer(ctx, job.ID, tech, 12000)
	if err != nil {
		t.Fatalf("MakeCounterOffer: %v", err)
	}
	if offered.SoftLockExpiresAt == nil || offered.CounterOfferExpiresAt == nil {
		t.Fatal("counter-offer should leave both expiries set")
	}
	if offered.SoftLockExpiresAt.Before(*offered.CounterOfferExpiresAt) {
		t.Fatalf("soft lock expires %v before the response window closes %v",
			offered.SoftLockExpiresAt, offered.CounterOfferExpiresAt)
	}

	// The original 45-second lock timer fires mid-negotiation: no-op.
	fx.store.now = func() time.Time { return accepted.SoftLockExpiresAt.Add(time.Second) }
	if err := fx.svc.HandleSoftLockExpiry(ctx, job.ID, accepted.SoftLockGeneration); err != nil {
		t.Fatalf("HandleSoftLockExpiry: %v", err)
	}
	if got := fx.store.get(job.ID); got.Status != domain.StatusSoftLocked {
		t.Fatalf("negotiating job released early: status %s", got.Status)
	}

	// An unanswered offer times out at the end of the response window.
	fx.store.now = func() time.Time { return offered.CounterOfferExpiresAt.Add(time.Second) }
	if err := fx.svc.HandleNegotiationExpiry(ctx, job.ID, offered.SoftLockGeneration); err != nil {
		t.Fatalf("HandleNegotiationExpiry: %v", err)
	}
	got := fx.store.get(job.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("unanswered offer did not return job to pool: status %s", got.Status)
	}
	if len(got.TimeoutReasons) != 1 || got.TimeoutReasons[0] != domain.ReasonNegotiationTimeout {
		t.Errorf("timeout reasons = %v, want [%s]", got.TimeoutReasons, domain.ReasonNegotiationTimeout)
	}
}

func TestApproveJobResumesAfterSplitFailure(t *testing.T) {
	fx := newLifecycleFixture(t, defaultWindows())
	ctx := context.Background()
	dealer, tech := uuid.New(), uuid.New()

	job := repository.Job{
		ID:           uuid.New(),
		JobNumber:    "JOB-TEST-9002",
		DealerID:     dealer,
		TechnicianID: &tech,
		Status:       domain.StatusCompletionPendingApproval,
		Amount:       10000,
		WarrantyDays: 30,
	}
	fx.store.put(job)

	fx.escrow.failSplit = true
	if _, err := fx.svc.ApproveJob(ctx, job.ID, dealer, 10000, nil, nil); err == nil {
		t.Fatal("expected the first approval to fail at split creation")
	}
	if got := fx.store.get(job.ID); got.Status != domain.StatusCompleted {
		t.Fatalf("approval transition should have committed: status %s", got.Status)
	}
	if _, exists := fx.escrow.splits[job.ID]; exists {
		t.Fatal("no split should exist after the failed attempt")
	}

	// The retry resumes at split creation against the locked price.
	approved, err := fx.svc.ApproveJob(ctx, job.ID, dealer, 10000, nil, nil)
	if err != nil {
		t.Fatalf("ApproveJob retry: %v", err)
	}
	if approved.Status != domain.StatusCompleted {
		t.Fatalf("retry returned status %s, want %s", approved.Status, domain.StatusCompleted)
	}
	split, exists := fx.escrow.splits[job.ID]
	if !exists {
		t.Fatal("retry should have created the escrow split")
	}
	if split.TotalAmount != 10000 {
		t.Errorf("split total = %d, want 10000", split.TotalAmount)
	}
	if n := fx.timers.count("hold_release"); n != 1 {
		t.Errorf("scheduled %d hold-release timers, want 1", n)
	}

	// With the split in place a further approval is a plain conflict.
	if _, err := fx.svc.ApproveJob(ctx, job.ID, dealer, 10000, nil, nil); apperr.GetKind(err) != apperr.KindConflict {
		t.Errorf("third approval: got %v, want conflict", err)
	}
}

func TestLockPaymentOnlineMethodWithoutProof(t *testing.T) {
	fx := newLifecycleFixture(t, defaultWindows())
	ctx := context.Background()
	dealer, tech := uuid.New(), uuid.New()

	due := time.Now().Add(30 * time.Minute)
	job := repository.Job{
		ID:           uuid.New(),
		JobNumber:    "JOB-TEST-9003",
		DealerID:     dealer,
		TechnicianID: &tech,
		Status:       domain.StatusWaitingForPayment,
		Amount:       8000,
		PaymentDueAt: &due,
	}
	fx.store.put(job)

	assigned, err := fx.svc.LockPayment(ctx, job.ID, dealer, escrowrepo.MethodUPI, nil)
	if err != nil {
		t.Fatalf("LockPayment: %v", err)
	}
	if assigned.Status != domain.StatusAssigned {
		t.Fatalf("status = %s, want %s", assigned.Status, domain.StatusAssigned)
	}
	payment, ok := fx.escrow.payments[job.ID]
	if !ok {
		t.Fatal("payment should be captured")
	}
	if payment.ProofNote != nil {
		t.Errorf("online payment stored proof %q, want none", *payment.ProofNote)
	}
}
