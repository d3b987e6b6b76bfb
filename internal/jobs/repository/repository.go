// Package repository implements job persistence. Every lifecycle mutation
// is a conditional update guarded by the expected status (and, for
// timer-driven paths, the soft-lock generation), so concurrent acceptances
// and stale timer firings resolve at the database without advisory locks.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/platform/apperr"
)

const jobNotFoundMessage = "job not found"

const jobColumns = `id, job_number, dealer_id, technician_id, title, description, work_detail, status,
	address, city, state, pincode, latitude, longitude, domain_id, category_id, skill_id,
	customer_name, customer_phone, amount, final_price, price_locked,
	estimated_duration_minutes, scheduled_at,
	soft_lock_generation, soft_lock_expires_at, payment_due_at,
	counter_offer_amount, counter_offer_by, counter_offer_expires_at,
	repost_count, max_reposts, permanently_rejected, timeout_reasons, warranty_days, rating,
	assigned_at, started_at, submitted_at, approved_at, completed_at, created_at, updated_at`

// Repo implements job persistence with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new jobs repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.JobNumber, &j.DealerID, &j.TechnicianID, &j.Title, &j.Description, &j.WorkDetail, &j.Status,
		&j.Address, &j.City, &j.State, &j.Pincode, &j.Latitude, &j.Longitude, &j.DomainID, &j.CategoryID, &j.SkillID,
		&j.CustomerName, &j.CustomerPhone, &j.Amount, &j.FinalPrice, &j.PriceLocked,
		&j.EstimatedDurationMinutes, &j.ScheduledAt,
		&j.SoftLockGeneration, &j.SoftLockExpiresAt, &j.PaymentDueAt,
		&j.CounterOfferAmount, &j.CounterOfferBy, &j.CounterOfferExpiresAt,
		&j.RepostCount, &j.MaxReposts, &j.PermanentlyRejected, &j.TimeoutReasons, &j.WarrantyDays, &j.Rating,
		&j.AssignedAt, &j.StartedAt, &j.SubmittedAt, &j.ApprovedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	return j, err
}

// NextJobNumber atomically generates the next job number for the current
// year.
func (r *Repo) NextJobNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()

	var nextNum int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO job_counters (year, last_number)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_number = job_counters.last_number + 1
		RETURNING last_number`, year,
	).Scan(&nextNum)
	if err != nil {
		return "", fmt.Errorf("generate job number: %w", err)
	}
	return fmt.Sprintf("JOB-%d-%04d", year, nextNum), nil
}

// Create inserts a new job in PENDING.
func (r *Repo) Create(ctx context.Context, j Job) (Job, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (id, job_number, dealer_id, title, description, work_detail, status,
			address, city, state, pincode, latitude, longitude, domain_id, category_id, skill_id,
			customer_name, customer_phone, amount,
			estimated_duration_minutes, scheduled_at, warranty_days, max_reposts,
			timeout_reasons, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, '{}', now(), now())
		RETURNING `+jobColumns,
		uuid.New(), j.JobNumber, j.DealerID, j.Title, j.Description, j.WorkDetail, domain.StatusPending,
		j.Address, j.City, j.State, j.Pincode, j.Latitude, j.Longitude, j.DomainID, j.CategoryID, j.SkillID,
		j.CustomerName, j.CustomerPhone, j.Amount,
		j.EstimatedDurationMinutes, j.ScheduledAt, j.WarrantyDays, j.MaxReposts,
	).Scan(scanTargets(&j)...)
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return j, nil
}

// scanTargets keeps Create's RETURNING scan aligned with jobColumns.
func scanTargets(j *Job) []any {
	return []any{&j.ID, &j.JobNumber, &j.DealerID, &j.TechnicianID, &j.Title, &j.Description, &j.WorkDetail, &j.Status,
		&j.Address, &j.City, &j.State, &j.Pincode, &j.Latitude, &j.Longitude, &j.DomainID, &j.CategoryID, &j.SkillID,
		&j.CustomerName, &j.CustomerPhone, &j.Amount, &j.FinalPrice, &j.PriceLocked,
		&j.EstimatedDurationMinutes, &j.ScheduledAt,
		&j.SoftLockGeneration, &j.SoftLockExpiresAt, &j.PaymentDueAt,
		&j.CounterOfferAmount, &j.CounterOfferBy, &j.CounterOfferExpiresAt,
		&j.RepostCount, &j.MaxReposts, &j.PermanentlyRejected, &j.TimeoutReasons, &j.WarrantyDays, &j.Rating,
		&j.AssignedAt, &j.StartedAt, &j.SubmittedAt, &j.ApprovedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt}
}

// GetByID retrieves a job by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.NotFound(jobNotFoundMessage)
		}
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// ListOpen returns PENDING jobs for matching and the technician pool view.
func (r *Repo) ListOpen(ctx context.Context, limit int) ([]Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, domain.StatusPending, limit)
}

// ListForDealer returns a dealer's jobs, newest first.
func (r *Repo) ListForDealer(ctx context.Context, dealerID uuid.UUID, limit int) ([]Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE dealer_id = $1 ORDER BY created_at DESC LIMIT $2`, dealerID, limit)
}

// ListForTechnician returns jobs currently held by or assigned to a
// technician.
func (r *Repo) ListForTechnician(ctx context.Context, technicianID uuid.UUID, limit int) ([]Job, error) {
	return r.list(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE technician_id = $1 ORDER BY updated_at DESC LIMIT $2`, technicianID, limit)
}

func (r *Repo) list(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// TrySoftLock attempts to win the acceptance race for a technician. Exactly
// one concurrent caller sees the PENDING row; everyone else gets false. The
// generation increments so timers scheduled for earlier locks cannot touch
// this one.
func (r *Repo) TrySoftLock(ctx context.Context, jobID, technicianID uuid.UUID, expiresAt time.Time) (Job, bool, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = $1, technician_id = $2,
		    soft_lock_generation = soft_lock_generation + 1,
		    soft_lock_expires_at = $3, updated_at = now()
		WHERE id = $4 AND status = $5 AND technician_id IS NULL
		RETURNING `+jobColumns,
		domain.StatusSoftLocked, technicianID, expiresAt, jobID, domain.StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("try soft lock: %w", err)
	}
	return j, true, nil
}

// ExtendSoftLock pushes the soft-lock expiry for the dealer's return to the
// page. Used by the one-shot timer reset; the once-per-lock bookkeeping
// lives in Redis. The timer armed at the old expiry no-ops against the
// expiry guard in ReleaseExpiredSoftLock.
func (r *Repo) ExtendSoftLock(ctx context.Context, jobID, dealerID uuid.UUID, expiresAt time.Time) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET soft_lock_expires_at = $1, updated_at = now()
		WHERE id = $2 AND dealer_id = $3 AND status = $4
		RETURNING `+jobColumns,
		expiresAt, jobID, dealerID, domain.StatusSoftLocked))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is no longer soft-locked")
		}
		return Job{}, fmt.Errorf("extend soft lock: %w", err)
	}
	return j, nil
}

// ConfirmSoftLock moves a soft-locked job to WAITING_FOR_PAYMENT and arms
// the payment deadline.
func (r *Repo) ConfirmSoftLock(ctx context.Context, jobID, dealerID uuid.UUID, paymentDueAt time.Time) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, payment_due_at = $2, soft_lock_expires_at = NULL, updated_at = now()
		WHERE id = $3 AND dealer_id = $4 AND status = $5
		RETURNING `+jobColumns,
		domain.StatusWaitingForPayment, paymentDueAt, jobID, dealerID, domain.StatusSoftLocked))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not awaiting soft-lock confirmation")
		}
		return Job{}, fmt.Errorf("confirm soft lock: %w", err)
	}
	return j, nil
}

// ReleaseExpiredSoftLock returns an unconfirmed soft lock to PENDING,
// clearing the assignment and any pending negotiation, and appends the
// timeout reason. The generation guard makes firings for an older lock
// match zero rows; the expiry guard makes a firing for a lock whose window
// was since extended match zero rows too, so only the timer armed for the
// current expiry releases the job.
func (r *Repo) ReleaseExpiredSoftLock(ctx context.Context, jobID uuid.UUID, generation int) (Job, bool, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = $1, technician_id = NULL,
		    soft_lock_expires_at = NULL, payment_due_at = NULL,
		    counter_offer_amount = NULL, counter_offer_by = NULL, counter_offer_expires_at = NULL,
		    timeout_reasons = array_append(timeout_reasons, $2), updated_at = now()
		WHERE id = $3 AND status = $4 AND soft_lock_generation = $5
		  AND soft_lock_expires_at IS NOT NULL AND soft_lock_expires_at <= now()
		RETURNING `+jobColumns,
		domain.StatusPending, domain.ReasonSoftLockTimeout, jobID, domain.StatusSoftLocked, generation))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("release expired soft lock: %w", err)
	}
	return j, true, nil
}

// ReleaseMissedPayment returns a job whose payment deadline lapsed to
// PENDING. Same guard discipline as the soft-lock release.
func (r *Repo) ReleaseMissedPayment(ctx context.Context, jobID uuid.UUID, generation int) (Job, bool, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = $1, technician_id = NULL,
		    soft_lock_expires_at = NULL, payment_due_at = NULL,
		    counter_offer_amount = NULL, counter_offer_by = NULL, counter_offer_expires_at = NULL,
		    timeout_reasons = array_append(timeout_reasons, $2), updated_at = now()
		WHERE id = $3 AND status = $4 AND soft_lock_generation = $5
		  AND payment_due_at IS NOT NULL AND payment_due_at <= now()
		RETURNING `+jobColumns,
		domain.StatusPending, domain.ReasonPaymentDeadlineTimeout, jobID, domain.StatusWaitingForPayment, generation))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("release missed payment: %w", err)
	}
	return j, true, nil
}

// ReleaseNegotiationTimeout returns a job to PENDING when its counter-offer
// window lapsed unanswered. Guarded by the pending offer, its expiry and
// the lock generation so a settled or replaced negotiation, or a newer
// lock, is untouched.
func (r *Repo) ReleaseNegotiationTimeout(ctx context.Context, jobID uuid.UUID, generation int) (Job, bool, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = $1, technician_id = NULL,
		    soft_lock_expires_at = NULL, payment_due_at = NULL,
		    counter_offer_amount = NULL, counter_offer_by = NULL, counter_offer_expires_at = NULL,
		    timeout_reasons = array_append(timeout_reasons, $2), updated_at = now()
		WHERE id = $3 AND status = ANY($4) AND soft_lock_generation = $5
		  AND counter_offer_amount IS NOT NULL
		  AND counter_offer_expires_at IS NOT NULL AND counter_offer_expires_at <= now()
		RETURNING `+jobColumns,
		domain.StatusPending, domain.ReasonNegotiationTimeout, jobID,
		[]domain.Status{domain.StatusSoftLocked, domain.StatusWaitingForPayment}, generation))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("release negotiation timeout: %w", err)
	}
	return j, true, nil
}

// MarkAssigned moves a job to ASSIGNED once payment is captured.
func (r *Repo) MarkAssigned(ctx context.Context, jobID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, assigned_at = now(), payment_due_at = NULL, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+jobColumns,
		domain.StatusAssigned, jobID, domain.StatusWaitingForPayment))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not waiting for payment")
		}
		return Job{}, fmt.Errorf("mark job assigned: %w", err)
	}
	return j, nil
}

// Start moves an assigned job to IN_PROGRESS for its technician.
func (r *Repo) Start(ctx context.Context, jobID, technicianID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, started_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3 AND technician_id = $4
		RETURNING `+jobColumns,
		domain.StatusInProgress, jobID, domain.StatusAssigned, technicianID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not assigned to this technician")
		}
		return Job{}, fmt.Errorf("start job: %w", err)
	}
	return j, nil
}

// SubmitCompletion moves an in-progress job to COMPLETION_PENDING_APPROVAL.
func (r *Repo) SubmitCompletion(ctx context.Context, jobID, technicianID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, submitted_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3 AND technician_id = $4
		RETURNING `+jobColumns,
		domain.StatusCompletionPendingApproval, jobID, domain.StatusInProgress, technicianID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not in progress for this technician")
		}
		return Job{}, fmt.Errorf("submit completion: %w", err)
	}
	return j, nil
}

// Approve completes the job and locks the price.
func (r *Repo) Approve(ctx context.Context, jobID, dealerID uuid.UUID, finalPrice int64, rating *float64) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, final_price = $2, price_locked = TRUE, rating = $3,
		       approved_at = now(), completed_at = now(), updated_at = now()
		WHERE id = $4 AND dealer_id = $5 AND status = $6
		RETURNING `+jobColumns,
		domain.StatusCompleted, finalPrice, rating, jobID, dealerID, domain.StatusCompletionPendingApproval))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not pending completion approval")
		}
		return Job{}, fmt.Errorf("approve job: %w", err)
	}
	return j, nil
}

// RequestRework returns a submitted job to IN_PROGRESS.
func (r *Repo) RequestRework(ctx context.Context, jobID, dealerID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, submitted_at = NULL, updated_at = now()
		WHERE id = $2 AND dealer_id = $3 AND status = $4
		RETURNING `+jobColumns,
		domain.StatusInProgress, jobID, dealerID, domain.StatusCompletionPendingApproval))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not pending completion approval")
		}
		return Job{}, fmt.Errorf("request rework: %w", err)
	}
	return j, nil
}

// Cancel moves a job to CANCELLED from any pre-work status.
func (r *Repo) Cancel(ctx context.Context, jobID, dealerID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, technician_id = NULL,
		       soft_lock_expires_at = NULL, payment_due_at = NULL, updated_at = now()
		WHERE id = $2 AND dealer_id = $3 AND status = ANY($4)
		RETURNING `+jobColumns,
		domain.StatusCancelled, jobID, dealerID,
		[]domain.Status{domain.StatusPending, domain.StatusSoftLocked, domain.StatusWaitingForPayment, domain.StatusAssigned}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job can no longer be cancelled")
		}
		return Job{}, fmt.Errorf("cancel job: %w", err)
	}
	return j, nil
}

// Repost bumps the repost counter of a pooled job, refreshing it for
// matching. Callers enforce the repost bound before calling.
func (r *Repo) Repost(ctx context.Context, jobID, dealerID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET repost_count = repost_count + 1, updated_at = now()
		WHERE id = $1 AND dealer_id = $2 AND status = $3
		RETURNING `+jobColumns,
		jobID, dealerID, domain.StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("only pooled jobs can be reposted")
		}
		return Job{}, fmt.Errorf("repost job: %w", err)
	}
	return j, nil
}

// PermanentlyReject cancels a pooled job that exhausted its repost limit.
func (r *Repo) PermanentlyReject(ctx context.Context, jobID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET status = $1, permanently_rejected = TRUE, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING `+jobColumns,
		domain.StatusCancelled, jobID, domain.StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not in the pool")
		}
		return Job{}, fmt.Errorf("permanently reject job: %w", err)
	}
	return j, nil
}

// SetCounterOffer records a pending counter-offer on a job still in
// negotiation scope. Only one counter-offer may be pending at a time. On a
// soft-locked job the lock expiry stretches to cover the response window,
// so the lock cannot lapse while the counterparty's clock is still running.
func (r *Repo) SetCounterOffer(ctx context.Context, jobID, proposerID uuid.UUID, amount int64, expiresAt time.Time) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET counter_offer_amount = $1, counter_offer_by = $2,
		       counter_offer_expires_at = $3,
		       soft_lock_expires_at = CASE
		           WHEN status = $6 AND (soft_lock_expires_at IS NULL OR soft_lock_expires_at < $3)
		           THEN $3 ELSE soft_lock_expires_at END,
		       updated_at = now()
		WHERE id = $4 AND status = ANY($5)
		  AND counter_offer_amount IS NULL AND price_locked = FALSE
		RETURNING `+jobColumns,
		amount, proposerID, expiresAt, jobID,
		[]domain.Status{domain.StatusSoftLocked, domain.StatusWaitingForPayment},
		domain.StatusSoftLocked))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("job is not open for a counter-offer")
		}
		return Job{}, fmt.Errorf("set counter offer: %w", err)
	}
	return j, nil
}

// AcceptCounterOffer folds the pending counter-offer into the job price.
func (r *Repo) AcceptCounterOffer(ctx context.Context, jobID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET final_price = counter_offer_amount,
		       counter_offer_amount = NULL, counter_offer_by = NULL,
		       counter_offer_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND counter_offer_amount IS NOT NULL
		RETURNING `+jobColumns, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("no pending counter-offer on this job")
		}
		return Job{}, fmt.Errorf("accept counter offer: %w", err)
	}
	return j, nil
}

// DeclineCounterOffer clears the pending counter-offer, keeping the job in
// its current status at the previous price.
func (r *Repo) DeclineCounterOffer(ctx context.Context, jobID uuid.UUID) (Job, error) {
	j, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE jobs SET counter_offer_amount = NULL, counter_offer_by = NULL,
		       counter_offer_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND counter_offer_amount IS NOT NULL
		RETURNING `+jobColumns, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.Conflict("no pending counter-offer on this job")
		}
		return Job{}, fmt.Errorf("decline counter offer: %w", err)
	}
	return j, nil
}
