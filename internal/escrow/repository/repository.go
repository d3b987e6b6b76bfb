package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldserve_backend/platform/apperr"
)

// Repo implements payment, escrow, warranty and dispute persistence with
// PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new escrow repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// RecordPayment captures the single payment for a job. A second capture for
// the same job is a conflict.
func (r *Repo) RecordPayment(ctx context.Context, p Payment) (Payment, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payments (id, job_id, method, amount, proof_note, captured_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (job_id) DO NOTHING
		 RETURNING id, captured_at`,
		uuid.New(), p.JobID, p.Method, p.Amount, p.ProofNote,
	).Scan(&p.ID, &p.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, apperr.Conflict("payment already captured for this job")
		}
		return Payment{}, fmt.Errorf("record payment: %w", err)
	}
	return p, nil
}

// GetPaymentByJob retrieves the captured payment for a job.
func (r *Repo) GetPaymentByJob(ctx context.Context, jobID uuid.UUID) (Payment, error) {
	var p Payment
	err := r.pool.QueryRow(ctx,
		`SELECT id, job_id, method, amount, proof_note, captured_at
		 FROM payments WHERE job_id = $1`, jobID,
	).Scan(&p.ID, &p.JobID, &p.Method, &p.Amount, &p.ProofNote, &p.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, apperr.NotFound("no payment captured for this job")
		}
		return Payment{}, fmt.Errorf("get payment by job: %w", err)
	}
	return p, nil
}

// CreateSplit persists an escrow split. One split per job; replays of the
// approval path surface as a conflict.
func (r *Repo) CreateSplit(ctx context.Context, s PaymentSplit) (PaymentSplit, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payment_splits
		   (id, job_id, technician_id, total_amount, hold_pct, released_amount,
		    held_amount, warranty_days, method, hold_state, auto_release, release_due_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		 ON CONFLICT (job_id) DO NOTHING
		 RETURNING id, created_at`,
		uuid.New(), s.JobID, s.TechnicianID, s.TotalAmount, s.HoldPct, s.ReleasedAmount,
		s.HeldAmount, s.WarrantyDays, s.Method, HoldStateHeld, s.AutoRelease, s.ReleaseDueAt,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentSplit{}, apperr.Conflict("escrow split already exists for this job")
		}
		return PaymentSplit{}, fmt.Errorf("create payment split: %w", err)
	}
	s.HoldState = HoldStateHeld
	return s, nil
}

// GetSplitByJob retrieves the escrow split for a job.
func (r *Repo) GetSplitByJob(ctx context.Context, jobID uuid.UUID) (PaymentSplit, error) {
	var s PaymentSplit
	err := r.pool.QueryRow(ctx,
		`SELECT id, job_id, technician_id, total_amount, hold_pct, released_amount,
		        held_amount, warranty_days, method, hold_state, auto_release, release_due_at,
		        released_at, created_at
		 FROM payment_splits WHERE job_id = $1`, jobID,
	).Scan(&s.ID, &s.JobID, &s.TechnicianID, &s.TotalAmount, &s.HoldPct, &s.ReleasedAmount,
		&s.HeldAmount, &s.WarrantyDays, &s.Method, &s.HoldState, &s.AutoRelease, &s.ReleaseDueAt,
		&s.ReleasedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentSplit{}, apperr.NotFound("no escrow split for this job")
		}
		return PaymentSplit{}, fmt.Errorf("get split by job: %w", err)
	}
	return s, nil
}

// ReleaseHold flips a held split to released. The state guard makes the
// scheduled release idempotent: a second firing matches zero rows.
func (r *Repo) ReleaseHold(ctx context.Context, jobID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_splits
		 SET hold_state = $1, released_at = now()
		 WHERE job_id = $2 AND hold_state = $3`,
		HoldStateReleased, jobID, HoldStateHeld)
	if err != nil {
		return false, fmt.Errorf("release hold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ForfeitHold flips a held split to forfeited after a dispute resolves
// against the technician.
func (r *Repo) ForfeitHold(ctx context.Context, jobID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_splits
		 SET hold_state = $1, released_at = now()
		 WHERE job_id = $2 AND hold_state = $3`,
		HoldStateForfeited, jobID, HoldStateHeld)
	if err != nil {
		return false, fmt.Errorf("forfeit hold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreateWarrantyIssue records an issue report against a job's hold window.
func (r *Repo) CreateWarrantyIssue(ctx context.Context, jobID uuid.UUID, description string) (Warranty, error) {
	w := Warranty{JobID: jobID, State: WarrantyIssueReported, Description: description}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO warranties (id, job_id, state, description, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 RETURNING id, created_at`,
		uuid.New(), jobID, WarrantyIssueReported, description,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return Warranty{}, fmt.Errorf("create warranty issue: %w", err)
	}
	return w, nil
}

// HasOpenWarrantyIssue reports whether any unresolved issue exists for a job.
func (r *Repo) HasOpenWarrantyIssue(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var open bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM warranties WHERE job_id = $1 AND state = $2)`,
		jobID, WarrantyIssueReported,
	).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("has open warranty issue: %w", err)
	}
	return open, nil
}

// ResolveWarrantyIssues closes all open issues for a job.
func (r *Repo) ResolveWarrantyIssues(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE warranties SET state = $1, resolved_at = now()
		 WHERE job_id = $2 AND state = $3`,
		WarrantyResolved, jobID, WarrantyIssueReported)
	if err != nil {
		return fmt.Errorf("resolve warranty issues: %w", err)
	}
	return nil
}

// CreateDispute records a dispute raised against a job.
func (r *Repo) CreateDispute(ctx context.Context, jobID, raisedBy uuid.UUID, description string) (Dispute, error) {
	d := Dispute{JobID: jobID, RaisedBy: raisedBy, Description: description, Status: DisputeOpen}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO disputes (id, job_id, raised_by, description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING id, created_at`,
		uuid.New(), jobID, raisedBy, description, DisputeOpen,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return Dispute{}, fmt.Errorf("create dispute: %w", err)
	}
	return d, nil
}

// GetDispute retrieves a dispute by ID.
func (r *Repo) GetDispute(ctx context.Context, id uuid.UUID) (Dispute, error) {
	var d Dispute
	err := r.pool.QueryRow(ctx,
		`SELECT id, job_id, raised_by, description, status, created_at, resolved_at
		 FROM disputes WHERE id = $1`, id,
	).Scan(&d.ID, &d.JobID, &d.RaisedBy, &d.Description, &d.Status, &d.CreatedAt, &d.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, apperr.NotFound("dispute not found")
		}
		return Dispute{}, fmt.Errorf("get dispute: %w", err)
	}
	return d, nil
}

// HasOpenDispute reports whether an unresolved dispute exists for a job.
func (r *Repo) HasOpenDispute(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var open bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM disputes WHERE job_id = $1 AND status = $2)`,
		jobID, DisputeOpen,
	).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("has open dispute: %w", err)
	}
	return open, nil
}

// ResolveDispute closes an open dispute with the given outcome. The status
// guard prevents double resolution.
func (r *Repo) ResolveDispute(ctx context.Context, id uuid.UUID, outcome string) (Dispute, error) {
	var d Dispute
	err := r.pool.QueryRow(ctx,
		`UPDATE disputes SET status = $1, resolved_at = now()
		 WHERE id = $2 AND status = $3
		 RETURNING id, job_id, raised_by, description, status, created_at, resolved_at`,
		outcome, id, DisputeOpen,
	).Scan(&d.ID, &d.JobID, &d.RaisedBy, &d.Description, &d.Status, &d.CreatedAt, &d.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dispute{}, apperr.Conflict("dispute is not open")
		}
		return Dispute{}, fmt.Errorf("resolve dispute: %w", err)
	}
	return d, nil
}

// ListDueHeldSplits returns auto-releasable held splits whose release
// window has expired. Used by the scheduler sweep as a safety net behind
// per-split timers; manual-review holds wait for an admin and are not
// rescanned.
func (r *Repo) ListDueHeldSplits(ctx context.Context, now time.Time, limit int) ([]PaymentSplit, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, job_id, technician_id, total_amount, hold_pct, released_amount,
		        held_amount, warranty_days, method, hold_state, auto_release, release_due_at,
		        released_at, created_at
		 FROM payment_splits
		 WHERE hold_state = $1 AND auto_release AND release_due_at <= $2
		 ORDER BY release_due_at
		 LIMIT $3`,
		HoldStateHeld, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due held splits: %w", err)
	}
	defer rows.Close()

	var splits []PaymentSplit
	for rows.Next() {
		var s PaymentSplit
		if err := rows.Scan(&s.ID, &s.JobID, &s.TechnicianID, &s.TotalAmount, &s.HoldPct,
			&s.ReleasedAmount, &s.HeldAmount, &s.WarrantyDays, &s.Method, &s.HoldState,
			&s.AutoRelease, &s.ReleaseDueAt, &s.ReleasedAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment split: %w", err)
		}
		splits = append(splits, s)
	}
	return splits, rows.Err()
}
