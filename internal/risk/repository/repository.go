// Package repository computes reliability aggregates from immutable job,
// dispute, and warranty history. Nothing here is mutated by the lifecycle
// controller; metrics are recomputed on demand from whatever is committed,
// so a slightly stale read is acceptable.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TechnicianStats are raw counts aggregated from a technician's job history.
type TechnicianStats struct {
	Completed          int
	Cancelled          int
	WarrantyComplaints int
	Disputes           int
	AvgRating          *float64
	OnTimeCompleted    int
	AvgResponseHours   *float64
}

// TotalTerminal is the number of jobs that reached a terminal status.
func (s TechnicianStats) TotalTerminal() int {
	return s.Completed + s.Cancelled
}

// DealerStats are raw counts aggregated from a dealer's posting history.
type DealerStats struct {
	JobsPosted     int
	JobsCompleted  int
	Disputes       int
	Payments       int
	LatePayments   int
	CashPayments   int
	WarrantyIssues int
}

// SLABreach describes a job missing its timing expectations.
type SLABreach struct {
	JobID        uuid.UUID
	JobNumber    string
	TechnicianID uuid.UUID
	Breach       string
}

// Repo implements risk aggregates with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new risk repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// TechnicianStats aggregates one technician's history in a single query pass.
func (r *Repo) TechnicianStats(ctx context.Context, technicianID uuid.UUID) (TechnicianStats, error) {
	var s TechnicianStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'COMPLETED'),
			count(*) FILTER (WHERE status = 'CANCELLED'),
			count(*) FILTER (WHERE status = 'COMPLETED'
				AND scheduled_at IS NOT NULL
				AND completed_at <= scheduled_at + interval '2 hours'),
			avg(rating) FILTER (WHERE rating IS NOT NULL),
			avg(EXTRACT(EPOCH FROM (started_at - assigned_at)) / 3600.0)
				FILTER (WHERE started_at IS NOT NULL AND assigned_at IS NOT NULL)
		FROM jobs
		WHERE technician_id = $1`,
		technicianID,
	).Scan(&s.Completed, &s.Cancelled, &s.OnTimeCompleted, &s.AvgRating, &s.AvgResponseHours)
	if err != nil {
		return TechnicianStats{}, fmt.Errorf("technician job stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM warranties w JOIN jobs j ON j.id = w.job_id
			 WHERE j.technician_id = $1),
			(SELECT count(*) FROM disputes d JOIN jobs j ON j.id = d.job_id
			 WHERE j.technician_id = $1)`,
		technicianID,
	).Scan(&s.WarrantyComplaints, &s.Disputes)
	if err != nil {
		return TechnicianStats{}, fmt.Errorf("technician complaint stats: %w", err)
	}

	return s, nil
}

// DealerStats aggregates one dealer's history.
func (r *Repo) DealerStats(ctx context.Context, dealerID uuid.UUID) (DealerStats, error) {
	var s DealerStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'COMPLETED')
		FROM jobs
		WHERE dealer_id = $1`,
		dealerID,
	).Scan(&s.JobsPosted, &s.JobsCompleted)
	if err != nil {
		return DealerStats{}, fmt.Errorf("dealer job stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE j.completed_at IS NOT NULL
				AND p.captured_at > j.completed_at + interval '24 hours'),
			count(*) FILTER (WHERE p.method = 'cash')
		FROM payments p
		JOIN jobs j ON j.id = p.job_id
		WHERE j.dealer_id = $1`,
		dealerID,
	).Scan(&s.Payments, &s.LatePayments, &s.CashPayments)
	if err != nil {
		return DealerStats{}, fmt.Errorf("dealer payment stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM disputes d JOIN jobs j ON j.id = d.job_id
			 WHERE j.dealer_id = $1),
			(SELECT count(*) FROM warranties w JOIN jobs j ON j.id = w.job_id
			 WHERE j.dealer_id = $1)`,
		dealerID,
	).Scan(&s.Disputes, &s.WarrantyIssues)
	if err != nil {
		return DealerStats{}, fmt.Errorf("dealer complaint stats: %w", err)
	}

	return s, nil
}

// ListSLABreaches finds assigned jobs not started within 24 hours and
// in-progress jobs running past 1.5x their estimated duration.
func (r *Repo) ListSLABreaches(ctx context.Context) ([]SLABreach, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_number, technician_id, 'not_started_24h'
		FROM jobs
		WHERE status = 'ASSIGNED'
		  AND technician_id IS NOT NULL
		  AND assigned_at < now() - interval '24 hours'
		UNION ALL
		SELECT id, job_number, technician_id, 'overrunning_estimate'
		FROM jobs
		WHERE status = 'IN_PROGRESS'
		  AND technician_id IS NOT NULL
		  AND estimated_duration_minutes IS NOT NULL
		  AND started_at < now() - (estimated_duration_minutes * 1.5) * interval '1 minute'`)
	if err != nil {
		return nil, fmt.Errorf("list sla breaches: %w", err)
	}
	defer rows.Close()

	var breaches []SLABreach
	for rows.Next() {
		var b SLABreach
		if err := rows.Scan(&b.JobID, &b.JobNumber, &b.TechnicianID, &b.Breach); err != nil {
			return nil, fmt.Errorf("scan sla breach: %w", err)
		}
		breaches = append(breaches, b)
	}
	return breaches, rows.Err()
}
