package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldserve_backend/platform/apperr"
)

const (
	technicianNotFoundMessage = "technician not found"
	dealerNotFoundMessage     = "dealer not found"
	accountNotFoundMessage    = "account not found"
)

// Repo implements account and profile persistence with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new accounts repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// CreateAccount inserts an account and the matching role profile in one
// transaction. New marketplace participants start in pending approval.
func (r *Repo) CreateAccount(ctx context.Context, email, phone, name, role, passwordHash string) (Account, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Account{}, fmt.Errorf("begin create account: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var a Account
	err = tx.QueryRow(ctx,
		`INSERT INTO accounts (email, phone, name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, email, phone, name, role, password_hash, created_at`,
		email, phone, name, role, passwordHash,
	).Scan(&a.ID, &a.Email, &a.Phone, &a.Name, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, apperr.Conflict("email already registered")
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}

	switch role {
	case "technician":
		_, err = tx.Exec(ctx,
			`INSERT INTO technicians (account_id, approval_status, skills, category_labels)
			 VALUES ($1, $2, '[]'::jsonb, '{}')`, a.ID, ApprovalPending)
	case "dealer":
		_, err = tx.Exec(ctx,
			`INSERT INTO dealers (account_id, approval_status, company_name)
			 VALUES ($1, $2, $3)`, a.ID, ApprovalPending, name)
	}
	if err != nil {
		return Account{}, fmt.Errorf("create %s profile: %w", role, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return Account{}, fmt.Errorf("commit create account: %w", err)
	}
	return a, nil
}

// GetAccountByEmail retrieves an account by email, including the password hash.
func (r *Repo) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, phone, name, role, password_hash, created_at
		 FROM accounts WHERE lower(email) = lower($1)`, email,
	).Scan(&a.ID, &a.Email, &a.Phone, &a.Name, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, apperr.NotFound(accountNotFoundMessage)
		}
		return Account{}, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// GetAccount retrieves an account by ID.
func (r *Repo) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, phone, name, role, password_hash, created_at
		 FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.Phone, &a.Name, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, apperr.NotFound(accountNotFoundMessage)
		}
		return Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// EmailsByAccountIDs resolves notification addresses for a set of accounts
// in a single query.
func (r *Repo) EmailsByAccountIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, email FROM accounts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("emails by account ids: %w", err)
	}
	defer rows.Close()

	emails := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, fmt.Errorf("scan account email: %w", err)
		}
		emails[id] = email
	}
	return emails, rows.Err()
}

// GetTechnician retrieves a technician profile.
func (r *Repo) GetTechnician(ctx context.Context, accountID uuid.UUID) (Technician, error) {
	var t Technician
	err := r.pool.QueryRow(ctx,
		`SELECT account_id, approval_status, latitude, longitude, place_name,
		        service_radius_km, skills, category_labels, updated_at
		 FROM technicians WHERE account_id = $1`, accountID,
	).Scan(&t.AccountID, &t.ApprovalStatus, &t.Latitude, &t.Longitude, &t.PlaceName,
		&t.ServiceRadiusKm, &t.SkillsPayload, &t.CategoryLabels, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Technician{}, apperr.NotFound(technicianNotFoundMessage)
		}
		return Technician{}, fmt.Errorf("get technician: %w", err)
	}
	return t, nil
}

// ListApprovedTechnicians retrieves all approved technician profiles.
// The matcher runs over this population.
func (r *Repo) ListApprovedTechnicians(ctx context.Context) ([]Technician, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT account_id, approval_status, latitude, longitude, place_name,
		        service_radius_km, skills, category_labels, updated_at
		 FROM technicians WHERE approval_status = $1`, ApprovalApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved technicians: %w", err)
	}
	defer rows.Close()

	var techs []Technician
	for rows.Next() {
		var t Technician
		if err := rows.Scan(&t.AccountID, &t.ApprovalStatus, &t.Latitude, &t.Longitude,
			&t.PlaceName, &t.ServiceRadiusKm, &t.SkillsPayload, &t.CategoryLabels, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan technician: %w", err)
		}
		techs = append(techs, t)
	}
	return techs, rows.Err()
}

// UpdateTechnicianProfile updates the self-service fields of a technician.
func (r *Repo) UpdateTechnicianProfile(ctx context.Context, t Technician) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE technicians
		 SET latitude = $2, longitude = $3, place_name = $4,
		     service_radius_km = $5, skills = $6, category_labels = $7,
		     updated_at = now()
		 WHERE account_id = $1`,
		t.AccountID, t.Latitude, t.Longitude, t.PlaceName,
		t.ServiceRadiusKm, t.SkillsPayload, t.CategoryLabels)
	if err != nil {
		return fmt.Errorf("update technician profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(technicianNotFoundMessage)
	}
	return nil
}

// SetTechnicianApproval updates a technician's approval status.
func (r *Repo) SetTechnicianApproval(ctx context.Context, accountID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE technicians SET approval_status = $2, updated_at = now() WHERE account_id = $1`,
		accountID, status)
	if err != nil {
		return fmt.Errorf("set technician approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(technicianNotFoundMessage)
	}
	return nil
}

// GetDealer retrieves a dealer profile.
func (r *Repo) GetDealer(ctx context.Context, accountID uuid.UUID) (Dealer, error) {
	var d Dealer
	err := r.pool.QueryRow(ctx,
		`SELECT account_id, approval_status, company_name, updated_at
		 FROM dealers WHERE account_id = $1`, accountID,
	).Scan(&d.AccountID, &d.ApprovalStatus, &d.CompanyName, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dealer{}, apperr.NotFound(dealerNotFoundMessage)
		}
		return Dealer{}, fmt.Errorf("get dealer: %w", err)
	}
	return d, nil
}

// SetDealerApproval updates a dealer's approval status.
func (r *Repo) SetDealerApproval(ctx context.Context, accountID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE dealers SET approval_status = $2, updated_at = now() WHERE account_id = $1`,
		accountID, status)
	if err != nil {
		return fmt.Errorf("set dealer approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(dealerNotFoundMessage)
	}
	return nil
}
