package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldserve_backend/platform/apperr"
)

// Repo implements taxonomy lookups with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new taxonomy repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// GetDomain retrieves a service domain by ID.
func (r *Repo) GetDomain(ctx context.Context, id uuid.UUID) (ServiceDomain, error) {
	var d ServiceDomain
	err := r.pool.QueryRow(ctx,
		`SELECT id, title FROM service_domains WHERE id = $1`, id,
	).Scan(&d.ID, &d.Title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceDomain{}, apperr.NotFound("service domain not found")
		}
		return ServiceDomain{}, fmt.Errorf("get service domain: %w", err)
	}
	return d, nil
}

// GetCategory retrieves a service category by ID.
func (r *Repo) GetCategory(ctx context.Context, id uuid.UUID) (ServiceCategory, error) {
	var c ServiceCategory
	err := r.pool.QueryRow(ctx,
		`SELECT id, domain_id, parent_id, title, warranty_days FROM service_categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.DomainID, &c.ParentID, &c.Title, &c.WarrantyDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceCategory{}, apperr.NotFound("service category not found")
		}
		return ServiceCategory{}, fmt.Errorf("get service category: %w", err)
	}
	return c, nil
}

// ListDomains retrieves all service domains ordered by title.
func (r *Repo) ListDomains(ctx context.Context) ([]ServiceDomain, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title FROM service_domains ORDER BY title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list service domains: %w", err)
	}
	defer rows.Close()

	var domains []ServiceDomain
	for rows.Next() {
		var d ServiceDomain
		if err := rows.Scan(&d.ID, &d.Title); err != nil {
			return nil, fmt.Errorf("scan service domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// ListCategories retrieves all categories for a domain ordered by title.
func (r *Repo) ListCategories(ctx context.Context, domainID uuid.UUID) ([]ServiceCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, domain_id, parent_id, title, warranty_days
		 FROM service_categories WHERE domain_id = $1 ORDER BY title ASC`, domainID)
	if err != nil {
		return nil, fmt.Errorf("list service categories: %w", err)
	}
	defer rows.Close()

	var cats []ServiceCategory
	for rows.Next() {
		var c ServiceCategory
		if err := rows.Scan(&c.ID, &c.DomainID, &c.ParentID, &c.Title, &c.WarrantyDays); err != nil {
			return nil, fmt.Errorf("scan service category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// DomainTitlesByID resolves domain titles for a set of IDs in one query.
func (r *Repo) DomainTitlesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return r.titlesByID(ctx, `SELECT id, title FROM service_domains WHERE id = ANY($1)`, ids)
}

// CategoryTitlesByID resolves category titles for a set of IDs in one query.
func (r *Repo) CategoryTitlesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return r.titlesByID(ctx, `SELECT id, title FROM service_categories WHERE id = ANY($1)`, ids)
}

// SkillTitlesByID resolves skill titles for a set of IDs in one query.
func (r *Repo) SkillTitlesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	return r.titlesByID(ctx, `SELECT id, title FROM skills WHERE id = ANY($1)`, ids)
}

// SkillIDsByDomain returns the skill IDs that belong to each of the given
// domains, in a single query.
func (r *Repo) SkillIDsByDomain(ctx context.Context, domainIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	if len(domainIDs) == 0 {
		return map[uuid.UUID][]uuid.UUID{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT domain_id, id FROM skills WHERE domain_id = ANY($1)`, domainIDs)
	if err != nil {
		return nil, fmt.Errorf("skills by domain: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]uuid.UUID, len(domainIDs))
	for rows.Next() {
		var domainID, skillID uuid.UUID
		if err := rows.Scan(&domainID, &skillID); err != nil {
			return nil, fmt.Errorf("scan skill domain: %w", err)
		}
		result[domainID] = append(result[domainID], skillID)
	}
	return result, rows.Err()
}

func (r *Repo) titlesByID(ctx context.Context, query string, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("titles by id: %w", err)
	}
	defer rows.Close()

	titles := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}
