// Package inapp persists in-app notifications shown in the portal bell.
package inapp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"accountId"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	JobID     *uuid.UUID `json:"jobId,omitempty"`
	Category  string     `json:"category"`
	IsRead    bool       `json:"isRead"`
	CreatedAt time.Time  `json:"createdAt"`
}

type CreateParams struct {
	AccountID uuid.UUID
	Title     string
	Content   string
	JobID     *uuid.UUID
	Category  string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	n := Notification{
		AccountID: p.AccountID,
		Title:     p.Title,
		Content:   p.Content,
		JobID:     p.JobID,
		Category:  p.Category,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, account_id, title, content, job_id, category, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, now())
		 RETURNING id, created_at`,
		uuid.New(), p.AccountID, p.Title, p.Content, p.JobID, p.Category,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

func (r *Repository) List(ctx context.Context, accountID uuid.UUID, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, title, content, job_id, category, is_read, created_at
		 FROM notifications WHERE account_id = $1
		 ORDER BY created_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.Title, &n.Content, &n.JobID, &n.Category, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *Repository) CountUnread(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE account_id = $1 AND is_read = FALSE`,
		accountID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, accountID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE account_id = $1 AND is_read = FALSE`, accountID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
