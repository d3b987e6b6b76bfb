package repository

import (
	"time"

	"github.com/google/uuid"

	"fieldserve_backend/internal/jobs/domain"
)

// Job is the persisted job row. Monetary amounts are in minor currency
// units. SoftLockGeneration increments on every won acceptance race; timers
// carry the generation they were scheduled for so stale firings match
// nothing.
type Job struct {
	ID           uuid.UUID
	JobNumber    string
	DealerID     uuid.UUID
	TechnicianID *uuid.UUID

	Title       string
	Description string
	WorkDetail  string
	Status      domain.Status

	Address   string
	City      string
	State     string
	Pincode   string
	Latitude  *float64
	Longitude *float64

	DomainID   uuid.UUID
	CategoryID uuid.UUID
	SkillID    *uuid.UUID

	CustomerName  string
	CustomerPhone string

	Amount      int64
	FinalPrice  *int64
	PriceLocked bool

	EstimatedDurationMinutes *int
	ScheduledAt              *time.Time

	SoftLockGeneration int
	SoftLockExpiresAt  *time.Time
	PaymentDueAt       *time.Time

	CounterOfferAmount    *int64
	CounterOfferBy        *uuid.UUID
	CounterOfferExpiresAt *time.Time

	RepostCount         int
	MaxReposts          int
	PermanentlyRejected bool
	TimeoutReasons      []string

	WarrantyDays int
	Rating       *float64

	AssignedAt  *time.Time
	StartedAt   *time.Time
	SubmittedAt *time.Time
	ApprovedAt  *time.Time
	CompletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectivePrice is the amount payment and escrow operate on: the agreed
// final price when negotiation settled one, otherwise the posted amount.
func (j Job) EffectivePrice() int64 {
	if j.FinalPrice != nil {
		return *j.FinalPrice
	}
	return j.Amount
}
