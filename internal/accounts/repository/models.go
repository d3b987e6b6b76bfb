package repository

import (
	"time"

	"github.com/google/uuid"
)

// Approval states for marketplace participants.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Account is the shared identity row behind both roles.
type Account struct {
	ID           uuid.UUID
	Email        string
	Phone        string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Technician is a field technician profile. Skills are stored as the raw
// JSON payload technicians submitted over the years; the matching layer
// normalizes the heterogeneous shapes on read. Reliability counters are NOT
// stored here: the risk engine recomputes them from job history.
type Technician struct {
	AccountID       uuid.UUID
	ApprovalStatus  string
	Latitude        *float64
	Longitude       *float64
	PlaceName       string
	ServiceRadiusKm *float64
	SkillsPayload   []byte
	CategoryLabels  []string
	UpdatedAt       time.Time
}

// Dealer is a job poster profile.
type Dealer struct {
	AccountID      uuid.UUID
	ApprovalStatus string
	CompanyName    string
	UpdatedAt      time.Time
}
