package repository

import (
	"time"

	"github.com/google/uuid"
)

const (
	MethodUPI          = "upi"
	MethodBankTransfer = "bank_transfer"
	MethodCash         = "cash"
)

const (
	HoldStateHeld      = "HELD"
	HoldStateReleased  = "RELEASED"
	HoldStateForfeited = "FORFEITED"
)

const (
	WarrantyIssueReported = "ISSUE_REPORTED"
	WarrantyResolved      = "RESOLVED"
)

const (
	DisputeOpen            = "OPEN"
	DisputeResolvedRelease = "RESOLVED_RELEASE"
	DisputeResolvedForfeit = "RESOLVED_FORFEIT"
)

// Payment records a captured job payment. Exactly one per job.
type Payment struct {
	ID         uuid.UUID
	JobID      uuid.UUID
	Method     string
	Amount     int64
	ProofNote  *string
	CapturedAt time.Time
}

// PaymentSplit is the escrow record created when a dealer approves completed
// work. ReleasedAmount goes to the technician immediately, HeldAmount stays
// in escrow until ReleaseDueAt.
type PaymentSplit struct {
	ID             uuid.UUID
	JobID          uuid.UUID
	TechnicianID   uuid.UUID
	TotalAmount    int64
	HoldPct        float64
	ReleasedAmount int64
	HeldAmount     int64
	WarrantyDays   int
	Method         string
	HoldState      string
	AutoRelease    bool
	ReleaseDueAt   time.Time
	ReleasedAt     *time.Time
	CreatedAt      time.Time
}

// Warranty tracks issue reports raised against a completed job while its
// hold window is open.
type Warranty struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	State       string
	Description string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

type Dispute struct {
	ID          uuid.UUID
	JobID       uuid.UUID
	RaisedBy    uuid.UUID
	Description string
	Status      string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}
