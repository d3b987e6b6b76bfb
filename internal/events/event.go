// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"fieldserve_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Job Lifecycle Events
// =============================================================================

// JobPosted is published when a dealer posts a new job. The notification
// module fans this out to the matched candidate technicians.
type JobPosted struct {
	BaseEvent
	JobID        uuid.UUID   `json:"jobId"`
	JobNumber    string      `json:"jobNumber"`
	DealerID     uuid.UUID   `json:"dealerId"`
	Title        string      `json:"title"`
	City         string      `json:"city"`
	CandidateIDs []uuid.UUID `json:"candidateIds"`
}

func (e JobPosted) EventName() string { return "jobs.posted" }

// JobSoftLocked is published when a technician wins the acceptance race.
type JobSoftLocked struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	JobNumber    string    `json:"jobNumber"`
	DealerID     uuid.UUID `json:"dealerId"`
	TechnicianID uuid.UUID `json:"technicianId"`
}

func (e JobSoftLocked) EventName() string { return "jobs.soft_locked" }

// JobAssigned is published when payment is captured and the job is assigned.
type JobAssigned struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	JobNumber    string    `json:"jobNumber"`
	DealerID     uuid.UUID `json:"dealerId"`
	TechnicianID uuid.UUID `json:"technicianId"`
}

func (e JobAssigned) EventName() string { return "jobs.assigned" }

// JobReturnedToPool is published when a timeout or repost returns a job to
// the candidate pool. Reason carries the timeout reason appended to the job.
type JobReturnedToPool struct {
	BaseEvent
	JobID     uuid.UUID `json:"jobId"`
	JobNumber string    `json:"jobNumber"`
	DealerID  uuid.UUID `json:"dealerId"`
	Reason    string    `json:"reason"`
}

func (e JobReturnedToPool) EventName() string { return "jobs.returned_to_pool" }

// JobCompleted is published when the dealer approves a completed job.
type JobCompleted struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	JobNumber    string    `json:"jobNumber"`
	DealerID     uuid.UUID `json:"dealerId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	FinalPrice   int64     `json:"finalPrice"`
}

func (e JobCompleted) EventName() string { return "jobs.completed" }

// JobPermanentlyRejected is published when a job exhausts its repost limit.
type JobPermanentlyRejected struct {
	BaseEvent
	JobID     uuid.UUID `json:"jobId"`
	JobNumber string    `json:"jobNumber"`
	DealerID  uuid.UUID `json:"dealerId"`
}

func (e JobPermanentlyRejected) EventName() string { return "jobs.permanently_rejected" }

// CompletionOTPIssued is published when a completion OTP is issued or resent.
// The notification module delivers the code to the customer contact.
type CompletionOTPIssued struct {
	BaseEvent
	JobID         uuid.UUID `json:"jobId"`
	JobNumber     string    `json:"jobNumber"`
	DealerID      uuid.UUID `json:"dealerId"`
	CustomerPhone string    `json:"customerPhone"`
	Code          string    `json:"code"`
}

func (e CompletionOTPIssued) EventName() string { return "jobs.completion_otp_issued" }

// CounterOfferMade is published when one party proposes new price/terms.
// The counterparty has a bounded window to respond.
type CounterOfferMade struct {
	BaseEvent
	JobID       uuid.UUID `json:"jobId"`
	JobNumber   string    `json:"jobNumber"`
	ProposerID  uuid.UUID `json:"proposerId"`
	RecipientID uuid.UUID `json:"recipientId"`
	Amount      int64     `json:"amount"`
}

func (e CounterOfferMade) EventName() string { return "jobs.counter_offer_made" }

// =============================================================================
// Escrow Events
// =============================================================================

// PaymentSplitCreated is published when the escrow manager records a split.
type PaymentSplitCreated struct {
	BaseEvent
	JobID          uuid.UUID `json:"jobId"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	TotalAmount    int64     `json:"totalAmount"`
	ReleasedAmount int64     `json:"releasedAmount"`
	HeldAmount     int64     `json:"heldAmount"`
	HoldPct        float64   `json:"holdPct"`
}

func (e PaymentSplitCreated) EventName() string { return "escrow.split_created" }

// WarrantyHoldReleased is published when a warranty hold is released to the
// technician, either automatically at window expiry or on dispute resolution.
type WarrantyHoldReleased struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	Amount       int64     `json:"amount"`
	Automatic    bool      `json:"automatic"`
}

func (e WarrantyHoldReleased) EventName() string { return "escrow.hold_released" }

// DisputeRaised is published when a dealer raises a dispute on a job.
type DisputeRaised struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	JobNumber    string    `json:"jobNumber"`
	DealerID     uuid.UUID `json:"dealerId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	Description  string    `json:"description"`
}

func (e DisputeRaised) EventName() string { return "escrow.dispute_raised" }

// SLABreached is published by the SLA poll when a job misses its timing
// expectations (no start within 24h, or runtime past 1.5x the estimate).
type SLABreached struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	JobNumber    string    `json:"jobNumber"`
	TechnicianID uuid.UUID `json:"technicianId"`
	Breach       string    `json:"breach"`
}

func (e SLABreached) EventName() string { return "jobs.sla_breached" }
