// Package domain defines the job lifecycle state machine: statuses, the
// legal transition table, and the timeout reasons appended when timers
// return a job to the pool.
package domain

// Status is a job lifecycle state.
type Status string

const (
	StatusPending                   Status = "PENDING"
	StatusSoftLocked                Status = "SOFT_LOCKED"
	StatusWaitingForPayment         Status = "WAITING_FOR_PAYMENT"
	StatusAssigned                  Status = "ASSIGNED"
	StatusInProgress                Status = "IN_PROGRESS"
	StatusCompletionPendingApproval Status = "COMPLETION_PENDING_APPROVAL"
	StatusCompleted                 Status = "COMPLETED"
	StatusCancelled                 Status = "CANCELLED"
)

// Timeout reasons recorded on the job when a timer expires it back to the
// pool. A job accumulates reasons across its lifetime.
const (
	ReasonSoftLockTimeout        = "SOFT_LOCK_TIMEOUT"
	ReasonPaymentDeadlineTimeout = "PAYMENT_DEADLINE_TIMEOUT"
	ReasonNegotiationTimeout     = "NEGOTIATION_TIMEOUT"
)

// transitions is the legal edge set. Timer expiries and manual operations
// share the same edges; the repository's conditional updates enforce them
// a second time under concurrency.
var transitions = map[Status][]Status{
	StatusPending:                   {StatusSoftLocked, StatusCancelled},
	StatusSoftLocked:                {StatusWaitingForPayment, StatusPending, StatusCancelled},
	StatusWaitingForPayment:         {StatusAssigned, StatusPending, StatusCancelled},
	StatusAssigned:                  {StatusInProgress, StatusCancelled},
	StatusInProgress:                {StatusCompletionPendingApproval},
	StatusCompletionPendingApproval: {StatusCompleted, StatusInProgress},
	StatusCompleted:                 {},
	StatusCancelled:                 {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// IsValid reports whether s names a known status.
func IsValid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// Acceptable reports whether technicians may still accept the job.
func Acceptable(s Status) bool {
	return s == StatusPending
}
