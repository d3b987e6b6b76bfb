package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to soft locked", StatusPending, StatusSoftLocked, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending straight to assigned", StatusPending, StatusAssigned, false},
		{"soft lock confirmed", StatusSoftLocked, StatusWaitingForPayment, true},
		{"soft lock expiry back to pool", StatusSoftLocked, StatusPending, true},
		{"payment captured", StatusWaitingForPayment, StatusAssigned, true},
		{"payment deadline back to pool", StatusWaitingForPayment, StatusPending, true},
		{"assigned started", StatusAssigned, StatusInProgress, true},
		{"assigned cannot skip to completed", StatusAssigned, StatusCompleted, false},
		{"work submitted", StatusInProgress, StatusCompletionPendingApproval, true},
		{"in progress cannot return to pool", StatusInProgress, StatusPending, false},
		{"approval completes", StatusCompletionPendingApproval, StatusCompleted, true},
		{"rework sends back to in progress", StatusCompletionPendingApproval, StatusInProgress, true},
		{"completed is terminal", StatusCompleted, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusSoftLocked, StatusWaitingForPayment, StatusAssigned, StatusInProgress, StatusCompletionPendingApproval} {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}
}

func TestAcceptable(t *testing.T) {
	if !Acceptable(StatusPending) {
		t.Error("pending job should be acceptable")
	}
	for _, s := range []Status{StatusSoftLocked, StatusWaitingForPayment, StatusAssigned, StatusCompleted, StatusCancelled} {
		if Acceptable(s) {
			t.Errorf("Acceptable(%s) = true, want false", s)
		}
	}
}

func TestIsValid(t *testing.T) {
	if IsValid(Status("NOPE")) {
		t.Error("unknown status reported valid")
	}
	if !IsValid(StatusInProgress) {
		t.Error("IN_PROGRESS reported invalid")
	}
}
