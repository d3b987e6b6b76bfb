package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldserve_backend/internal/escrow/repository"
	"fieldserve_backend/platform/apperr"
)

func strp(s string) *string { return &s }

// Validation rejections happen before any persistence; a nil repository
// proves the call never got that far.
func TestCapturePaymentValidation(t *testing.T) {
	svc := New(nil, nil, nil, nil)
	ctx := context.Background()
	jobID := uuid.New()

	tests := []struct {
		name   string
		method string
		amount int64
		proof  *string
	}{
		{"unknown method", "cheque", 5000, nil},
		{"zero amount", repository.MethodUPI, 0, nil},
		{"negative amount", repository.MethodBankTransfer, -100, nil},
		{"cash without proof", repository.MethodCash, 5000, nil},
		{"cash with empty proof", repository.MethodCash, 5000, strp("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CapturePayment(ctx, jobID, tt.method, tt.amount, tt.proof)
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("CapturePayment(%s, %d) = %v, want validation error", tt.method, tt.amount, err)
			}
		})
	}
}

func TestAutoReleaseBlocked(t *testing.T) {
	held := func(auto bool) repository.PaymentSplit {
		return repository.PaymentSplit{
			JobID:        uuid.New(),
			HoldState:    repository.HoldStateHeld,
			AutoRelease:  auto,
			ReleaseDueAt: time.Now().Add(-time.Hour),
		}
	}

	tests := []struct {
		name       string
		split      repository.PaymentSplit
		openIssue  bool
		wantBlock  bool
		wantReason string
	}{
		{"auto-releasable hold", held(true), false, false, ""},
		{"manual review hold never auto-releases", held(false), false, true, "manual review required"},
		{"open issue blocks release", held(true), true, true, "open warranty issue"},
		{"released hold is settled", repository.PaymentSplit{HoldState: repository.HoldStateReleased, AutoRelease: true}, false, true, "already settled"},
		{"forfeited hold is settled", repository.PaymentSplit{HoldState: repository.HoldStateForfeited, AutoRelease: true}, false, true, "already settled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, blocked := autoReleaseBlocked(tt.split, tt.openIssue)
			if blocked != tt.wantBlock || reason != tt.wantReason {
				t.Errorf("autoReleaseBlocked() = (%q, %v), want (%q, %v)",
					reason, blocked, tt.wantReason, tt.wantBlock)
			}
		})
	}
}
