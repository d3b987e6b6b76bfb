package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fieldserve_backend/platform/apperr"
)

func newTestOTPStore(t *testing.T) (*OTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOTPStore(rdb, 15*time.Minute), mr
}

func TestOTPIssueAndVerify(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()
	jobID := uuid.New()

	code, err := store.Issue(ctx, jobID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(code) != otpDigits {
		t.Fatalf("code %q is not %d digits", code, otpDigits)
	}

	if err := store.Verify(ctx, jobID, code); err != nil {
		t.Fatalf("Verify with correct code: %v", err)
	}

	// Consumed on success; a replay must fail.
	if err := store.Verify(ctx, jobID, code); apperr.GetKind(err) != apperr.KindBadRequest {
		t.Errorf("replayed code: got %v, want bad request", err)
	}
}

func TestOTPWrongCodeLeavesStoredCode(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()
	jobID := uuid.New()

	code, err := store.Issue(ctx, jobID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if err := store.Verify(ctx, jobID, wrong); apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("wrong code: got %v, want bad request", err)
	}

	// A retry with the right code still succeeds.
	if err := store.Verify(ctx, jobID, code); err != nil {
		t.Errorf("Verify after failed attempt: %v", err)
	}
}

func TestOTPReissueReplacesCode(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()
	jobID := uuid.New()

	first, err := store.Issue(ctx, jobID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := store.Issue(ctx, jobID)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}

	if first != second {
		if err := store.Verify(ctx, jobID, first); apperr.GetKind(err) != apperr.KindBadRequest {
			t.Errorf("stale code: got %v, want bad request", err)
		}
	}
	if err := store.Verify(ctx, jobID, second); err != nil {
		t.Errorf("Verify latest code: %v", err)
	}
}

func TestOTPExpiry(t *testing.T) {
	store, mr := newTestOTPStore(t)
	ctx := context.Background()
	jobID := uuid.New()

	code, err := store.Issue(ctx, jobID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	mr.FastForward(16 * time.Minute)

	if err := store.Verify(ctx, jobID, code); apperr.GetKind(err) != apperr.KindBadRequest {
		t.Errorf("expired code: got %v, want bad request", err)
	}
}

func TestMarkTimerResetOncePerGeneration(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()
	jobID := uuid.New()

	ok, err := store.MarkTimerReset(ctx, jobID, 1, 45*time.Second)
	if err != nil {
		t.Fatalf("MarkTimerReset: %v", err)
	}
	if !ok {
		t.Fatal("first reset of a lock instance should be granted")
	}

	ok, err = store.MarkTimerReset(ctx, jobID, 1, 45*time.Second)
	if err != nil {
		t.Fatalf("MarkTimerReset: %v", err)
	}
	if ok {
		t.Error("second reset of the same lock instance should be denied")
	}

	// A new acceptance race means a new generation with its own reset.
	ok, err = store.MarkTimerReset(ctx, jobID, 2, 45*time.Second)
	if err != nil {
		t.Fatalf("MarkTimerReset: %v", err)
	}
	if !ok {
		t.Error("new lock generation should get a fresh reset")
	}
}
