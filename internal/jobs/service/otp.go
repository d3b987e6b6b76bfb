package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"fieldserve_backend/platform/apperr"
)

const otpDigits = 6

// OTPStore keeps completion OTPs in Redis. Only a bcrypt hash of the code
// is stored; the plaintext travels to the customer once and is gone. The
// store also tracks the once-per-lock soft-lock timer reset marker, keyed
// by job and lock generation so a new lock gets a fresh reset.
type OTPStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOTPStore creates an OTP store with the given code lifetime.
func NewOTPStore(rdb *redis.Client, ttl time.Duration) *OTPStore {
	return &OTPStore{rdb: rdb, ttl: ttl}
}

func otpKey(jobID uuid.UUID) string {
	return "jobs:otp:" + jobID.String()
}

func resetKey(jobID uuid.UUID, generation int) string {
	return fmt.Sprintf("jobs:softlock_reset:%s:%d", jobID, generation)
}

// Issue generates a fresh numeric code for the job, replacing any previous
// one, and returns the plaintext for delivery.
func (s *OTPStore) Issue(ctx context.Context, jobID uuid.UUID) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	if err := s.rdb.Set(ctx, otpKey(jobID), hash, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}

// Verify checks the submitted code against the stored hash and consumes it
// on success. Wrong codes leave the stored OTP in place for a retry.
func (s *OTPStore) Verify(ctx context.Context, jobID uuid.UUID, code string) error {
	hash, err := s.rdb.Get(ctx, otpKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperr.BadRequest("verification code expired or not issued")
		}
		return fmt.Errorf("load otp: %w", err)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		return apperr.BadRequest("verification code does not match")
	}

	if err := s.rdb.Del(ctx, otpKey(jobID)).Err(); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

// MarkTimerReset records that the soft-lock timer for this lock instance
// has been reset. Returns false when the single reset was already used.
func (s *OTPStore) MarkTimerReset(ctx context.Context, jobID uuid.UUID, generation int, window time.Duration) (bool, error) {
	// Marker outlives the lock window by a margin; it only needs to cover
	// the lifetime of this lock instance.
	ok, err := s.rdb.SetNX(ctx, resetKey(jobID, generation), "1", 4*window).Result()
	if err != nil {
		return false, fmt.Errorf("mark timer reset: %w", err)
	}
	return ok, nil
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
