package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	accountsrepo "fieldserve_backend/internal/accounts/repository"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/logger"
)

type fakeAccounts struct {
	byEmail map[string]accountsrepo.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: make(map[string]accountsrepo.Account)}
}

func (f *fakeAccounts) CreateAccount(_ context.Context, email, phone, name, role, passwordHash string) (accountsrepo.Account, error) {
	if _, ok := f.byEmail[email]; ok {
		return accountsrepo.Account{}, apperr.Conflict("email already registered")
	}
	a := accountsrepo.Account{
		ID:           uuid.New(),
		Email:        email,
		Phone:        phone,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	f.byEmail[email] = a
	return a, nil
}

func (f *fakeAccounts) GetAccountByEmail(_ context.Context, email string) (accountsrepo.Account, error) {
	a, ok := f.byEmail[email]
	if !ok {
		return accountsrepo.Account{}, apperr.NotFound("account not found")
	}
	return a, nil
}

func (f *fakeAccounts) GetAccount(_ context.Context, id uuid.UUID) (accountsrepo.Account, error) {
	for _, a := range f.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return accountsrepo.Account{}, apperr.NotFound("account not found")
}

type testAuthConfig struct {
	secret string
	ttl    time.Duration
}

func (c testAuthConfig) GetJWTAccessSecret() string       { return c.secret }
func (c testAuthConfig) GetAccessTokenTTL() time.Duration { return c.ttl }

func newTestService(store *fakeAccounts) *Service {
	cfg := testAuthConfig{secret: "test-secret", ttl: 15 * time.Minute}
	return New(store, cfg, logger.New("test"))
}

func TestSignUpAndSignIn(t *testing.T) {
	store := newFakeAccounts()
	svc := newTestService(store)
	ctx := context.Background()

	account, err := svc.SignUp(ctx, SignUpParams{
		Email:    "dealer@example.com",
		Phone:    "+919876543210",
		Name:     "Apex Motors",
		Role:     "dealer",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if account.Role != "dealer" {
		t.Errorf("role = %q, want dealer", account.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("correct horse")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	token, expiresAt, err := svc.SignIn(ctx, "dealer@example.com", "correct horse")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt = %v, want future", expiresAt)
	}

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != account.ID.String() {
		t.Errorf("sub = %v, want %s", claims["sub"], account.ID)
	}
	if claims["role"] != "dealer" {
		t.Errorf("role claim = %v, want dealer", claims["role"])
	}
	if claims["type"] != "access" {
		t.Errorf("type claim = %v, want access", claims["type"])
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	store := newFakeAccounts()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpParams{
		Email:    "tech@example.com",
		Phone:    "+919876543211",
		Name:     "Ravi Kumar",
		Role:     "technician",
		Password: "s3cret-pass",
	}); err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "tech@example.com", "wrong"},
		{"unknown email", "nobody@example.com", "s3cret-pass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.SignIn(ctx, tc.email, tc.password)
			if apperr.GetKind(err) != apperr.KindUnauthorized {
				t.Errorf("SignIn() kind = %v, want unauthorized", apperr.GetKind(err))
			}
		})
	}
}

func TestSignUpRejectsInvalidPhone(t *testing.T) {
	svc := newTestService(newFakeAccounts())

	_, err := svc.SignUp(context.Background(), SignUpParams{
		Email:    "x@example.com",
		Phone:    "not-a-phone",
		Name:     "X",
		Role:     "dealer",
		Password: "password123",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("SignUp() kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestDuplicateSignUpConflicts(t *testing.T) {
	store := newFakeAccounts()
	svc := newTestService(store)
	ctx := context.Background()

	params := SignUpParams{
		Email:    "dup@example.com",
		Phone:    "+919876543212",
		Name:     "Dup",
		Role:     "dealer",
		Password: "password123",
	}
	if _, err := svc.SignUp(ctx, params); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}
	_, err := svc.SignUp(ctx, params)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Errorf("second SignUp() kind = %v, want conflict", apperr.GetKind(err))
	}
}
