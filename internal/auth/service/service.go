package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	accountsrepo "fieldserve_backend/internal/accounts/repository"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/phone"
)

const accessTokenType = "access"

// AccountStore is the persistence surface the auth service needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, email, phone, name, role, passwordHash string) (accountsrepo.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (accountsrepo.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (accountsrepo.Account, error)
}

// Service implements signup and credential-based sign-in.
type Service struct {
	accounts AccountStore
	cfg      config.AuthServiceConfig
	log      *logger.Logger
}

// New creates a new auth service.
func New(accounts AccountStore, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{accounts: accounts, cfg: cfg, log: log}
}

// SignUpParams carries the registration input.
type SignUpParams struct {
	Email    string
	Phone    string
	Name     string
	Role     string
	Password string
}

// SignUp registers an account and its role profile. The profile starts in
// pending approval and cannot act in the marketplace until an admin approves it.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) (accountsrepo.Account, error) {
	normalized := phone.NormalizeE164(p.Phone)
	if !phone.IsValid(normalized) {
		return accountsrepo.Account{}, apperr.Validation("invalid phone number")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return accountsrepo.Account{}, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	account, err := s.accounts.CreateAccount(ctx, p.Email, normalized, p.Name, p.Role, string(hash))
	if err != nil {
		return accountsrepo.Account{}, err
	}

	s.log.Info("account created", "accountId", account.ID, "role", account.Role)
	return account, nil
}

// SignIn verifies credentials and issues an access token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, time.Time, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, apperr.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", time.Time{}, apperr.Unauthorized("invalid credentials")
	}

	expiresAt := time.Now().Add(s.cfg.GetAccessTokenTTL())
	token, err := s.signJWT(account.ID, account.Role, expiresAt)
	if err != nil {
		return "", time.Time{}, apperr.Wrap(apperr.KindInternal, "sign access token", err)
	}
	return token, expiresAt, nil
}

// GetMe returns the account behind an access token.
func (s *Service) GetMe(ctx context.Context, accountID uuid.UUID) (accountsrepo.Account, error) {
	return s.accounts.GetAccount(ctx, accountID)
}

func (s *Service) signJWT(accountID uuid.UUID, role string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  accountID.String(),
		"role": role,
		"type": accessTokenType,
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	}
	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
