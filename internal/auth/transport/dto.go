// Package transport defines the request and response DTOs for auth endpoints.
package transport

import (
	"time"

	accountsrepo "fieldserve_backend/internal/accounts/repository"
)

// SignUpRequest registers a new dealer or technician account.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Role     string `json:"role" validate:"required,oneof=dealer technician"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SignInRequest exchanges credentials for an access token.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// AccountView is the public shape of an account.
type AccountView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToAccountView maps a repository account to its public shape.
func ToAccountView(a accountsrepo.Account) AccountView {
	return AccountView{
		ID:        a.ID.String(),
		Email:     a.Email,
		Phone:     a.Phone,
		Name:      a.Name,
		Role:      a.Role,
		CreatedAt: a.CreatedAt,
	}
}
