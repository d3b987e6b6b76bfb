// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated account's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access account information without depending on Gin.
type Identity interface {
	// AccountID returns the authenticated account's ID.
	AccountID() uuid.UUID
	// Role returns the account's role (dealer, technician, admin).
	Role() string
	// IsAuthenticated returns true if the account is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	accountID     uuid.UUID
	role          string
	authenticated bool
}

func (i *identity) AccountID() uuid.UUID {
	return i.accountID
}

func (i *identity) Role() string {
	return i.role
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if account info is not present.
func GetIdentity(c *gin.Context) Identity {
	accountID, idOK := c.Get(ContextAccountIDKey)
	role, roleOK := c.Get(ContextRoleKey)

	if !idOK || !roleOK {
		return &identity{authenticated: false}
	}

	id, ok := accountID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	roleStr, ok := role.(string)
	if !ok {
		return &identity{authenticated: false}
	}

	return &identity{accountID: id, role: roleStr, authenticated: true}
}

// MustGetIdentity extracts the Identity or aborts with 401 when absent.
// Returns nil when the request was aborted.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
