// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Roles carried in access tokens.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSales   = "sales"
	RoleUser    = "user"
)

// Identity represents the authenticated caller.
// Handlers read it instead of poking at gin context keys, and every
// repository call is scoped by OrganizationID.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() uuid.UUID
	// OrganizationID returns the tenant the caller belongs to.
	OrganizationID() uuid.UUID
	// Role returns the caller's single role.
	Role() string
	// HasRole checks if the caller holds any of the given roles.
	HasRole(roles ...string) bool
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	orgID         uuid.UUID
	role          string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID         { return i.userID }
func (i *identity) OrganizationID() uuid.UUID { return i.orgID }
func (i *identity) Role() string              { return i.role }
func (i *identity) IsAuthenticated() bool     { return i.authenticated }

func (i *identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if r == i.role {
			return true
		}
	}
	return false
}

// NewIdentity builds an authenticated identity. Used by tests and workers.
func NewIdentity(userID, orgID uuid.UUID, role string) Identity {
	return &identity{userID: userID, orgID: orgID, role: role, authenticated: true}
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	orgValue, ok := c.Get(ContextOrganizationIDKey)
	if !ok {
		return &identity{}
	}
	orgID, ok := orgValue.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	role := c.GetString(ContextRoleKey)

	return &identity{
		userID:        uid,
		orgID:         orgID,
		role:          role,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		abortUnauthorized(c, "unauthorized")
		return nil
	}
	return id
}
