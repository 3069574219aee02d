// Package auth provides role checks and password verification for the
// auction's privileged operations.
package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/kssmani94-hub/CPL6/internal/domain"
)

// Role is an access level.
type Role string

const (
	RoleCaptain    Role = "Captain"
	RoleAdmin      Role = "Admin"
	RoleSuperAdmin Role = "Super Admin"
)

// rank orders roles; a higher rank satisfies any lower requirement.
func (r Role) rank() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleCaptain:
		return 1
	default:
		return 0
	}
}

// Allows reports whether a holder of r satisfies the required role.
func (r Role) Allows(required Role) bool {
	return r.rank() >= required.rank() && r.rank() > 0
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCaptain, RoleAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", domain.ErrValidation("unknown role: " + s)
}

// User is one account with a bcrypt-hashed password.
type User struct {
	Username     string
	PasswordHash []byte
	Role         Role
}

// Registry is an in-memory user registry.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*User)}
}

// Add registers a user, hashing the password. Replaces any existing
// account with the same username.
func (r *Registry) Add(username, password string, role Role) error {
	if username == "" {
		return domain.ErrValidation("username must not be empty")
	}
	if password == "" {
		return domain.ErrValidation("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.ErrInternal("hashing password", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[username] = &User{Username: username, PasswordHash: hash, Role: role}
	return nil
}

// Lookup returns the user for username.
func (r *Registry) Lookup(username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrNotFound("user", username)
	}
	cp := *u
	return &cp, nil
}

// RequireRole checks that username holds at least the required role.
func (r *Registry) RequireRole(username string, required Role) error {
	u, err := r.Lookup(username)
	if err != nil {
		return domain.ErrUnauthorized("unknown user")
	}
	if !u.Role.Allows(required) {
		return domain.ErrForbidden(string(u.Role) + " may not perform this action")
	}
	return nil
}

// Authenticate verifies username/password. Used for the confirmation
// step guarding reset and resume.
func (r *Registry) Authenticate(username, password string) (*User, error) {
	u, err := r.Lookup(username)
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	return u, nil
}
