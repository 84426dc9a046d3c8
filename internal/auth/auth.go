// Package auth authenticates users and gates privileged actions by role.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// Principal is the authenticated user of a session.
type Principal struct {
	Name  string
	Email string
	Role  Role
}

// MsgInvalidCredentials is shown on a rejected login.
const MsgInvalidCredentials = "Correo o contraseña incorrectos."

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidUsers       = errors.New("invalid user list")
)

// Authenticator verifies credentials and returns the matching principal.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Principal, error)
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// PrincipalFor derives the display name and role from an email address:
// addresses containing "admin" get the admin role.
func PrincipalFor(email string) Principal {
	email = strings.TrimSpace(email)
	name := email
	if i := strings.Index(email, "@"); i >= 0 {
		name = email[:i]
	}
	role := RoleOperator
	if strings.Contains(strings.ToLower(email), "admin") {
		role = RoleAdmin
	}
	return Principal{Name: name, Email: email, Role: role}
}

// StaticAuthenticator checks passwords against a fixed set of bcrypt hashes.
type StaticAuthenticator struct {
	hashes map[string][]byte
}

// NewStaticAuthenticator parses "email:bcrypt-hash" pairs separated by commas.
func NewStaticAuthenticator(users string) (*StaticAuthenticator, error) {
	a := &StaticAuthenticator{hashes: make(map[string][]byte)}
	for _, pair := range strings.Split(users, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		// bcrypt hashes contain '$' but never ':'.
		i := strings.LastIndex(pair, ":")
		if i <= 0 || i == len(pair)-1 {
			return nil, fmt.Errorf("%w: entry %q must be email:hash", ErrInvalidUsers, pair)
		}
		email, hash := strings.ToLower(strings.TrimSpace(pair[:i])), strings.TrimSpace(pair[i+1:])
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("%w: hash for %s: %v", ErrInvalidUsers, email, err)
		}
		a.hashes[email] = []byte(hash)
	}
	return a, nil
}

// Users returns the number of configured accounts.
func (a *StaticAuthenticator) Users() int {
	return len(a.hashes)
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, email, password string) (Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, ok := a.hashes[email]
	if !ok || password == "" {
		return Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	return PrincipalFor(email), nil
}

// HashPassword returns a bcrypt hash suitable for AUTH_USERS.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
