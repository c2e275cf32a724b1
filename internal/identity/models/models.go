// Package models defines users, identities and the tri-state session signal.
package models

import (
	"strings"
	"time"

	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

// User is a registered account.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser builds a user with a normalized email.
func NewUser(userID id.UserID, email, passwordHash string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	return &User{ID: userID, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// NormalizeEmail lower-cases and trims an address. Uniqueness and the admin
// allowlist both compare normalized values.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is the signed-in principal.
type Identity struct {
	UserID    id.UserID
	Email     string
	SessionID string
}

// Status is the resolution state of the current identity.
type Status string

const (
	// StatusUnresolved means resolution has not completed. It is neither an
	// allow nor a deny.
	StatusUnresolved    Status = "unresolved"
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
)

// State is a snapshot of the identity signal.
type State struct {
	Status   Status
	Identity *Identity
}

// Unresolved is the initial state.
func Unresolved() State { return State{Status: StatusUnresolved} }

// Anonymous is the state with no signed-in user.
func Anonymous() State { return State{Status: StatusAnonymous} }

// Authenticated wraps a signed-in identity.
func Authenticated(identity Identity) State {
	return State{Status: StatusAuthenticated, Identity: &identity}
}

// IsResolved reports whether the state is anonymous or authenticated.
func (s State) IsResolved() bool { return s.Status != StatusUnresolved }

// IsAuthenticated reports whether a user is signed in.
func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Identity != nil
}

// Session is an issued sign-in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Identity  Identity
	Device    string
}

// SessionEventKind names a provider session transition.
type SessionEventKind string

const (
	SignedIn  SessionEventKind = "signed_in"
	SignedOut SessionEventKind = "signed_out"
)

// SessionEvent is delivered to subscribers whenever a session starts or ends.
type SessionEvent struct {
	Kind     SessionEventKind
	Identity Identity
	At       time.Time
}

// Allowlist holds the normalized admin addresses.
type Allowlist struct {
	emails map[string]struct{}
}

// NewAllowlist normalizes emails. Blank entries are ignored.
func NewAllowlist(emails ...string) Allowlist {
	a := Allowlist{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if n := NormalizeEmail(e); n != "" {
			a.emails[n] = struct{}{}
		}
	}
	return a
}

// Contains reports exact membership of the normalized email.
func (a Allowlist) Contains(email string) bool {
	_, ok := a.emails[NormalizeEmail(email)]
	return ok
}
