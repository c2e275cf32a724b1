package models

import (
	"time"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	dErrors "storefront/pkg/domain-errors"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// CredentialsRequest is the sign-up and sign-in payload.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims and lower-cases the email.
func (r *CredentialsRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

// Validate checks the fields required by both sign-up and sign-in.
func (r *CredentialsRequest) Validate() error {
	if !govalidator.StringLength(r.Email, "1", "255") || !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// ValidateSignUp adds the password policy applied to new accounts.
func (r *CredentialsRequest) ValidateSignUp() error {
	if err := r.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	}
	return nil
}

// StateResponse describes the identity signal to clients.
type StateResponse struct {
	Status      Status `json:"status"`
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
}

// NewStateResponse formats s with its admin capability.
func NewStateResponse(s State, isAdmin bool) StateResponse {
	resp := StateResponse{Status: s.Status, IsAdmin: isAdmin}
	if s.IsAuthenticated() {
		resp.UserID = s.Identity.UserID.String()
		resp.Email = s.Identity.Email
		resp.DisplayName = DisplayName(s.Identity.Email)
	}
	return resp
}

// SessionResponse is returned after sign-up and sign-in.
type SessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Device    string        `json:"device"`
	Session   StateResponse `json:"session"`
}
