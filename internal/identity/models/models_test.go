package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

func TestAllowlist(t *testing.T) {
	a := NewAllowlist("administrador@onpromotion.com", " ", "Ops@Example.com ")

	assert.True(t, a.Contains("administrador@onpromotion.com"))
	assert.True(t, a.Contains("  ADMINISTRADOR@onpromotion.com"))
	assert.True(t, a.Contains("ops@example.com"))
	assert.False(t, a.Contains("administrador@onpromotion.co"))
	assert.False(t, a.Contains(""))
}

func TestState(t *testing.T) {
	assert.False(t, Unresolved().IsResolved())
	assert.True(t, Anonymous().IsResolved())
	assert.False(t, Anonymous().IsAuthenticated())

	s := Authenticated(Identity{UserID: id.NewUserID(), Email: "a@b.co"})
	assert.True(t, s.IsResolved())
	assert.True(t, s.IsAuthenticated())
}

func TestNewUser(t *testing.T) {
	u, err := NewUser(id.NewUserID(), " Ana@Example.COM", "hash", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err = NewUser(id.NewUserID(), "", "hash", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCredentialsRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    CredentialsRequest
		signUp bool
		valid  bool
	}{
		{"valid sign in", CredentialsRequest{Email: "ana@example.com", Password: "x"}, false, true},
		{"bad email", CredentialsRequest{Email: "ana", Password: "secret1"}, false, false},
		{"missing password", CredentialsRequest{Email: "ana@example.com"}, false, false},
		{"short sign-up password", CredentialsRequest{Email: "ana@example.com", Password: "12345"}, true, false},
		{"valid sign up", CredentialsRequest{Email: "ana@example.com", Password: "123456"}, true, true},
		{"overlong email", CredentialsRequest{Email: strings.Repeat("a", 250) + "@example.com", Password: "123456"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.signUp {
				err = tt.req.ValidateSignUp()
			} else {
				err = tt.req.Validate()
			}
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada", DisplayName("ada.lovelace@example.com"))
	assert.Equal(t, "Administrador", DisplayName("administrador@onpromotion.com"))
	assert.Equal(t, "Bob", DisplayName("bob+shop@example.com"))
	assert.Equal(t, "Customer", DisplayName("@example.com"))
	assert.Equal(t, "Customer", DisplayName(""))
}

func TestNewStateResponse(t *testing.T) {
	s := Authenticated(Identity{UserID: id.NewUserID(), Email: "ada.lovelace@example.com"})
	resp := NewStateResponse(s, false)
	assert.Equal(t, StatusAuthenticated, resp.Status)
	assert.Equal(t, "Ada", resp.DisplayName)

	anon := NewStateResponse(Anonymous(), false)
	assert.Empty(t, anon.Email)
	assert.Empty(t, anon.DisplayName)
}
