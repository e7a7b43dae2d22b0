// Package api – authentication and profile endpoints.
//
// Register and Login are deliberately sent without a credential: the web
// client used a separate unauthenticated transport for them so a stale token
// could never poison a sign-in attempt. Logout and the profile/settings
// operations require the session token.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/maventax/maven-client/internal/domain"
)

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the sign-up request body.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	User  domain.UserProfile `json:"user"`
	Token string             `json:"token"`
}

// Register creates a new account and returns the identity plus a fresh token.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, "auth.register", http.MethodPost, "auth/register/", nil, reg, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for the identity plus a fresh token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, "auth.login", http.MethodPost, "auth/login/", nil, creds, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout asks the backend to revoke the current token. Callers clear local
// state regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, "auth.logout", http.MethodPost, "auth/logout/", nil, nil, nil, true)
}

// CurrentUser fetches the profile of the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	var out domain.UserProfile
	if err := c.call(ctx, "auth.user", http.MethodGet, "auth/user/", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile updates profile fields and returns the stored result.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) (*domain.UserProfile, error) {
	var out domain.UserProfile
	if err := c.call(ctx, "auth.profile.update", http.MethodPut, "auth/profile/", nil, fields, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settings fetches the combined user and profile settings document. The shape
// is backend-owned; it is passed through opaquely.
func (c *Client) Settings(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, "auth.settings", http.MethodGet, "auth/settings/", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSettings writes the combined settings document and returns the stored
// result.
func (c *Client) UpdateSettings(ctx context.Context, settings map[string]any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, "auth.settings.update", http.MethodPut, "auth/settings/", nil, settings, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}
