package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/LAZYDOINDIA/LazyUI/internal/session/domain"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// ProfileUpdate is a partial profile update; nil fields are left unchanged.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// AuthResponse is what login and register return.
type AuthResponse struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

// Identity decodes the user record, accepting both the single-role and multi-role shapes.
func (r *AuthResponse) Identity() (*domain.Identity, error) {
	return domain.UnmarshalIdentity(r.User)
}

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register posts a new account to /auth/register.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (*domain.Identity, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, &raw); err != nil {
		return nil, err
	}
	return domain.UnmarshalIdentity(raw)
}

// UpdateProfile sends a partial update and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*domain.Identity, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/auth/profile", nil, update, &raw); err != nil {
		return nil, err
	}
	return domain.UnmarshalIdentity(raw)
}
