package services

import (
	"context"
	"net/http"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/models"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	ch := checks{}
	ch.email("email", c.Email)
	ch.password("password", c.Password)
	return ch.err()
}

type Registration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Department  string `json:"department,omitempty"`
	Position    string `json:"position,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
}

func (r Registration) Validate() error {
	ch := checks{}
	ch.required("name", r.Name, "Name is required")
	ch.email("email", r.Email)
	ch.password("password", r.Password)
	return ch.err()
}

type Auth struct{ c *client.Client }

func (a *Auth) Login(ctx context.Context, cred Credentials) (*api.AuthResult, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	var out api.AuthResult
	if err := a.c.Do(ctx, http.MethodPost, "/auth/login", nil, cred, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Auth) Register(ctx context.Context, reg Registration) (*api.AuthResult, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	var out api.AuthResult
	if err := a.c.Do(ctx, http.MethodPost, "/auth/register", nil, reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile fetches the identity behind the current token.
func (a *Auth) Profile(ctx context.Context) (*api.Envelope[models.Profile], error) {
	return get[models.Profile](ctx, a.c, "/auth/me", nil)
}

// Logout revokes the current token server side.
func (a *Auth) Logout(ctx context.Context) (*api.Envelope[map[string]bool], error) {
	return get[map[string]bool](ctx, a.c, "/auth/logout", nil)
}
