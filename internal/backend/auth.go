package backend

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRegistration       = errors.New("registration failed, email might be taken")
)

// User is the authenticated account as reported by the backend.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated user and the tokens that act for them.
// AccessToken is empty when sign-up still awaits email confirmation.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

type credentials struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignIn exchanges an email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	req := c.request(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(credentials{Email: email, Password: password}).
		SetResult(&Session{})

	resp, err := c.doRequest(ctx, "POST", "/auth/v1/token", req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) || errors.Is(err, ErrUnauthorized) {
			c.logger.Debug("Sign-in rejected")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to sign in: %w", err)
	}
	return resp.Result().(*Session), nil
}

// signUpResponse covers both shapes the backend answers sign-up with: a
// full session, or a bare user when email confirmation is pending.
type signUpResponse struct {
	Session
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	req := c.request(ctx).
		SetBody(credentials{
			Email:    email,
			Password: password,
			Data:     map[string]any{"email_confirm": true},
		}).
		SetResult(&signUpResponse{})

	resp, err := c.doRequest(ctx, "POST", "/auth/v1/signup", req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			c.logger.Debug("Sign-up rejected")
			return nil, ErrRegistration
		}
		return nil, fmt.Errorf("failed to sign up: %w", err)
	}

	out := resp.Result().(*signUpResponse)
	session := out.Session
	if session.User.ID == "" {
		session.User = User{ID: out.ID, Email: out.Email}
	}
	if session.User.ID == "" {
		return nil, ErrRegistration
	}
	return &session, nil
}

// SignOut revokes the session carried by ctx.
func (c *Client) SignOut(ctx context.Context) error {
	if _, ok := authFrom(ctx); !ok {
		return nil
	}
	if _, err := c.doRequest(ctx, "POST", "/auth/v1/logout", c.request(ctx)); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// User resolves an access token to its user.
func (c *Client) User(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	req := c.request(WithAuth(ctx, token, User{})).SetResult(&User{})

	resp, err := c.doRequest(ctx, "GET", "/auth/v1/user", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user := resp.Result().(*User)
	if user.ID == "" {
		return nil, ErrUnauthorized
	}
	return user, nil
}
