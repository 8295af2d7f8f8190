package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fccur/portal/internal/logging"
	"github.com/fccur/portal/pkg/protocol"
)

// Register creates an account. On success the returned session token is
// installed on the client.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*protocol.AuthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/register", protocol.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
	})
	if err != nil {
		return nil, err
	}

	var result protocol.AuthResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	c.SetAuthToken(result.Token)
	return &result, nil
}

// Login authenticates with email/password and installs the session token.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*protocol.AuthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/login", protocol.LoginRequest{
		Email:      email,
		Password:   password,
		RememberMe: rememberMe,
	})
	if err != nil {
		return nil, err
	}

	var result protocol.AuthResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	c.SetAuthToken(result.Token)
	return &result, nil
}

// Refresh exchanges the refresh token for a brand-new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*protocol.AuthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/refresh", protocol.RefreshRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}

	var result protocol.AuthResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	c.SetAuthToken(result.Token)
	return &result, nil
}

// Logout revokes the current session server-side and drops the token.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/logout", nil)
	if err != nil {
		return err
	}

	if err := c.doJSON(req, nil); err != nil {
		// The local session is cleared regardless; revocation is best effort.
		logging.Debug("server-side logout failed: " + err.Error())
	}
	c.SetAuthToken("")
	return nil
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*protocol.User, error) {
	var user protocol.User
	if err := c.getJSON(ctx, "/api/auth/me", &user); err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return &user, nil
}

// ChangePassword changes the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, current, newPassword string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/change-password", protocol.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     newPassword,
	})
	if err != nil {
		return err
	}
	if err := c.doJSON(req, nil); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// RequestPasswordReset starts the reset flow for email and returns the
// server's informational message.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/request-reset", protocol.ResetRequest{
		Email: email,
	})
	if err != nil {
		return "", err
	}

	var result protocol.MessageResponse
	if err := c.doJSON(req, &result); err != nil {
		return "", fmt.Errorf("request reset: %w", err)
	}
	return result.Message, nil
}

// ResetPassword finishes the reset flow using the emailed token.
// It never creates a session.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/reset-password", protocol.ResetConfirmRequest{
		Token:       token,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	if err := c.doJSON(req, nil); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// OAuth2Enabled probes whether the server offers OAuth2 login.
// Any failure means disabled; the probe is not a security gate.
func (c *Client) OAuth2Enabled(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/oauth2/config", nil)
	if err != nil {
		return false
	}

	var cfg protocol.OAuth2ConfigResponse
	if err := c.doJSON(req, &cfg); err != nil {
		logging.Debug("oauth2 config probe failed: " + err.Error())
		return false
	}
	return cfg.Enabled
}

// OAuth2LoginURL asks the server for the provider redirect URL.
func (c *Client) OAuth2LoginURL(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/oauth2/login", nil)
	if err != nil {
		return "", err
	}

	var result protocol.OAuth2LoginResponse
	if err := c.doJSON(req, &result); err != nil {
		return "", fmt.Errorf("oauth2 login: %w", err)
	}
	if result.AuthURL == "" {
		return "", fmt.Errorf("oauth2 login: server returned no auth_url")
	}
	return result.AuthURL, nil
}

// OAuth2Callback exchanges the provider's authorization code for a
// session, identical in shape to a password login.
func (c *Client) OAuth2Callback(ctx context.Context, code, state string) (*protocol.AuthResponse, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("state", state)

	req, err := c.newRequest(ctx, http.MethodGet, "/api/oauth2/callback?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result protocol.AuthResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("oauth2 callback: %w", err)
	}

	c.SetAuthToken(result.Token)
	return &result, nil
}
