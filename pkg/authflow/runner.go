package authflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/fccur/portal/pkg/client"
	"github.com/fccur/portal/pkg/protocol"
	"github.com/fccur/portal/pkg/session"
)

// ValidationError is a local input problem caught before any network
// call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Runner executes auth flows: every success path funnels through the
// session manager's single establish operation, every failure path
// leaves the session untouched.
type Runner struct {
	Client   *client.Client
	Sessions *session.Manager
}

// Login authenticates with email/password. Credentials are never
// persisted on failure.
func (r *Runner) Login(ctx context.Context, email, password string, rememberMe bool) (*protocol.User, error) {
	ar, err := r.Client.Login(ctx, email, password, rememberMe)
	if err != nil {
		return nil, err
	}
	if err := r.Sessions.Establish(ar); err != nil {
		return nil, err
	}
	return ar.User, nil
}

// Register creates an account and logs in. The confirmation match is
// checked locally; a mismatch never reaches the server.
func (r *Runner) Register(ctx context.Context, email, fullName, password, confirm string) (*protocol.User, error) {
	if password != confirm {
		return nil, &ValidationError{Msg: "passwords do not match"}
	}

	ar, err := r.Client.Register(ctx, email, password, fullName)
	if err != nil {
		return nil, err
	}
	if err := r.Sessions.Establish(ar); err != nil {
		return nil, err
	}
	return ar.User, nil
}

// OAuthCallback exchanges the authorization code for a session,
// identical to a password login's success path.
func (r *Runner) OAuthCallback(ctx context.Context, route Route) (*protocol.User, error) {
	if route.Kind != KindOAuthCallback {
		return nil, fmt.Errorf("route is not an oauth2 callback")
	}

	ar, err := r.Client.OAuth2Callback(ctx, route.Code, route.State)
	if err != nil {
		return nil, err
	}
	if err := r.Sessions.Establish(ar); err != nil {
		return nil, err
	}
	return ar.User, nil
}

// ResetPassword finishes the password-reset flow. The confirmation
// match is checked locally first; the flow never creates a session.
func (r *Runner) ResetPassword(ctx context.Context, token, newPassword, confirm string) error {
	if newPassword != confirm {
		return &ValidationError{Msg: "passwords do not match"}
	}
	return r.Client.ResetPassword(ctx, token, newPassword)
}

// OAuthAvailable probes whether the server offers OAuth2 login.
func (r *Runner) OAuthAvailable(ctx context.Context) bool {
	return r.Client.OAuth2Enabled(ctx)
}
