// Package authflow routes authentication entry points and runs the
// login, registration, OAuth2 and password-reset flows against the
// portal API and the session manager.
package authflow

import (
	"fmt"
	"net/url"
)

// Kind enumerates the auth entry views.
type Kind int

const (
	// KindLogin is the default entry: show login, probe OAuth2 support.
	KindLogin Kind = iota
	// KindResetConfirm pre-fills the reset confirmation with the token.
	KindResetConfirm
	// KindOAuthCallback exchanges the provider code for a session.
	KindOAuthCallback
	// KindOAuthError aborts with the provider's error, session untouched.
	KindOAuthError
)

// Route is the decoded auth entry point.
type Route struct {
	Kind Kind

	// KindOAuthCallback
	Code  string
	State string

	// KindResetConfirm
	ResetToken string

	// KindOAuthError
	ErrorCode        string
	ErrorDescription string
}

// Resolve inspects an entry/callback URL and decides which flow it
// starts. Precedence mirrors the portal UI: OAuth2 error, then OAuth2
// code exchange, then reset token, then plain login.
func Resolve(rawURL string) (Route, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Route{}, fmt.Errorf("parse entry url: %w", err)
	}
	q := u.Query()

	if errCode := q.Get("error"); errCode != "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = errCode
		}
		return Route{Kind: KindOAuthError, ErrorCode: errCode, ErrorDescription: desc}, nil
	}

	code, state := q.Get("code"), q.Get("state")
	if code != "" && state != "" {
		return Route{Kind: KindOAuthCallback, Code: code, State: state}, nil
	}

	if token := q.Get("token"); token != "" {
		return Route{Kind: KindResetConfirm, ResetToken: token}, nil
	}

	return Route{Kind: KindLogin}, nil
}
