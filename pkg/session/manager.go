package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fccur/portal/internal/logging"
	"github.com/fccur/portal/pkg/protocol"
)

// DefaultRefreshMargin is how long before token expiry a renewal is
// attempted. Sessions shorter than the margin are never renewed; they
// simply expire (matching the portal's existing behavior).
const DefaultRefreshMargin = 5 * time.Minute

// State names the manager's position in the session lifecycle.
type State int

const (
	LoggedOut State = iota
	Authenticating
	LoggedIn
	Refreshing
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged-out"
	case Authenticating:
		return "authenticating"
	case LoggedIn:
		return "logged-in"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// RefreshFunc exchanges a refresh token for a brand-new session.
type RefreshFunc func(ctx context.Context, refreshToken string) (*protocol.AuthResponse, error)

// Config configures a Manager.
type Config struct {
	Store   Store
	Refresh RefreshFunc

	// OnForcedLogout runs after a failed renewal has cleared the
	// session. The surrounding UI uses it to return to the login entry
	// point.
	OnForcedLogout func()

	// Margin overrides DefaultRefreshMargin.
	Margin time.Duration

	// Now overrides the clock.
	Now func() time.Time
}

// Manager owns the current Session and the single timer that renews it.
// All transitions hold the internal lock; at most one renewal timer is
// pending at any time.
type Manager struct {
	store          Store
	refresh        RefreshFunc
	onForcedLogout func()
	margin         time.Duration
	now            func() time.Time

	mu      sync.Mutex
	state   State
	current *Session
	timer   *time.Timer
	gen     uint64 // invalidates in-flight renewals after clear/replace
}

// NewManager creates a manager in the LoggedOut state.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		store:          cfg.Store,
		refresh:        cfg.Refresh,
		onForcedLogout: cfg.OnForcedLogout,
		margin:         cfg.Margin,
		now:            cfg.Now,
		state:          LoggedOut,
	}
	if m.margin == 0 {
		m.margin = DefaultRefreshMargin
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Restore loads a previously persisted session. If one exists and has
// lifetime remaining beyond the margin, a renewal timer is armed for
// the remainder; an already-stale session stays loaded (the server's
// rejection is authoritative) but gets no timer.
func (m *Manager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil
	}

	m.current = sess
	m.state = LoggedIn
	m.gen++

	remaining := time.Duration(sess.ExpiresIn)*time.Second - m.now().Sub(sess.LoginTime)
	m.armLocked(remaining)
	return nil
}

// Establish installs a brand-new session: persists all fields as one
// record, stamps the login time, cancels any pending renewal timer and
// arms a fresh one. Used identically by password login, registration,
// the OAuth2 callback and renewal itself.
func (m *Manager) Establish(ar *protocol.AuthResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.establishLocked(ar)
}

func (m *Manager) establishLocked(ar *protocol.AuthResponse) error {
	sess := FromAuthResponse(ar, m.now())

	if err := m.store.Replace(sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	m.current = sess
	m.state = LoggedIn
	m.gen++
	m.armLocked(time.Duration(sess.ExpiresIn) * time.Second)
	return nil
}

// armLocked replaces the pending timer. Callers hold the lock.
// No timer is armed when the usable lifetime is within the margin.
func (m *Manager) armLocked(lifetime time.Duration) {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	wait := lifetime - m.margin
	if wait <= 0 {
		logging.Debug("session lifetime within refresh margin, not scheduling renewal",
			zap.Duration("lifetime", lifetime))
		return
	}

	gen := m.gen
	m.timer = time.AfterFunc(wait, func() { m.renew(gen) })
	logging.Debug("scheduled session renewal", zap.Duration("in", wait))
}

// renew runs when the timer fires. A stale generation means the session
// was replaced or cleared after this timer was scheduled; it does nothing.
func (m *Manager) renew(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != LoggedIn || m.current == nil {
		m.mu.Unlock()
		return
	}
	m.state = Refreshing
	refreshToken := m.current.RefreshToken
	m.mu.Unlock()

	ar, err := m.refresh(context.Background(), refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		// Logged out (or re-authenticated) while the renewal was in
		// flight; that state wins.
		return
	}

	if err != nil {
		// A rejected refresh token cannot be fixed by retrying.
		logging.Error("session renewal failed, logging out", zap.Error(err))
		m.clearLocked()
		if m.onForcedLogout != nil {
			m.onForcedLogout()
		}
		return
	}

	if err := m.establishLocked(ar); err != nil {
		logging.Error("persist renewed session failed, logging out", zap.Error(err))
		m.clearLocked()
		if m.onForcedLogout != nil {
			m.onForcedLogout()
		}
		return
	}
	logging.Info("session renewed")
}

// Logout clears the session explicitly: all persisted fields go as a
// group and the pending timer is cancelled.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked()
}

func (m *Manager) clearLocked() error {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.current = nil
	m.state = LoggedOut
	m.gen++
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsLoggedIn reports whether an access token is currently held. This is
// a presence check only; expiry is the server's call.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && m.current.AccessToken != ""
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentUser returns the stored profile, or nil when logged out.
func (m *Manager) CurrentUser() *protocol.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.User
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RenewalPending reports whether a renewal timer is armed.
func (m *Manager) RenewalPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}
