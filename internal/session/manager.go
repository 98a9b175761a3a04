// Package session keeps server-side sessions keyed by an opaque token.
//
// A Manager drives an scs.SessionManager without HTTP: the token is passed
// explicitly and every operation is a single store read or write. The
// payload holds the owning user ID and the creation and expiry times.
package session

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Session payload keys
const (
	keyUserID    = "user_id"
	keyCreatedAt = "created_at"
	keyExpiresAt = "expires_at"
)

// ErrInvalid is returned by Resolve for unknown, destroyed, expired or
// empty tokens.
var ErrInvalid = errors.New("session invalid")

func init() {
	gob.Register(time.Time{})
}

// Manager creates, resolves and destroys sessions.
type Manager struct {
	sm       *scs.SessionManager
	lifetime time.Duration
	now      func() time.Time
}

type Option func(*Manager)

// WithClock overrides the clock used for payload timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wraps store. Sessions live for lifetime from creation; there is
// no idle timeout, so resolving a session never writes to the store.
func NewManager(store scs.Store, lifetime time.Duration, opts ...Option) *Manager {
	sm := scs.New()
	sm.Store = store
	sm.Lifetime = lifetime

	m := &Manager{sm: sm, lifetime: lifetime, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lifetime reports how long new sessions stay valid.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Create starts a session for userID and returns its token.
func (m *Manager) Create(ctx context.Context, userID string) (string, error) {
	sctx, err := m.sm.Load(ctx, "")
	if err != nil {
		return "", fmt.Errorf("load new session: %w", err)
	}

	now := m.now().UTC()
	m.sm.Put(sctx, keyUserID, userID)
	m.sm.Put(sctx, keyCreatedAt, now)
	m.sm.Put(sctx, keyExpiresAt, now.Add(m.lifetime))

	token, _, err := m.sm.Commit(sctx)
	if err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}
	return token, nil
}

// Resolve returns the user ID bound to token.
func (m *Manager) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalid
	}

	sctx, err := m.sm.Load(ctx, token)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	userID := m.sm.GetString(sctx, keyUserID)
	if userID == "" {
		return "", ErrInvalid
	}
	expiresAt, ok := m.sm.Get(sctx, keyExpiresAt).(time.Time)
	if !ok || !m.now().Before(expiresAt) {
		return "", ErrInvalid
	}
	return userID, nil
}

// Destroy removes the session. Unknown and empty tokens are a no-op.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sctx, err := m.sm.Load(ctx, token)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if m.sm.Token(sctx) == "" {
		return nil
	}
	if err := m.sm.Destroy(sctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyUser removes every session owned by userID and returns how many
// were removed. The store must support iteration.
func (m *Manager) DestroyUser(ctx context.Context, userID string) (int, error) {
	destroyed := 0
	err := m.sm.Iterate(ctx, func(sctx context.Context) error {
		if m.sm.GetString(sctx, keyUserID) != userID {
			return nil
		}
		if err := m.sm.Destroy(sctx); err != nil {
			return err
		}
		destroyed++
		return nil
	})
	if err != nil {
		return destroyed, fmt.Errorf("destroy sessions for user: %w", err)
	}
	return destroyed, nil
}

// Close stops the store's background cleanup, if it runs one.
func (m *Manager) Close() {
	if c, ok := m.sm.Store.(interface{ StopCleanup() }); ok {
		c.StopCleanup()
	}
}
