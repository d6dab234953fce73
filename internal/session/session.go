// Package session tracks who is signed in.
//
// A Manager is the single process-wide owner of the current session. It is
// created once in main and injected wherever the current user is needed;
// consumers read it through the narrow Provider interface.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/log"
)

// ErrNotAuthenticated is returned when an operation needs a user and there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session identifies the signed-in user.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the session's access token is past its expiry.
// Sessions without an expiry never expire.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Validate checks that the session names a well-formed user.
func (s Session) Validate() error {
	if s.UserID == "" {
		return errors.New("session has no user id")
	}
	if _, err := uuid.Parse(s.UserID); err != nil {
		return fmt.Errorf("invalid user id %q: %w", s.UserID, err)
	}
	return nil
}

// Provider yields the current session, or ErrNotAuthenticated.
type Provider interface {
	Current(ctx context.Context) (Session, error)
}

// Authenticator exchanges credentials for a session with the identity provider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, s Session) error
}

// Persister keeps a session across process restarts.
type Persister interface {
	Load() (Session, bool, error)
	Save(s Session) error
	Clear() error
}

// EventType distinguishes session changes.
type EventType string

const (
	SignedIn  EventType = "signed_in"
	SignedOut EventType = "signed_out"
)

// Event is delivered to subscribers whenever the session changes.
type Event struct {
	Type    EventType
	Session Session // zero for SignedOut
}

// Manager owns the current session and notifies subscribers of changes.
type Manager struct {
	mu      sync.RWMutex
	current *Session
	auth    Authenticator
	persist Persister
	subs    map[int]func(Event)
	nextSub int
	logger  *log.Logger
	now     func() time.Time
}

var _ Provider = (*Manager)(nil)

// NewManager creates a manager. auth and persist may be nil: without an
// authenticator SignIn fails, without a persister sessions live in memory only.
func NewManager(auth Authenticator, persist Persister, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		auth:    auth,
		persist: persist,
		subs:    make(map[int]func(Event)),
		logger:  logger.WithComponent(log.ComponentSession),
		now:     time.Now,
	}
}

// Restore loads a previously persisted session. Expired or malformed
// sessions are discarded.
func (m *Manager) Restore() error {
	if m.persist == nil {
		return nil
	}
	s, ok, err := m.persist.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil
	}
	if err := s.Validate(); err != nil || s.Expired(m.now()) {
		m.logger.Info("Discarding stored session", log.FieldUserID, s.UserID)
		return m.persist.Clear()
	}

	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	m.logger.Debug("Session restored", log.FieldUserID, s.UserID)
	return nil
}

// Current returns the signed-in session.
func (m *Manager) Current(_ context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.Expired(m.now()) {
		return Session{}, ErrNotAuthenticated
	}
	return *m.current, nil
}

// SignIn authenticates with the identity provider and installs the session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Session, error) {
	if m.auth == nil {
		return Session{}, errors.New("no identity provider configured")
	}
	s, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		m.logger.WarnContext(ctx, "Sign-in failed", log.FieldError, err)
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if err := m.Set(s); err != nil {
		return Session{}, err
	}
	m.logger.InfoContext(ctx, "Signed in", log.FieldUserID, s.UserID)
	return s, nil
}

// Set installs s as the current session, persists it and notifies subscribers.
func (m *Manager) Set(s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if m.persist != nil {
		if err := m.persist.Save(s); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	m.notify(Event{Type: SignedIn, Session: s})
	return nil
}

// SignOut clears the session locally even if the identity provider call fails.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	var errs []error
	if prev != nil && m.auth != nil {
		if err := m.auth.SignOut(ctx, *prev); err != nil {
			m.logger.WarnContext(ctx, "Remote sign-out failed", log.FieldError, err)
			errs = append(errs, fmt.Errorf("remote sign out: %w", err))
		}
	}
	if m.persist != nil {
		if err := m.persist.Clear(); err != nil {
			errs = append(errs, fmt.Errorf("clear session: %w", err))
		}
	}
	if prev != nil {
		m.notify(Event{Type: SignedOut})
		m.logger.InfoContext(ctx, "Signed out", log.FieldUserID, prev.UserID)
	}
	return errors.Join(errs...)
}

// Subscribe registers fn for session changes. The returned function
// unregisters it and is safe to call more than once.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Static is a Provider with a fixed session. A zero Static is signed out.
type Static Session

// Current implements Provider.
func (s Static) Current(context.Context) (Session, error) {
	if s.UserID == "" {
		return Session{}, ErrNotAuthenticated
	}
	return Session(s), nil
}
