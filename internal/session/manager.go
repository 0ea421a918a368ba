package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-request identity. It is created at login and resolved
// from the token on every request; nothing about the caller lives in
// process-wide state.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager issues and resolves sessions. Tokens are random UUIDs.
type Manager struct {
	dir *Directory
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
}

func NewManager(dir *Directory, ttl time.Duration) *Manager {
	return &Manager{
		dir:      dir,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

func (m *Manager) Directory() *Directory { return m.dir }

// Login authenticates the user and opens a new session.
func (m *Manager) Login(username, password string) (Session, error) {
	u, err := m.dir.Authenticate(username, password)
	if err != nil {
		return Session{}, err
	}
	s := Session{
		Token:     uuid.NewString(),
		Username:  u.Username,
		Role:      u.Role,
		ExpiresAt: m.now().Add(m.ttl),
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s, nil
}

// Resolve returns the live session for token. The role is read from the
// directory so that role changes apply to open sessions.
func (m *Manager) Resolve(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if !m.now().Before(s.ExpiresAt) {
		m.Logout(token)
		return Session{}, false
	}
	u, err := m.dir.Get(s.Username)
	if err != nil {
		m.Logout(token)
		return Session{}, false
	}
	s.Role = u.Role
	return s, true
}

func (m *Manager) Logout(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// CleanExpired drops expired sessions. It satisfies cache.Cleaner so the
// cache manager can sweep sessions on its schedule.
func (m *Manager) CleanExpired() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

type contextKey struct{}

// WithSession attaches the resolved session to ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
