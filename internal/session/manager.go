// Package session owns the storefront's current identity and its bearer token.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"urbanharvest/internal/api"
)

// ErrRequestInFlight is returned when a login or signup is submitted while
// another one is still outstanding.
var ErrRequestInFlight = errors.New("session: an auth request is already in progress")

// AuthAPI is the part of the backend the session talks to.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	Signup(ctx context.Context, email, password, name string) error
	Me(ctx context.Context, token string) (api.User, error)
}

// IdentityObserver is told about every change of identity. user is nil for a guest.
type IdentityObserver interface {
	IdentityChanged(user *api.User)
}

// AuthError is a failed login or signup, carrying a message fit for the form.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

type Manager struct {
	auth   AuthAPI
	tokens *TokenStore

	mu        sync.Mutex
	user      *api.User
	token     string
	inFlight  bool
	observers []IdentityObserver

	ready     chan struct{}
	readyOnce sync.Once
}

func NewManager(auth AuthAPI, tokens *TokenStore) *Manager {
	return &Manager{
		auth:   auth,
		tokens: tokens,
		ready:  make(chan struct{}),
	}
}

// Subscribe registers o for identity changes.
func (m *Manager) Subscribe(o IdentityObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Restore validates a stored token against the backend. An invalid token is
// dropped silently. Loading ends when the first Restore returns, whatever the outcome.
func (m *Manager) Restore(ctx context.Context) {
	defer m.readyOnce.Do(func() { close(m.ready) })

	token := m.tokens.Token()
	if token == "" {
		return
	}

	user, err := m.auth.Me(ctx, token)
	if ctx.Err() != nil {
		log.Println("[SESSION] [WARN] restore abandoned:", ctx.Err())
		return
	}
	if err != nil {
		log.Println("[SESSION] [INFO] stored token rejected, continuing as guest:", err)
		if err := m.tokens.Clear(); err != nil {
			log.Println("[SESSION] [ERROR] clear token failed:", err)
		}
		m.setIdentity(nil, "")
		return
	}

	log.Println("[SESSION] [INFO] session restored for user:", user.ID)
	m.setIdentity(&user, token)
}

func (m *Manager) Login(ctx context.Context, email, password string) (api.User, error) {
	if err := m.begin(); err != nil {
		return api.User{}, err
	}
	defer m.end()

	resp, err := m.auth.Login(ctx, email, password)
	if ctx.Err() != nil {
		return api.User{}, ctx.Err()
	}
	if err != nil {
		log.Println("[SESSION] [ERROR] login failed:", err)
		return api.User{}, &AuthError{Message: api.Message(err, "Login failed"), Err: err}
	}

	if err := m.tokens.Set(resp.Token); err != nil {
		return api.User{}, fmt.Errorf("persist token: %w", err)
	}

	user := resp.User
	m.setIdentity(&user, resp.Token)
	log.Println("[SESSION] [INFO] logged in:", user.Email)
	return user, nil
}

// Signup registers an account. It never logs the user in.
func (m *Manager) Signup(ctx context.Context, email, password, name string) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	err := m.auth.Signup(ctx, email, password, name)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		log.Println("[SESSION] [ERROR] signup failed:", err)
		return &AuthError{Message: api.Message(err, "Signup failed"), Err: err}
	}
	return nil
}

func (m *Manager) Logout() {
	if err := m.tokens.Clear(); err != nil {
		log.Println("[SESSION] [ERROR] clear token failed:", err)
	}
	m.setIdentity(nil, "")
}

// User returns a copy of the current user, or nil for a guest.
func (m *Manager) User() *api.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func (m *Manager) IsAdmin() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil && m.user.Role == api.RoleAdmin
}

// Loading reports whether the startup Restore is still running.
func (m *Manager) Loading() bool {
	select {
	case <-m.ready:
		return false
	default:
		return true
	}
}

// Ready is closed once the startup Restore has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrRequestInFlight
	}
	m.inFlight = true
	return nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()
}

func (m *Manager) setIdentity(user *api.User, token string) {
	m.mu.Lock()
	changed := identityKey(m.user) != identityKey(user)
	m.user = user
	m.token = token
	observers := append([]IdentityObserver(nil), m.observers...)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, o := range observers {
		if user == nil {
			o.IdentityChanged(nil)
			continue
		}
		u := *user
		o.IdentityChanged(&u)
	}
}

func identityKey(user *api.User) string {
	if user == nil {
		return ""
	}
	return user.ID
}
