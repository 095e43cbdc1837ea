// Package auth is the storefront's authentication collaborator. It tracks
// whether a session is signed in, owns the login prompt, and holds the one
// action a signed-out shopper asked for before being sent to log in.
package auth

import (
	"context"
	"sync"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/services/storefront/internal/state"
)

// Listener is called after the signed-in state of a session changes.
type Listener func(ctx context.Context, authenticated bool)

// Session is the per-session authentication state.
type Session struct {
	validate middleware.TokenValidator

	mu        sync.Mutex
	token     string
	claims    *middleware.Claims
	pending   state.PendingAction
	prompted  bool
	listeners []Listener
}

// NewSession creates a signed-out session that validates login tokens with
// validate.
func NewSession(validate middleware.TokenValidator) *Session {
	return &Session{validate: validate}
}

// OnChange registers a listener for login, restore and logout.
func (s *Session) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// IsAuthenticated reports whether the session carries a validated identity.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims != nil
}

// OpenLoginModal marks that the shopper must be prompted to sign in.
func (s *Session) OpenLoginModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompted = true
}

// LoginPrompted reports whether a login prompt is open.
func (s *Session) LoginPrompted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompted
}

// SetPendingAction stores the action to run after the next login. Only one
// action is held; a later call replaces an earlier one.
func (s *Session) SetPendingAction(action state.PendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = action
}

// HasPendingAction reports whether an action is waiting for login.
func (s *Session) HasPendingAction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Token returns the bearer token of the signed-in shopper.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// UserID returns the signed-in user's id, or "".
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.UserID
}

// Role returns the signed-in user's role, or "".
func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.Role
}

// Login validates token and signs the session in. Listeners run first, then
// the pending action, which is consumed so it runs exactly once.
func (s *Session) Login(ctx context.Context, token string) error {
	claims, err := s.check(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.prompted = false
	pending := s.pending
	s.pending = nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(ctx, true)
	}
	if pending != nil {
		pending(ctx)
	}
	return nil
}

// Restore signs the session in from a persisted token without running any
// pending action.
func (s *Session) Restore(ctx context.Context, token string) error {
	claims, err := s.check(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(ctx, true)
	}
	return nil
}

// Abandon closes the login prompt and drops the pending action.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.prompted = false
}

// Logout clears the identity and any pending action.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	wasAuthenticated := s.claims != nil
	s.token = ""
	s.claims = nil
	s.pending = nil
	s.prompted = false
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if !wasAuthenticated {
		return
	}
	for _, l := range listeners {
		l(ctx, false)
	}
}

func (s *Session) check(token string) (*middleware.Claims, error) {
	if token == "" {
		return nil, apperrors.Unauthorized("token is required")
	}
	claims, err := s.validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}
	if claims == nil || claims.UserID == "" {
		return nil, apperrors.Unauthorized("token carries no user id")
	}
	return claims, nil
}
