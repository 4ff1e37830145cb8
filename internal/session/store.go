// Package session holds the authentication state of one storefront client.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"boutique/internal/api"
	"boutique/internal/database"
	"boutique/internal/logger"
	"boutique/internal/models"
)

// Storage is the client's persisted key/value area.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Authenticator is the part of the remote API the session talks to.
type Authenticator interface {
	Login(ctx context.Context, identifier, secret string) (string, error)
	Register(ctx context.Context, req api.RegisterRequest) error
}

// Listener is told about every authentication transition. A false
// transition means all user-scoped state must be dropped.
type Listener func(ctx context.Context, authenticated bool)

type Store struct {
	mu      sync.RWMutex
	auth    Authenticator
	storage Storage
	now     func() time.Time

	token   string
	claims  *Claims
	user    *models.User
	loading bool

	listeners []Listener
}

func NewStore(auth Authenticator, storage Storage) *Store {
	return &Store{
		auth:    auth,
		storage: storage,
		now:     time.Now,
		loading: true,
	}
}

// WithClock replaces the time source used for expiry checks.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Bootstrap restores the persisted token. An expired or malformed token is
// discarded without surfacing an error. A failed read leaves storage and
// listeners untouched. The loading flag is always cleared.
func (s *Store) Bootstrap(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	stored, ok, err := s.storage.Get(ctx, database.KeyToken)
	if err != nil {
		if errors.Is(err, database.ErrSealedValue) {
			logger.Debug("Discarding persisted token", "reason", err)
			s.invalidate(ctx)
			return
		}
		logger.Warn("Failed to read persisted token", "error", err)
		return
	}
	if !ok || stored == "" {
		return
	}

	claims, err := validToken(stored, s.now())
	if err != nil {
		logger.Debug("Discarding persisted token", "reason", err)
		s.invalidate(ctx)
		return
	}

	s.mu.Lock()
	s.token = stored
	s.claims = claims
	s.user = claims.User("")
	s.mu.Unlock()

	s.notify(ctx, true)
}

// Login returns false for any failure: bad credentials, unreachable API or
// an unusable token all look the same to the caller.
func (s *Store) Login(ctx context.Context, identifier, secret string) bool {
	token, err := s.auth.Login(ctx, identifier, secret)
	if err != nil {
		logger.Info("Login failed", "identifier", identifier, "error", err)
		return false
	}

	claims, err := validToken(token, s.now())
	if err != nil {
		logger.Warn("Login returned an unusable token", "identifier", identifier, "error", err)
		return false
	}

	if err := s.storage.Set(ctx, database.KeyToken, token); err != nil {
		logger.Error("Failed to persist token", "identifier", identifier, "error", err)
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.user = claims.User(identifier)
	s.mu.Unlock()

	logger.Info("User logged in", "user_id", claims.UserID)
	s.notify(ctx, true)
	return true
}

// Register creates the account and logs straight into it.
func (s *Store) Register(ctx context.Context, in RegisterInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	err := s.auth.Register(ctx, api.RegisterRequest{
		Email:     in.Email,
		Password:  in.Password,
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
	})
	if err != nil {
		return err
	}

	if !s.Login(ctx, in.Email, in.Password) {
		return ErrLoginAfterRegister
	}
	return nil
}

// Logout drops the token everywhere and resets every user-scoped store.
func (s *Store) Logout(ctx context.Context) {
	s.mu.RLock()
	userID := 0
	if s.claims != nil {
		userID = s.claims.UserID
	}
	s.mu.RUnlock()

	s.invalidate(ctx)
	logger.Info("User logged out", "user_id", userID)
}

// IsAuthenticated reports whether a token and user are present and the
// token has not expired yet.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticatedLocked()
}

// Validate is IsAuthenticated plus cleanup: a token found expired is
// discarded with the same effects as a logout.
func (s *Store) Validate(ctx context.Context) bool {
	s.mu.RLock()
	hasToken := s.token != ""
	ok := s.authenticatedLocked()
	s.mu.RUnlock()

	if hasToken && !ok {
		logger.Info("Session expired")
		s.invalidate(ctx)
	}
	return ok
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// User returns a copy of the current user, nil when not authenticated.
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticatedLocked() {
		return nil
	}
	u := *s.user
	u.Roles = append([]string(nil), s.user.Roles...)
	return &u
}

// Token returns the bearer token while the session is authenticated.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticatedLocked() {
		return "", false
	}
	return s.token, true
}

func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return s.claims.ExpiresAt.Time, true
}

func (s *Store) authenticatedLocked() bool {
	return s.token != "" && s.user != nil && s.claims != nil && !s.claims.Expired(s.now())
}

func (s *Store) invalidate(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.user = nil
	s.mu.Unlock()

	if err := s.storage.Remove(ctx, database.KeyToken); err != nil {
		logger.Error("Failed to remove persisted token", "error", err)
	}
	s.notify(ctx, false)
}

func (s *Store) notify(ctx context.Context, authenticated bool) {
	s.mu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ctx, authenticated)
	}
}
