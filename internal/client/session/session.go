// Package session owns the client's notion of who is signed in. State changes
// only through Login, Register, Logout, Rehydrate and the pipeline's
// invalidation signal.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/storage"
	"staffdesk/internal/models"
)

const (
	defaultLoginError    = "Login failed"
	defaultRegisterError = "Registration failed"
)

// LoginError is a rejected login or registration. Message is what the server
// said, or a generic fallback.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }

func (e *LoginError) Unwrap() error { return e.Err }

// State is a consistent copy of the store at one instant.
type State struct {
	Token    string
	Identity *models.Profile
	Loading  bool
}

func (s State) Authenticated() bool { return s.Token != "" }

func (s State) Admin() bool { return s.Identity != nil && s.Identity.IsAdmin() }

type Store struct {
	store storage.Storage
	auth  *services.Auth
	log   *zap.SugaredLogger
	now   func() time.Time

	mu       sync.RWMutex
	token    string
	identity *models.Profile
	loading  bool

	rehydrate sync.Once
	unsub     func()
}

type Option func(*Store)

func WithLogger(lg *zap.SugaredLogger) Option { return func(s *Store) { s.log = lg } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New returns a store in the loading state and subscribes it to c's
// invalidation signal.
func New(c *client.Client, auth *services.Auth, opts ...Option) *Store {
	s := &Store{
		store:   c.Storage(),
		auth:    auth,
		log:     zap.NewNop().Sugar(),
		now:     time.Now,
		loading: true,
	}
	for _, o := range opts {
		o(s)
	}
	s.unsub = c.OnSessionInvalidated(s.reset)
	return s
}

// Close detaches the store from the pipeline.
func (s *Store) Close() { s.unsub() }

func (s *Store) reset() {
	s.mu.Lock()
	s.token, s.identity = "", nil
	s.mu.Unlock()
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{Token: s.token, Loading: s.loading}
	if s.identity != nil {
		id := *s.identity
		st.Identity = &id
	}
	return st
}

func (s *Store) IsAuthenticated() bool { return s.Snapshot().Authenticated() }

func (s *Store) IsAdmin() bool { return s.Snapshot().Admin() }

func (s *Store) Loading() bool { return s.Snapshot().Loading }

func (s *Store) Identity() (models.Profile, bool) {
	st := s.Snapshot()
	if st.Identity == nil {
		return models.Profile{}, false
	}
	return *st.Identity, true
}

// adopt persists a fresh session and installs it in memory.
func (s *Store) adopt(token string, p models.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.store.Set(storage.KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.store.Set(storage.KeyUser, string(b)); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	s.mu.Lock()
	s.token, s.identity = token, &p
	s.mu.Unlock()
	return nil
}

// authenticate shares the login and register lifecycle. A failure leaves the
// current state as it was.
func (s *Store) authenticate(res *api.AuthResult, err error, fallback string) error {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	if err != nil {
		msg := fallback
		var ae *client.APIError
		if errors.As(err, &ae) && ae.Message != "" {
			msg = ae.Message
		}
		return &LoginError{Message: msg, Err: err}
	}
	if !res.Success || res.Token == "" {
		msg := res.Error
		if msg == "" {
			msg = fallback
		}
		return &LoginError{Message: msg}
	}
	if err := s.adopt(res.Token, res.User); err != nil {
		return &LoginError{Message: fallback, Err: err}
	}
	return nil
}

func (s *Store) Login(ctx context.Context, cred services.Credentials) error {
	res, err := s.auth.Login(ctx, cred)
	if err := s.authenticate(res, err, defaultLoginError); err != nil {
		s.log.Infow("login failed", "email", cred.Email, "error", err)
		return err
	}
	return nil
}

func (s *Store) Register(ctx context.Context, reg services.Registration) error {
	res, err := s.auth.Register(ctx, reg)
	if err := s.authenticate(res, err, defaultRegisterError); err != nil {
		s.log.Infow("registration failed", "email", reg.Email, "error", err)
		return err
	}
	return nil
}

// Logout clears persisted and in-memory state. It never fails.
func (s *Store) Logout() {
	if err := s.store.Remove(storage.KeyToken, storage.KeyUser); err != nil {
		s.log.Warnw("clear persisted session failed", "error", err)
	}
	s.reset()
}

// Expiry decodes the exp claim without verifying the signature. A token
// without exp yields nil.
func Expiry(token string) (*time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("decode exp: %w", err)
	}
	if exp == nil {
		return nil, nil
	}
	t := exp.Time
	return &t, nil
}

// Rehydrate restores a persisted session. Only the first call does anything.
func (s *Store) Rehydrate(ctx context.Context) {
	s.rehydrate.Do(func() { s.doRehydrate(ctx) })
}

func (s *Store) doRehydrate(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	token, ok := s.store.Get(storage.KeyToken)
	if !ok || token == "" {
		s.Logout()
		return
	}
	exp, err := Expiry(token)
	if err != nil {
		s.log.Infow("discarding undecodable token", "error", err)
		s.Logout()
		return
	}
	if exp != nil && !exp.After(s.now()) {
		s.log.Infow("discarding expired token", "expired", exp)
		s.Logout()
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	env, err := s.auth.Profile(ctx)
	if err != nil || !env.Success {
		s.log.Infow("profile check failed", "error", err)
		s.Logout()
		return
	}
	if err := s.adopt(token, env.Data); err != nil {
		s.log.Warnw("persist identity failed", "error", err)
		s.Logout()
	}
}
