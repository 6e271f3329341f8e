package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/adminGate/store"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultRequiredRole is the only role allowed to hold a session.
const DefaultRequiredRole = "ADMIN"

var (
	// ErrAccessDenied is returned when the user's role fails the admin gate.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidPayload is returned when a verification payload has no token.
	ErrInvalidPayload = errors.New("invalid session payload")
	// ErrUnavailable wraps persistence faults.
	ErrUnavailable = errors.New("session backend unavailable")
)

// Config controls key placement and the role gate.
type Config struct {
	Key                 string
	RequiredRole        string
	RejectExpiredTokens bool
}

// Store holds at most one admin session.
type Store struct {
	kv     store.Store
	config Config
	now    func() time.Time
}

// NewStore creates a session store over kv.
func NewStore(kv store.Store, cfg Config, now func() time.Time) *Store {
	if cfg.Key == "" {
		cfg.Key = "ag:session"
	}
	if strings.TrimSpace(cfg.RequiredRole) == "" {
		cfg.RequiredRole = DefaultRequiredRole
	}
	if now == nil {
		now = time.Now
	}
	return &Store{kv: kv, config: cfg, now: now}
}

// Authorized reports whether role satisfies the admin gate. The comparison is
// case-insensitive and ignores surrounding whitespace.
func (s *Store) Authorized(role string) bool {
	role = strings.TrimSpace(role)
	return role != "" && strings.EqualFold(role, s.config.RequiredRole)
}

// Establish validates the role gate and then persists the session. A non-admin payload
// is rejected with [ErrAccessDenied] before anything is written.
func (s *Store) Establish(ctx context.Context, p *Payload) (*Credential, error) {
	if p == nil || strings.TrimSpace(p.SessionToken) == "" {
		return nil, ErrInvalidPayload
	}
	if !s.Authorized(p.User.Role) {
		return nil, ErrAccessDenied
	}

	now := s.now()
	var ttl time.Duration
	if exp, ok := TokenExpiry(p.SessionToken); ok {
		if s.config.RejectExpiredTokens && !now.Before(exp) {
			return nil, ErrInvalidPayload
		}
		ttl = exp.Sub(now)
	}

	cred := &Credential{
		Token:    p.SessionToken,
		User:     p.User,
		IssuedAt: now,
	}
	encoded, err := Encode(cred)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, s.config.Key, encoded, ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return cred, nil
}

// Restore loads a persisted session. Sessions that fail the role gate, carry an
// expired token, or cannot be decoded are purged and reported as absent.
func (s *Store) Restore(ctx context.Context) (*Credential, error) {
	data, err := s.kv.Get(ctx, s.config.Key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	cred, err := Decode(data)
	if err != nil || !s.Authorized(cred.User.Role) || s.expired(cred.Token) {
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, clearErr
		}
		return nil, nil
	}
	return cred, nil
}

// Clear purges the persisted session. It is idempotent.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.config.Key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Store) expired(token string) bool {
	if !s.config.RejectExpiredTokens {
		return false
	}
	exp, ok := TokenExpiry(token)
	return ok && !s.now().Before(exp)
}

// TokenExpiry reads the exp claim of a JWT session token without verifying its
// signature. Opaque tokens report ok=false.
func TokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
