package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/adminGate/store"
	"github.com/MrEthical07/adminGate/store/memstore"
	"github.com/golang-jwt/jwt/v5"
)

func newSessionStoreTest(t *testing.T) (*Store, *memstore.Store, *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	kv := memstore.New(memstore.WithClock(func() time.Time { return now }))
	s := NewStore(kv, Config{Key: "ag:session", RejectExpiredTokens: true}, func() time.Time { return now })
	return s, kv, &now
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func adminPayload(role string) *Payload {
	return &Payload{
		SessionToken: "opaque-session-token",
		User: User{
			ID:        "u-1",
			FirstName: "Ada",
			LastName:  "Okafor",
			Email:     "admin@x.com",
			Role:      role,
		},
	}
}

func TestEstablishRoleGate(t *testing.T) {
	tests := []struct {
		role    string
		allowed bool
	}{
		{role: "ADMIN", allowed: true},
		{role: "admin", allowed: true},
		{role: "Admin", allowed: true},
		{role: "VENDOR", allowed: false},
		{role: "CUSTOMER", allowed: false},
		{role: "RIDER", allowed: false},
		{role: "", allowed: false},
		{role: "ADMINISTRATOR", allowed: false},
	}

	for _, tt := range tests {
		t.Run("role="+tt.role, func(t *testing.T) {
			s, kv, _ := newSessionStoreTest(t)
			ctx := context.Background()

			cred, err := s.Establish(ctx, adminPayload(tt.role))
			if tt.allowed {
				if err != nil || cred == nil {
					t.Fatalf("expected session for role %q, got %v", tt.role, err)
				}
				if kv.Len() != 1 {
					t.Fatalf("expected persisted session, len=%d", kv.Len())
				}
				return
			}
			if !errors.Is(err, ErrAccessDenied) {
				t.Fatalf("expected ErrAccessDenied for role %q, got %v", tt.role, err)
			}
			if kv.Len() != 0 {
				t.Fatalf("non-admin must never be persisted, len=%d", kv.Len())
			}
			if restored, _ := s.Restore(ctx); restored != nil {
				t.Fatal("expected empty store after denied establish")
			}
		})
	}
}

func TestEstablishRejectsEmptyToken(t *testing.T) {
	s, kv, _ := newSessionStoreTest(t)
	p := adminPayload("ADMIN")
	p.SessionToken = "  "

	if _, err := s.Establish(context.Background(), p); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := s.Establish(context.Background(), nil); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for nil payload, got %v", err)
	}
	if kv.Len() != 0 {
		t.Fatal("nothing must be persisted")
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	s, _, _ := newSessionStoreTest(t)
	ctx := context.Background()

	if _, err := s.Establish(ctx, adminPayload("ADMIN")); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}
	cred, err := s.Restore(ctx)
	if err != nil || cred == nil {
		t.Fatalf("Restore = %v, %v", cred, err)
	}
	if cred.Token != "opaque-session-token" || cred.User.Email != "admin@x.com" {
		t.Fatalf("unexpected credential %+v", cred)
	}
	if cred.User.DisplayName() != "Ada Okafor" {
		t.Fatalf("unexpected display name %q", cred.User.DisplayName())
	}
}

func TestRestorePurgesNonAdmin(t *testing.T) {
	s, kv, _ := newSessionStoreTest(t)
	ctx := context.Background()

	// A session written by an older build without the role gate.
	blob, _ := Encode(&Credential{Token: "t", User: User{ID: "v1", Role: "VENDOR"}})
	_ = kv.Set(ctx, "ag:session", blob, 0)

	cred, err := s.Restore(ctx)
	if err != nil || cred != nil {
		t.Fatalf("expected purge, got %v, %v", cred, err)
	}
	if _, err := kv.Get(ctx, "ag:session"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected session key deleted, got %v", err)
	}
}

func TestRestorePurgesCorruptBlob(t *testing.T) {
	s, kv, _ := newSessionStoreTest(t)
	ctx := context.Background()
	_ = kv.Set(ctx, "ag:session", []byte{42, 0, 1}, 0)

	if cred, err := s.Restore(ctx); err != nil || cred != nil {
		t.Fatalf("expected purge, got %v, %v", cred, err)
	}
	if kv.Len() != 0 {
		t.Fatal("corrupt session must be deleted")
	}
}

func TestRestorePurgesExpiredJWT(t *testing.T) {
	s, kv, now := newSessionStoreTest(t)
	ctx := context.Background()

	p := adminPayload("ADMIN")
	p.SessionToken = signedToken(t, now.Add(time.Hour))
	if _, err := s.Establish(ctx, p); err != nil {
		t.Fatalf("Establish failed: %v", err)
	}

	*now = now.Add(30 * time.Minute)
	if cred, _ := s.Restore(ctx); cred == nil {
		t.Fatal("expected live session before exp")
	}

	// Bypass the store ttl to exercise the claim check itself.
	cred, _ := s.Restore(ctx)
	blob, _ := Encode(cred)
	_ = kv.Set(ctx, "ag:session", blob, 0)

	*now = now.Add(31 * time.Minute)
	if cred, err := s.Restore(ctx); err != nil || cred != nil {
		t.Fatalf("expected expired session purged, got %v, %v", cred, err)
	}
}

func TestEstablishRejectsAlreadyExpiredJWT(t *testing.T) {
	s, kv, now := newSessionStoreTest(t)
	p := adminPayload("ADMIN")
	p.SessionToken = signedToken(t, now.Add(-time.Minute))

	if _, err := s.Establish(context.Background(), p); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if kv.Len() != 0 {
		t.Fatal("expired token must not be persisted")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s, kv, _ := newSessionStoreTest(t)
	ctx := context.Background()
	_, _ = s.Establish(ctx, adminPayload("ADMIN"))

	for i := 0; i < 2; i++ {
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear %d failed: %v", i, err)
		}
	}
	if kv.Len() != 0 {
		t.Fatal("expected empty store")
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)
	got, ok := TokenExpiry(signedToken(t, exp))
	if !ok || !got.Equal(exp) {
		t.Fatalf("TokenExpiry = %v, %v", got, ok)
	}
	if _, ok := TokenExpiry("opaque"); ok {
		t.Fatal("opaque token must not report expiry")
	}
	if _, ok := TokenExpiry("a.b.c"); ok {
		t.Fatal("malformed jwt must not report expiry")
	}
}
