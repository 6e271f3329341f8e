package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adminGate "github.com/MrEthical07/adminGate"
	"github.com/google/uuid"
)

func TestVerifyCredentialsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/admin/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if _, err := uuid.Parse(r.Header.Get("X-Request-ID")); err != nil {
			t.Errorf("missing request id: %v", err)
		}
		if r.Header.Get("X-API-Key") != "k" {
			t.Errorf("missing custom header")
		}
		var in loginRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Email != "ada@example.com" || in.Password != "correct-horse" {
			t.Errorf("unexpected body %+v", in)
		}
		_ = json.NewEncoder(w).Encode(loginResponse{Message: "OTP sent", LoginToken: "lt-1"})
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", WithHeader("X-API-Key", "k"))
	res, err := c.VerifyCredentials(context.Background(), "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("VerifyCredentials: %v", err)
	}
	if res.LoginToken != "lt-1" || res.Message != "OTP sent" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestVerifyCodeDecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in verifyRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.OTP != "1234" || in.LoginToken != "lt-1" {
			t.Errorf("unexpected body %+v", in)
		}
		_, _ = w.Write([]byte(`{"message":"ok","token":"sess","user":{"_id":"u1","firstName":"Ada","lastName":"L","email":"ada@example.com","role":"ADMIN"}}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL).VerifyCode(context.Background(), "ada@example.com", "1234", "lt-1")
	if err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if p.SessionToken != "sess" || p.User.ID != "u1" || p.User.Role != "ADMIN" {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, adminGate.ErrServiceRejected},
		{http.StatusBadRequest, adminGate.ErrServiceRejected},
		{http.StatusForbidden, adminGate.ErrServiceRejected},
		{http.StatusTooManyRequests, adminGate.ErrServiceUnavailable},
		{http.StatusInternalServerError, adminGate.ErrServiceUnavailable},
		{http.StatusBadGateway, adminGate.ErrServiceUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
		}))
		_, err := New(srv.URL).VerifyCredentials(context.Background(), "a@b.co", "secret1")
		srv.Close()

		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Status != tc.status || se.Message != "Invalid credentials" {
			t.Fatalf("status %d: unexpected status error %+v", tc.status, se)
		}
	}
}

func TestNetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).VerifyCredentials(context.Background(), "a@b.co", "secret1")
	if !errors.Is(err, adminGate.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL).VerifyCode(ctx, "a@b.co", "1234", "lt")
	if !errors.Is(err, adminGate.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestMissingLoginTokenIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).VerifyCredentials(context.Background(), "a@b.co", "secret1")
	if !errors.Is(err, adminGate.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
}
