package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/adminGate/session"
)

// SessionSource is satisfied by *adminGate.Gate.
type SessionSource interface {
	Session() *session.Credential
}

// Mode selects how much a guard checks beyond token equality.
type Mode int

const (
	ModeSession Mode = iota
	ModeStrict
)

type credentialContextKey struct{}

func CredentialFromContext(ctx context.Context) (*session.Credential, bool) {
	cred, ok := ctx.Value(credentialContextKey{}).(*session.Credential)
	return cred, ok
}

// Guard rejects requests with 401 unless they carry the active session token.
// now may be nil.
func Guard(src SessionSource, mode Mode, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if src == nil {
				unauthorized(w)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}

			cred := src.Session()
			if cred == nil || subtle.ConstantTimeCompare([]byte(token), []byte(cred.Token)) != 1 {
				unauthorized(w)
				return
			}

			if mode == ModeStrict {
				if exp, ok := session.TokenExpiry(cred.Token); ok && !now().Before(exp) {
					unauthorized(w)
					return
				}
			}

			ctx := context.WithValue(r.Context(), credentialContextKey{}, cred)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireSession(src SessionSource) func(http.Handler) http.Handler {
	return Guard(src, ModeSession, nil)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
