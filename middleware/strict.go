package middleware

import "net/http"

// RequireStrict also rejects a session whose token has passed its exp claim.
func RequireStrict(src SessionSource) func(http.Handler) http.Handler {
	return Guard(src, ModeStrict, nil)
}
