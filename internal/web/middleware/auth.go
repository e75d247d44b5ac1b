package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// BearerAuth guards an endpoint with static bearer tokens, as used for the
// metrics endpoint. With no tokens configured every request passes.
func BearerAuth(tokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(tokens) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				slog.Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"remote_addr", ClientIP(r),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="metrics"`)
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if !isValidToken(token, tokens) {
				slog.Warn("auth: invalid bearer token",
					"path", r.URL.Path,
					"remote_addr", ClientIP(r),
				)
				http.Error(w, "invalid bearer token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// isValidToken checks the token against every configured one in constant
// time, regardless of which matches.
func isValidToken(token string, valid []string) bool {
	match := 0
	for _, v := range valid {
		match |= subtle.ConstantTimeCompare([]byte(token), []byte(v))
	}
	return match == 1
}
