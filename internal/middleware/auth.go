package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/juju/loggo"
	"github.com/restopos/api/internal/access"
	"github.com/restopos/api/internal/auth"
)

var logger = loggo.GetLogger("restopos.middleware")

type contextKey struct{}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", "invalid authorization format"
	}
	return strings.TrimSpace(token), ""
}

// Authenticate rejects requests without a valid access token and stores the
// caller's claims in the request context.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != "" {
				deny(w, http.StatusUnauthorized, problem)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				logger.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
		})
	}
}

// RequireCapability lets the request through when the caller's role policy
// grants at least one of caps.
func RequireCapability(caps ...access.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				deny(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if access.Any(access.For(claims.Role), caps...) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Infof("%s %s denied to %s %s", r.Method, r.URL.Path, claims.Role, claims.UserID)
			deny(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// RejectRevoked refuses callers whose account was deactivated after their
// token was issued. It must run after Authenticate.
func RejectRevoked(revoked *auth.Revocations) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := ClaimsFromContext(r.Context()); claims != nil && revoked.Revoked(claims.UserID) {
				deny(w, http.StatusUnauthorized, "account is disabled")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKey{}).(*auth.Claims)
	return claims
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
