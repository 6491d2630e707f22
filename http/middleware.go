package http

import (
	"context"
	"net/http"

	"github.com/filedock/filedock"
)

// Headers set by the trusted upstream that terminates authentication.
const (
	HeaderUser = "X-Filedock-User"
	HeaderRole = "X-Filedock-Role"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerFromContext returns the Caller stored by IdentityMiddleware.
func CallerFromContext(ctx context.Context) (filedock.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(filedock.Caller)
	return caller, ok
}

// IdentityMiddleware reads the caller identity from upstream headers and
// stores it in the request context. Requests without a valid identity are
// rejected before reaching any handler.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUser)
		if userID == "" {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing caller identity")
			return
		}

		role, err := filedock.ParseRole(r.Header.Get(HeaderRole))
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Missing or unknown caller role")
			return
		}

		caller := filedock.Caller{ID: userID, Role: role}
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SignatureMiddleware creates middleware that enforces AWS Signature V4
// query authentication on blob requests. Pass nil to disable verification.
func SignatureMiddleware(verifier *filedock.SignatureVerifier) func(http.Handler) http.Handler {
	if verifier == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Copy headers and add Host (Go stores Host separately from Header)
			headers := r.Header.Clone()
			headers.Set("Host", r.Host)

			if err := verifier.Verify(r.Method, r.URL.Path, r.URL.Query(), headers); err != nil {
				HandleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
