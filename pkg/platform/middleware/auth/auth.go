// Package auth authenticates bearer tokens and puts the member they carry on the
// request context.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/platform/httputil"
	"cashless/pkg/requestcontext"
)

// Authenticator turns a bearer token into the member it was issued to.
type Authenticator interface {
	Authenticate(token string) (requestcontext.Member, error)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			member, err := authenticator.Authenticate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, member)))
		})
	}
}

// RequireAdmin rejects authenticated members that are not company administrators.
// It must run after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if !actor.IsAdmin() {
				logger.WarnContext(ctx, "admin route refused",
					"member_id", actor.MemberID,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
