package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-chi-calculations/internal/handlers"
	"go-chi-calculations/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// ContextWithClaims stores verified claims on ctx.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims RequireAuth stored, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid, unrevoked bearer token.
func RequireAuth(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			claims, err := svc.Authenticate(ctx, bearerToken(r))
			if err != nil {
				status := http.StatusUnauthorized
				msg := "not authenticated"
				switch {
				case errors.Is(err, ErrTokenRevoked):
					msg = "token has been revoked"
				case errors.Is(err, ErrInvalidToken):
					msg = "could not validate credentials"
				case errors.Is(err, ErrMissingToken):
				default:
					status = http.StatusInternalServerError
					msg = "internal server error"
				}

				observability.LoggerWithTrace(ctx).Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
					zap.String("request_id", observability.RequestIDFromContext(ctx)),
				)
				w.Header().Set("WWW-Authenticate", "Bearer")
				handlers.WriteError(w, status, msg)
				return
			}

			trace.SpanFromContext(ctx).SetAttributes(attribute.String("user.id", claims.Subject))
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(ctx, claims)))
		})
	}
}
