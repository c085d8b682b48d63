package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/pkg/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/pkg/response"
)

type ctxKey struct{}

// WithClaims stores verified claims on the context.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFrom returns the claims placed by Middleware.
func ClaimsFrom(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(Claims)
	return c, ok
}

// AccountID returns the authenticated account id, or 0.
func AccountID(ctx context.Context) int64 {
	c, _ := ClaimsFrom(ctx)
	return c.AccountID
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Require rejects requests without a valid bearer token.
func Require(svc *TokenService, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r)
			if token == "" {
				response.Error(w, logger, apperror.Unauthorized("missing token"))
				return
			}
			c, err := svc.ParseAccessToken(token)
			if err != nil {
				response.Error(w, logger, apperror.Unauthorized("invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), c)))
		})
	}
}

// RequireActive is Require followed by a reload of the account through load.
// Accounts that scheduled deletion or were disabled lose write access right
// away instead of when their access token expires.
func RequireActive(svc *TokenService, load SubjectLoader, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	authenticate := Require(svc, logger)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := load(r.Context(), AccountID(r.Context())); err != nil {
				response.Error(w, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// Optional attaches claims when a valid token is present and never rejects.
func Optional(svc *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearer(r); token != "" {
				if c, err := svc.ParseAccessToken(token); err == nil {
					r = r.WithContext(WithClaims(r.Context(), c))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
