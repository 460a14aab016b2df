package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/security/auth"
	"github.com/yourorg/tradedock/internal/security/ratelimit"
)

type userContextKey struct{}

// Session resolves the request's session token to a user record and stores
// it in the context. Resolution failures are not rejected here: a missing
// or invalid token simply leaves no user in the context, and the boundary
// (RequireAuth, or a handler that treats absence as a legitimate state)
// decides what that means.
func Session(tm *auth.TokenManager, users domain.UserRepository, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ReadToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.Verify(token)
			if err != nil {
				log.Debug("session token rejected", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				// token is valid but the account is gone; treat as unauthenticated
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth fails closed with a 401 when Session resolved no user
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit applies the limiter's default per-client budget; used on the
// public read endpoints to keep scrapers in check
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				log.Warn("rate limit exceeded",
					slog.String("client", clientKey(r)),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests, try again later"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitAuth applies strict per-client limits to credential endpoints
func RateLimitAuth(limiter *ratelimit.Limiter, maxReqs int, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.AllowStrict(clientKey(r), maxReqs, limiter.Window()) {
				log.Warn("auth rate limit exceeded",
					slog.String("client", clientKey(r)),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many attempts, try again later"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the authenticated user, or nil
func UserFromContext(ctx context.Context) *domain.User {
	if u := ctx.Value(userContextKey{}); u != nil {
		return u.(*domain.User)
	}
	return nil
}

// WithUser places a user in the context; used by tests and internal callers
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
