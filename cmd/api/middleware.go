package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"salescore/internal/domain/users"
	"salescore/internal/domainerrors"
)

type ctxKey string

const userCtx ctxKey = "user"

func getUserFromContext(r *http.Request) *users.User {
	u, _ := r.Context().Value(userCtx).(*users.User)
	return u
}

func (app *application) getAccessToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// AuthTokenMiddleware validates a bearer access token (typ=access) and
// loads the user into the request context.
func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := app.getAccessToken(r)
		if token == "" {
			app.writeError(w, r, errUnauthorized("missing bearer token"))
			return
		}

		jwtToken, err := app.authenticator.ValidateAccessToken(token)
		if err != nil {
			app.writeError(w, r, errUnauthorized("invalid access token"))
			return
		}

		claims, ok := jwtToken.Claims.(jwt.MapClaims)
		if !ok {
			app.writeError(w, r, errUnauthorized("invalid claims"))
			return
		}
		if typ, _ := claims["typ"].(string); typ != "access" {
			app.writeError(w, r, errUnauthorized("token is not an access token"))
			return
		}

		userID, err := subjectUserID(claims)
		if err != nil {
			app.writeError(w, r, errUnauthorized("invalid subject"))
			return
		}

		user, err := app.store.Users.GetByID(r.Context(), userID)
		if err != nil {
			app.writeError(w, r, errUnauthorized("user not found"))
			return
		}

		ctx := context.WithValue(r.Context(), userCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimiterMiddleware is a coarse global per-IP request throttle, applied
// ahead of the domain-specific anti-abuse checks that guard guest checkout
// specifically.
func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.RateLimiter.Enabled {
			if allow, retryAfter := app.rateLimiter.Allow(clientIP(r)); !allow {
				app.writeError(w, r, domainerrors.New(domainerrors.RateLimited,
					"rate limit exceeded, retry after "+retryAfter.String()))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin must run after AuthTokenMiddleware.
func (app *application) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := getUserFromContext(r)
		if user == nil || !user.IsAdmin {
			app.writeError(w, r, errForbidden("admin privileges required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func subjectUserID(claims jwt.MapClaims) (int64, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, errors.New("sub claim is not a string")
	}
	return strconv.ParseInt(sub, 10, 64)
}

func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

func errUnauthorized(msg string) error { return domainerrors.New(domainerrors.Unauthorized, msg) }
func errForbidden(msg string) error    { return domainerrors.New(domainerrors.Forbidden, msg) }
