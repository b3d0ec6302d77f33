package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"travel-booking/internal/logger"
	"travel-booking/internal/models"
	"travel-booking/internal/utils"
)

type contextKey string

const actorKey contextKey = "actor"

type SessionLookup interface {
	Get(ctx context.Context, id string) (models.Actor, error)
}

type TokenParser interface {
	Parse(token string) (models.Actor, error)
}

// Middleware resolves who is calling and stores it in the request context.
// A session cookie wins over a bearer token. Requests with neither proceed
// as an unauthenticated actor; a bad bearer token is rejected with 401.
func Middleware(sessions SessionLookup, tokens TokenParser, cookieName string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := models.Actor{Role: models.RoleUnauthenticated}

			if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" && sessions != nil {
				sessionActor, err := sessions.Get(r.Context(), cookie.Value)
				switch {
				case err == nil:
					actor = sessionActor
				case errors.Is(err, ErrSessionNotFound):
					log.Debug("AUTH", "Session cookie refers to an expired session")
				default:
					log.Error("AUTH", fmt.Sprintf("Session lookup failed: %v", err))
				}
			}

			if !actor.IsAuthenticated() {
				raw, err := ExtractTokenFromRequest(r)
				if err != nil {
					log.LogSecurity("INVALID_AUTH_HEADER", err.Error())
					utils.WriteError(w, http.StatusUnauthorized, err.Error(), "unauthorized")
					return
				}
				if raw != "" {
					tokenActor, err := tokens.Parse(raw)
					if err != nil {
						log.LogSecurity("INVALID_TOKEN", err.Error())
						utils.WriteError(w, http.StatusUnauthorized, "Invalid or expired token", "unauthorized")
						return
					}
					actor = tokenActor
				}
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the caller resolved by Middleware, or an unauthenticated actor.
func ActorFrom(ctx context.Context) models.Actor {
	if actor, ok := ctx.Value(actorKey).(models.Actor); ok {
		return actor
	}
	return models.Actor{Role: models.RoleUnauthenticated}
}

func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ActorFrom(r.Context()).IsAuthenticated() {
			utils.WriteError(w, http.StatusUnauthorized, "Please log in to continue", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFrom(r.Context())
		if !actor.IsAuthenticated() {
			utils.WriteError(w, http.StatusUnauthorized, "Please log in to continue", "unauthorized")
			return
		}
		if !actor.IsAdmin() {
			utils.WriteError(w, http.StatusForbidden, "Admin access required", "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
