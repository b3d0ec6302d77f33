package user_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"travel-booking/internal/auth"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
	"travel-booking/internal/users"
	"travel-booking/internal/utils"
)

type SessionStore interface {
	Create(ctx context.Context, actor models.Actor) (string, error)
	UpdateRole(ctx context.Context, id string, role models.Role) error
	Delete(ctx context.Context, id string) error
}

type TokenIssuer interface {
	Issue(actor models.Actor) (models.TokenResponse, error)
}

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type Handler struct {
	Service  *users.Service
	Sessions SessionStore
	Tokens   TokenIssuer
	Cookie   CookieConfig
	Logger   *logger.Logger
}

type loginResponse struct {
	User  *models.User         `json:"user"`
	Token models.TokenResponse `json:"token"`
}

// NewHandler wires the user routes. sessions may be nil, in which case login
// only hands out bearer tokens.
func NewHandler(service *users.Service, sessions SessionStore, tokens TokenIssuer, cookie CookieConfig, log *logger.Logger) *Handler {
	return &Handler{Service: service, Sessions: sessions, Tokens: tokens, Cookie: cookie, Logger: log}
}

func (h *Handler) Mount(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuthenticated)
		r.Get("/users/me", h.Profile)
		r.Put("/users/me/avatar", h.UpdateAvatar)
	})
	r.With(auth.RequireAdmin).Put("/admin/users/{userID}/role", h.SwitchRole)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	u, err := h.Service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "Register", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registration successful!", u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	u, err := h.Service.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeServiceError(w, "Login", err)
		return
	}

	actor := users.Actor(u)
	token, err := h.Tokens.Issue(actor)
	if err != nil {
		h.Logger.Error("AUTH", fmt.Sprintf("Failed to issue token for user %d: %v", u.ID, err))
		utils.WriteError(w, http.StatusInternalServerError, "Login failed. Please try again.", "internal_error")
		return
	}

	if h.Sessions != nil {
		sessionID, err := h.Sessions.Create(r.Context(), actor)
		if err != nil {
			h.Logger.Warn("AUTH", fmt.Sprintf("Session store unavailable, issuing token only: %v", err))
		} else {
			http.SetCookie(w, &http.Cookie{
				Name:     h.Cookie.Name,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   int(h.Cookie.TTL.Seconds()),
				HttpOnly: true,
				Secure:   h.Cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}

	h.Logger.LogSecurity("LOGIN", fmt.Sprintf("User %d logged in as %s", u.ID, u.Role))
	utils.WriteSuccess(w, http.StatusOK, "Login successful", loginResponse{User: u, Token: token})
}

// Logout drops the server-side session. Bearer tokens simply expire.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.Cookie.Name); err == nil && h.Sessions != nil {
		if err := h.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.Logger.Warn("AUTH", fmt.Sprintf("Failed to delete session: %v", err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	utils.WriteSuccess(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	u, err := h.Service.Profile(r.Context(), *actor.UserID)
	if err != nil {
		h.writeServiceError(w, "Profile", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Profile", u)
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	var req models.AvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}
	actor := auth.ActorFrom(r.Context())
	u, err := h.Service.UpdateAvatar(r.Context(), *actor.UserID, req.Avatar)
	if err != nil {
		h.writeServiceError(w, "UpdateAvatar", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Avatar updated", u)
}

// SwitchRole changes a user's role. When admins change their own role the
// current session follows; other users see it on their next login.
func (h *Handler) SwitchRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "Invalid user id", "bad_request")
		return
	}
	var req models.RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", "bad_request")
		return
	}

	actor := auth.ActorFrom(r.Context())
	u, err := h.Service.SwitchRole(r.Context(), actor, id, req.Role)
	if err != nil {
		h.writeServiceError(w, "SwitchRole", err)
		return
	}

	if id == *actor.UserID && h.Sessions != nil {
		if cookie, err := r.Cookie(h.Cookie.Name); err == nil {
			if err := h.Sessions.UpdateRole(r.Context(), cookie.Value, u.Role); err != nil {
				h.Logger.Warn("AUTH", fmt.Sprintf("Failed to update session role: %v", err))
			}
		}
	}
	utils.WriteSuccess(w, http.StatusOK, "Role updated", u)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.ValidationResponse("Please correct the highlighted fields", verr.Fields))
	case errors.Is(err, users.ErrUsernameTaken):
		utils.WriteError(w, http.StatusConflict, "Username already exists", "username_taken")
	case errors.Is(err, users.ErrEmailTaken):
		utils.WriteError(w, http.StatusConflict, "Email already exists", "email_taken")
	case errors.Is(err, users.ErrInvalidCredentials):
		utils.WriteError(w, http.StatusUnauthorized, "Invalid username/email or password", "invalid_credentials")
	case errors.Is(err, users.ErrUserNotFound):
		utils.WriteError(w, http.StatusNotFound, "User not found", "not_found")
	case errors.Is(err, users.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, "Admin access required", "forbidden")
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusServiceUnavailable, "An error occurred. Please try again later.", "persistence_error")
	}
}
