// Package users handles registration, login and profiles.
package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"travel-booking/internal/logger"
	"travel-booking/internal/models"
	"travel-booking/internal/utils"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid username/email or password")
	ErrForbidden          = errors.New("admin access required")
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid user: " + strings.Join(parts, "; ")
}

type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	FindByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateAvatar(ctx context.Context, id int64, avatar string) error
	UpdateRole(ctx context.Context, id int64, role models.Role) error
}

var fieldMessages = map[string]string{
	"username.required":        "Username is required",
	"username.max":             "Username must be 20 characters or less",
	"username.username":        "Username can only contain letters, numbers, and underscores",
	"email.required":           "Email is required",
	"email.email":              "Invalid email format",
	"email.max":                "Email must be 50 characters or less",
	"password.required":        "Password is required",
	"password.min":             "Password must be at least 6 characters",
	"confirm_password.eqfield": "Passwords do not match",
}

type Service struct {
	Store  Store
	Logger *logger.Logger
	// Cost is the bcrypt work factor.
	Cost int

	validate *validator.Validate
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{Store: store, Logger: log, Cost: bcrypt.DefaultCost, validate: utils.NewValidator()}
}

// Register creates an authenticated user. Username and email must both be unused.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := s.validate.Struct(req); err != nil {
		fields, err := utils.FieldErrors(err, fieldMessages)
		if err != nil {
			return nil, err
		}
		return nil, &ValidationError{Fields: fields}
	}

	taken, err := s.Store.UsernameExists(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	taken, err = s.Store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.Cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleAuthenticated,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.Logger.LogSecurity("USER_REGISTERED", fmt.Sprintf("User %d registered as %s", u.ID, u.Username))
	return u, nil
}

// Authenticate checks a username or email against the stored password hash.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, &ValidationError{Fields: map[string]string{"login": "Username/email and password are required"}}
	}

	u, err := s.Store.FindByLogin(ctx, login)
	if errors.Is(err, ErrUserNotFound) {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("Unknown login %q", login))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("Wrong password for user %d", u.ID))
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, id int64) (*models.User, error) {
	return s.Store.GetUser(ctx, id)
}

// UpdateAvatar records the path of an already stored image.
func (s *Service) UpdateAvatar(ctx context.Context, id int64, avatar string) (*models.User, error) {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return nil, &ValidationError{Fields: map[string]string{"avatar": "Avatar is required"}}
	}
	if err := s.Store.UpdateAvatar(ctx, id, avatar); err != nil {
		return nil, err
	}
	return s.Store.GetUser(ctx, id)
}

// SwitchRole sets the role of user id. Only admins may do this, and only to
// authenticated or admin.
func (s *Service) SwitchRole(ctx context.Context, actor models.Actor, id int64, role models.Role) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if role != models.RoleAuthenticated && role != models.RoleAdmin {
		return nil, &ValidationError{Fields: map[string]string{"role": "Role must be authenticated or admin"}}
	}
	if err := s.Store.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	s.Logger.LogSecurity("ROLE_CHANGED", fmt.Sprintf("User %d set user %d to %s", *actor.UserID, id, role))
	return s.Store.GetUser(ctx, id)
}

// Actor is the identity a logged-in user acts as.
func Actor(u *models.User) models.Actor {
	id := u.ID
	return models.Actor{UserID: &id, Username: u.Username, Role: u.Role}
}
