package users_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"travel-booking/internal/database/dbtest"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
	"travel-booking/internal/users"
	usersdb "travel-booking/internal/users/db"
)

func newService(t *testing.T) *users.Service {
	t.Helper()
	svc := users.NewService(&usersdb.DB{Bun: dbtest.NewSQLite(t)}, logger.NewLoggerWithWriter(&bytes.Buffer{}))
	svc.Cost = bcrypt.MinCost
	return svc
}

func registration(username, email string) models.RegisterRequest {
	return models.RegisterRequest{Username: username, Email: email, Password: "secret1", ConfirmPassword: "secret1"}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	u, err := svc.Register(ctx, registration("  jo_travels ", "jo@example.com"))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "jo_travels", u.Username)
	assert.Equal(t, models.RoleAuthenticated, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	byName, err := svc.Authenticate(ctx, "jo_travels", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := svc.Authenticate(ctx, "jo@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = svc.Authenticate(ctx, "jo_travels", "wrong-pass")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, users.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, " ", "")
	var verr *users.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Username/email and password are required", verr.Fields["login"])
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Register(ctx, registration("sam", "sam@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registration("sam", "other@example.com"))
	assert.ErrorIs(t, err, users.ErrUsernameTaken)

	_, err = svc.Register(ctx, registration("sam2", "sam@example.com"))
	assert.ErrorIs(t, err, users.ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name    string
		req     models.RegisterRequest
		field   string
		message string
	}{
		{"empty username", registration("", "a@example.com"), "username", "Username is required"},
		{"long username", registration("abcdefghijklmnopqrstu", "a@example.com"), "username", "Username must be 20 characters or less"},
		{"bad characters", registration("jo-travels", "a@example.com"), "username", "Username can only contain letters, numbers, and underscores"},
		{"bad email", registration("jo", "not-an-email"), "email", "Invalid email format"},
		{"short password", models.RegisterRequest{Username: "jo", Email: "a@example.com", Password: "12345", ConfirmPassword: "12345"}, "password", "Password must be at least 6 characters"},
		{"mismatch", models.RegisterRequest{Username: "jo", Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret2"}, "confirm_password", "Passwords do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.req)
			var verr *users.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.message, verr.Fields[tt.field])
		})
	}
}

func TestProfileAvatarAndRole(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	u, err := svc.Register(ctx, registration("kim", "kim@example.com"))
	require.NoError(t, err)

	updated, err := svc.UpdateAvatar(ctx, u.ID, "uploads/avatars/kim.png")
	require.NoError(t, err)
	assert.Equal(t, "uploads/avatars/kim.png", updated.Avatar)

	_, err = svc.UpdateAvatar(ctx, u.ID, " ")
	var verr *users.ValidationError
	assert.True(t, errors.As(err, &verr))

	self := users.Actor(u)
	_, err = svc.SwitchRole(ctx, self, u.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, users.ErrForbidden)

	adminID := int64(999)
	admin := models.Actor{UserID: &adminID, Role: models.RoleAdmin}
	promoted, err := svc.SwitchRole(ctx, admin, u.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	_, err = svc.SwitchRole(ctx, admin, u.ID, models.RoleUnauthenticated)
	assert.True(t, errors.As(err, &verr))

	_, err = svc.SwitchRole(ctx, admin, 12345, models.RoleAdmin)
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	_, err = svc.Profile(ctx, 12345)
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}
