package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"travel-booking/internal/models"
	"travel-booking/internal/users"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return d.findOne(ctx, "u.id = ?", id)
}

func (d *DB) FindByLogin(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	return d.findOne(ctx, "u.username = ? OR u.email = ?", usernameOrEmail, usernameOrEmail)
}

func (d *DB) findOne(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	var u models.User
	err := d.Bun.NewSelect().Model(&u).Where(where, args...).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	return d.Bun.NewSelect().Model((*models.User)(nil)).Where("u.username = ?", username).Exists(ctx)
}

func (d *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	return d.Bun.NewSelect().Model((*models.User)(nil)).Where("u.email = ?", email).Exists(ctx)
}

func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	_, err := d.Bun.NewInsert().Model(u).Exec(ctx)
	return err
}

func (d *DB) UpdateAvatar(ctx context.Context, id int64, avatar string) error {
	return d.updateColumn(ctx, id, "avatar", avatar)
}

func (d *DB) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	return d.updateColumn(ctx, id, "role", role)
}

func (d *DB) updateColumn(ctx context.Context, id int64, column string, value interface{}) error {
	exists, err := d.Bun.NewSelect().Model((*models.User)(nil)).Where("u.id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return users.ErrUserNotFound
	}
	_, err = d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("? = ?", bun.Ident(column), value).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
