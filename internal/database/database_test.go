package database

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-booking/internal/config"
	"travel-booking/internal/logger"
	"travel-booking/internal/models"
)

func TestOpenSQLiteAndCreateSchema(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Driver:         DriverSQLite,
		DSN:            fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns:   1,
		ConnectRetries: 1,
	}

	db, err := Open(ctx, cfg, logger.NewLoggerWithWriter(&bytes.Buffer{}))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, CreateSchema(ctx, db))
	// second run is a no-op
	require.NoError(t, CreateSchema(ctx, db))

	tour := &models.Tour{Title: "Alps", Description: "Hike", Location: "Zermatt", Image: "alps.jpg", Capacity: 10}
	_, err = db.NewInsert().Model(tour).Exec(ctx)
	require.NoError(t, err)
	assert.NotZero(t, tour.ID)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"}, logger.NewLoggerWithWriter(&bytes.Buffer{}))
	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
}
