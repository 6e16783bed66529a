package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bvester-assessment/internal/common/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckAll(t *testing.T) {
	failures := CheckAll(context.Background(), time.Second, map[string]Pinger{
		"ok":   pingerFunc(func(context.Context) error { return nil }),
		"down": pingerFunc(func(context.Context) error { return errors.New("refused") }),
		"slow": pingerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		"unset": nil,
	})

	require.Len(t, failures, 2)
	assert.EqualError(t, failures["down"], "refused")
	assert.ErrorIs(t, failures["slow"], context.DeadlineExceeded)
}

func TestNewSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "outbox.db")
	client, err := NewSQLite(config.SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))

	var mode string
	require.NoError(t, client.DB.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNewSQLite_Errors(t *testing.T) {
	_, err := NewSQLite(config.SQLiteConfig{})
	assert.ErrorContains(t, err, "path is empty")

	orig := openSQLite
	t.Cleanup(func() { openSQLite = orig })
	openSQLite = func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") }

	_, err = NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db")})
	assert.ErrorContains(t, err, "no driver")
}

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))

	_, err = NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestPostgresClient_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	client := &PostgresClient{DB: db}
	mock.ExpectPing()
	assert.NoError(t, client.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, client.Ping(context.Background()))

	mock.ExpectClose()
	require.NoError(t, client.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
