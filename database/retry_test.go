package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"tableside_server/structs"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
		EnableRetry:  true,
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no rows", sql.ErrNoRows, false},
		{"canceled", context.Canceled, false},
		{"undefined column", &pgconn.PgError{Code: "42703"}, false},
		{"unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"plain", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestRetryWithBackoffRetriesTransientErrors(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffStopsOnSchemaError(t *testing.T) {
	attempts := 0
	schemaErr := &pgconn.PgError{Code: "42703", Message: `column "tip_amount" does not exist`}

	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		attempts++
		return schemaErr
	})

	assert.ErrorIs(t, err, schemaErr)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoffGivesUp(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastRetry(), func() error {
		attempts++
		return errors.New("connection reset by peer")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryDisabled(t *testing.T) {
	cfg := fastRetry()
	cfg.EnableRetry = false

	attempts := 0
	_ = RetryWithBackoff(context.Background(), cfg, func() error {
		attempts++
		return errors.New("connection refused")
	})
	assert.Equal(t, 1, attempts)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&structs.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "app",
		Password: "p@ss",
		Name:     "tableside",
	})
	assert.Equal(t, "postgres://app:p%40ss@db:5433/tableside?sslmode=disable", dsn)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `T\_1\%`, escapeLike("T_1%"))
}
