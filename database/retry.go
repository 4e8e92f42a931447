package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"tableside_server/lib"

	"github.com/jackc/pgx/v5/pgconn"
)

// RetryConfig controls how store writes are retried.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	EnableRetry  bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		EnableRetry:  true,
	}
}

// Transient SQLSTATE classes: connection (08), transaction rollback (40),
// insufficient resources (53) and operator intervention (57).
var retryableClasses = map[string]bool{
	"08": true,
	"40": true,
	"53": true,
	"57": true,
}

// 57P01..57P02 mean the server is shutting down for good.
var permanentCodes = map[string]bool{
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
}

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"eof",
	"connection closed",
	"bad connection",
	"too many clients",
	"server is not accepting",
	"connection pool exhausted",
	"temporary failure",
}

// isRetryableError reports whether repeating the same statement can succeed.
// Schema, constraint and data errors never are, so a missing column reaches
// the degrading writer on the first attempt.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, sql.ErrNoRows) {
		return false
	}

	if code := lib.SQLState(err); len(code) == 5 {
		return retryableClasses[code[:2]] && !permanentCodes[code]
	}

	// pgx knows when nothing reached the server
	if pgconn.SafeToRetry(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// RetryWithBackoff runs operation until it succeeds, fails permanently or runs
// out of attempts. The delay grows by Multiplier up to MaxDelay.
func RetryWithBackoff(ctx context.Context, config RetryConfig, operation func() error) error {
	if !config.EnableRetry || config.MaxAttempts <= 1 {
		return operation()
	}

	delay := config.InitialDelay
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var err error
	for attempt := 1; ; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if !isRetryableError(err) || attempt >= config.MaxAttempts {
			return err
		}

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		delay = min(time.Duration(float64(delay)*config.Multiplier), config.MaxDelay)
	}
}
