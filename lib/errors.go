package lib

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"tableside_server/structs/tables"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Database errors
var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)

// Submission errors
var (
	ErrEmptyCart          = errors.New("empty cart")
	ErrInvalidCart        = errors.New("cart contains an invalid line")
	ErrSubmissionCooldown = errors.New("please wait before sending another order")
	ErrItemsNotSaved      = errors.New("order saved but its items were not")
	ErrOrderNotSent       = errors.New("order was not sent")
)

// Transition errors
var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrTerminalStatus      = errors.New("order is already finished")
	ErrOverrideNotAllowed  = errors.New("override is only possible from pending or preparing")
	ErrNotReady            = errors.New("order is not ready")
	ErrStatusConflict      = errors.New("order status changed concurrently")
	ErrInvalidConfirmation = errors.New("invalid or expired override confirmation")
	ErrInvalidPin          = errors.New("invalid manager pin")
)

// CooldownError is returned while a client is still inside its submission
// cooldown.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s (%ds)", ErrSubmissionCooldown.Error(), int(e.Remaining.Round(time.Second).Seconds()))
}

func (e *CooldownError) Unwrap() error {
	return ErrSubmissionCooldown
}

// PartialOrderError carries the committed order id when the item write failed
// after the order row was stored.
type PartialOrderError struct {
	OrderId uuid.UUID
	Err     error
}

func (e *PartialOrderError) Error() string {
	return fmt.Sprintf("%s (order %s): %v", ErrItemsNotSaved.Error(), e.OrderId, e.Err)
}

func (e *PartialOrderError) Unwrap() []error {
	return []error{ErrItemsNotSaved, e.Err}
}

// TransitionError describes a refused transition and the status it was
// attempted from.
type TransitionError struct {
	From tables.OrderStatus
	To   tables.OrderStatus
	Err  error
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("%v: from %s", e.Err, e.From)
	}
	return fmt.Sprintf("%v: %s -> %s", e.Err, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	switch SQLState(err) {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case "P0002": // no_data_found
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// SQLState extracts the SQLSTATE code from either driver's error type.
func SQLState(err error) string {
	var bunErr pgdriver.Error
	if errors.As(err, &bunErr) {
		return bunErr.Field('C')
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// DescribeStoreError joins message, detail and hint of a Postgres error so a
// failed write can be diagnosed from a single log line.
func DescribeStoreError(err error) string {
	if err == nil {
		return ""
	}

	var message, detail, hint string
	var bunErr pgdriver.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &bunErr):
		message, detail, hint = bunErr.Field('M'), bunErr.Field('D'), bunErr.Field('H')
	case errors.As(err, &pgErr):
		message, detail, hint = pgErr.Message, pgErr.Detail, pgErr.Hint
	default:
		return err.Error()
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{message, detail, hint} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, " | ")
}

// IsSchemaError reports whether err means the store lacks a column or table the
// query referenced.
func IsSchemaError(err error) bool {
	switch SQLState(err) {
	case "42703", // undefined_column
		"42P01": // undefined_table
		return true
	}
	return false
}
