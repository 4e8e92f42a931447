package lib

import (
	"tableside_server/structs/tables"
)

// forward is the only path the standard advance operation may take.
var forward = map[tables.OrderStatus]tables.OrderStatus{
	tables.OrderStatusPending:   tables.OrderStatusPreparing,
	tables.OrderStatusPreparing: tables.OrderStatusReady,
	tables.OrderStatusReady:     tables.OrderStatusDelivered,
}

// NextStatus derives the single legal successor of current.
func NextStatus(current tables.OrderStatus) (tables.OrderStatus, error) {
	if current.Terminal() {
		return "", &TransitionError{From: current, Err: ErrTerminalStatus}
	}
	next, ok := forward[current]
	if !ok {
		return "", &TransitionError{From: current, Err: ErrInvalidTransition}
	}
	return next, nil
}

// CancelTarget checks that current may be cancelled.
func CancelTarget(current tables.OrderStatus) (tables.OrderStatus, error) {
	if current.Terminal() {
		return "", &TransitionError{From: current, To: tables.OrderStatusCancelled, Err: ErrTerminalStatus}
	}
	if !current.Valid() {
		return "", &TransitionError{From: current, To: tables.OrderStatusCancelled, Err: ErrInvalidTransition}
	}
	return tables.OrderStatusCancelled, nil
}

// OverrideTarget checks the manager override scope: pending or preparing may
// jump straight to ready, nothing else may.
func OverrideTarget(current tables.OrderStatus) (tables.OrderStatus, error) {
	switch current {
	case tables.OrderStatusPending, tables.OrderStatusPreparing:
		return tables.OrderStatusReady, nil
	case tables.OrderStatusDelivered, tables.OrderStatusCancelled:
		return "", &TransitionError{From: current, To: tables.OrderStatusReady, Err: ErrTerminalStatus}
	}
	return "", &TransitionError{From: current, To: tables.OrderStatusReady, Err: ErrOverrideNotAllowed}
}

// DeliveryGate blocks terminal financial actions until the order is ready.
func DeliveryGate(current tables.OrderStatus) error {
	switch current {
	case tables.OrderStatusReady:
		return nil
	case tables.OrderStatusDelivered, tables.OrderStatusCancelled:
		return &TransitionError{From: current, To: tables.OrderStatusDelivered, Err: ErrTerminalStatus}
	}
	return &TransitionError{From: current, To: tables.OrderStatusDelivered, Err: ErrNotReady}
}

// IsValidStatusTransition reports whether from -> to is legal, either through
// the standard path, a cancellation, or (when override is set) the manager
// override.
func IsValidStatusTransition(from, to tables.OrderStatus, override bool) bool {
	if override {
		target, err := OverrideTarget(from)
		return err == nil && target == to
	}
	if to == tables.OrderStatusCancelled {
		_, err := CancelTarget(from)
		return err == nil
	}
	next, err := NextStatus(from)
	return err == nil && next == to
}
