package services

import (
	"context"
	"fmt"
	"tableside_server/lib"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

type transitionKind string

const (
	kindAdvance  transitionKind = "advance"
	kindCancel   transitionKind = "cancel"
	kindOverride transitionKind = "override"
	kindSettle   transitionKind = "settle"
)

// StatusService applies status transitions. Every write is conditional on
// the status the transition was derived from.
type StatusService struct {
	logger  *gecho.Logger
	store   OrderRepository
	manager *structs.ManagerConfig
	now     func() time.Time
}

func NewStatusService(logger *gecho.Logger, store OrderRepository, manager *structs.ManagerConfig) *StatusService {
	return &StatusService{
		logger:  logger,
		store:   store,
		manager: manager,
		now:     time.Now,
	}
}

// Advance moves the order to the single legal next status.
func (ss *StatusService) Advance(ctx context.Context, id uuid.UUID, actor string) (*tables.Order, error) {
	current, err := ss.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := lib.NextStatus(current.Status)
	if err != nil {
		return nil, err
	}
	return ss.apply(ctx, current, next, actor, kindAdvance)
}

func (ss *StatusService) Cancel(ctx context.Context, id uuid.UUID, actor string) (*tables.Order, error) {
	current, err := ss.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := lib.CancelTarget(current.Status)
	if err != nil {
		return nil, err
	}
	return ss.apply(ctx, current, target, actor, kindCancel)
}

type OverrideIntent struct {
	Confirmation string             `json:"confirmation"`
	OrderId      uuid.UUID          `json:"order_id"`
	FromStatus   tables.OrderStatus `json:"from_status"`
	ExpiresAt    time.Time          `json:"expires_at"`
}

// IssueOverride verifies the manager PIN and returns a confirmation bound to
// the order and its current status.
func (ss *StatusService) IssueOverride(ctx context.Context, id uuid.UUID, pin string) (*OverrideIntent, error) {
	if ss.manager.PinHash != "" {
		ok, err := lib.VerifyPin(pin, ss.manager.PinHash)
		if err != nil {
			ss.logger.Error("Manager PIN hash is unreadable", gecho.Field("error", err))
			return nil, fmt.Errorf("%w: %v", lib.ErrInvalidPin, err)
		}
		if !ok {
			return nil, lib.ErrInvalidPin
		}
	}

	current, err := ss.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := lib.OverrideTarget(current.Status); err != nil {
		return nil, err
	}

	now := ss.now()
	token, err := lib.IssueOverrideToken(id, current.Status, ss.manager.OverrideTokenIssr, ss.manager.OverrideSecret, ss.manager.OverrideTokenTTL, now)
	if err != nil {
		return nil, err
	}

	return &OverrideIntent{
		Confirmation: token,
		OrderId:      id,
		FromStatus:   current.Status,
		ExpiresAt:    now.Add(ss.manager.OverrideTokenTTL),
	}, nil
}

// Override jumps a pending or preparing order straight to ready.
func (ss *StatusService) Override(ctx context.Context, id uuid.UUID, confirmation, actor string) (*tables.Order, error) {
	claims, err := lib.ParseOverrideToken(confirmation, ss.manager.OverrideTokenIssr, ss.manager.OverrideSecret)
	if err != nil {
		return nil, err
	}
	if claims.OrderId != id {
		return nil, fmt.Errorf("%w: issued for another order", lib.ErrInvalidConfirmation)
	}

	current, err := ss.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if string(current.Status) != claims.FromStatus {
		return nil, fmt.Errorf("%w: order moved from %s to %s since confirmation", lib.ErrInvalidConfirmation, claims.FromStatus, current.Status)
	}

	target, err := lib.OverrideTarget(current.Status)
	if err != nil {
		return nil, err
	}
	return ss.apply(ctx, current, target, actor, kindOverride)
}

// Settle is the cash-out gate: only a ready order can be delivered and
// receipted.
func (ss *StatusService) Settle(ctx context.Context, id uuid.UUID, actor string) (*structs.Receipt, error) {
	current, err := ss.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lib.DeliveryGate(current.Status); err != nil {
		return nil, err
	}

	if _, err := ss.apply(ctx, current, tables.OrderStatusDelivered, actor, kindSettle); err != nil {
		return nil, err
	}
	return BuildReceipt(current, ss.now()), nil
}

func (ss *StatusService) apply(ctx context.Context, current *tables.Order, to tables.OrderStatus, actor string, kind transitionKind) (*tables.Order, error) {
	from := current.Status

	updated, err := ss.store.UpdateStatus(ctx, current.Id, from, to)
	if err != nil {
		ss.logger.Warn("Status transition not applied",
			gecho.Field("order_id", current.Id),
			gecho.Field("from", from),
			gecho.Field("to", to),
			gecho.Field("kind", kind),
			gecho.Field("error", err),
		)
		return nil, err
	}

	OrderTransitions.WithLabelValues(string(from), string(to), string(kind)).Inc()

	entry := &tables.OrderStatusLog{
		OrderId:    current.Id,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Override:   kind == kindOverride,
	}
	if err := ss.store.LogTransition(ctx, entry); err != nil {
		ss.logger.Warn("Failed to write status log", gecho.Field("order_id", current.Id), gecho.Field("error", err))
	}

	if updated.Items == nil {
		updated.Items = current.Items
	}
	return updated, nil
}

// BuildReceipt itemizes an order from its price snapshots.
func BuildReceipt(order *tables.Order, issuedAt time.Time) *structs.Receipt {
	receipt := &structs.Receipt{
		ReceiptNumber: lib.GenerateReceiptNumber(order.Id),
		OrderId:       order.Id,
		TableNumber:   order.TableNumber,
		Lines:         make([]structs.ReceiptRow, 0, len(order.Items)),
		TipAmount:     order.TipAmount,
		Total:         order.TotalPrice,
		IssuedAt:      issuedAt,
	}

	for _, item := range order.Items {
		name := item.MenuItemId.String()
		if item.MenuItem != nil && item.MenuItem.Name != "" {
			name = item.MenuItem.Name
		}
		receipt.Lines = append(receipt.Lines, structs.ReceiptRow{
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: item.PriceAtOrder,
			LineTotal: item.LineTotal(),
		})
		receipt.Subtotal += item.LineTotal()
	}
	return receipt
}
