package services

import (
	"context"
	"fmt"
	"tableside_server/database"
	"tableside_server/lib"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

// OrderRepository is the part of the order store the services depend on.
type OrderRepository interface {
	InsertOrder(ctx context.Context, order *tables.Order, columns []string) error
	InsertItems(ctx context.Context, items []*tables.OrderItem) error
	GetOrder(ctx context.Context, id uuid.UUID) (*tables.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to tables.OrderStatus) (*tables.Order, error)
	LogTransition(ctx context.Context, entry *tables.OrderStatusLog) error
	FindOrders(ctx context.Context, opts *structs.OrderListOptions) ([]*tables.Order, int, error)
}

var baseColumns = []string{
	tables.ColumnTableNumber,
	tables.ColumnStatus,
	tables.ColumnTotalPrice,
	tables.ColumnRestaurantId,
	tables.ColumnServiceType,
}

// writeTier is one column set the writer tries, richest first.
type writeTier struct {
	number  int
	notes   bool
	tip     bool
	columns []string
}

func writeTiers(withTip bool) []writeTier {
	full := append(append([]string{}, baseColumns...), tables.ColumnNotes)
	tiers := make([]writeTier, 0, 3)
	if withTip {
		tiers = append(tiers, writeTier{number: 1, notes: true, tip: true, columns: append(append([]string{}, full...), tables.ColumnTipAmount)})
	} else {
		// Without a tip tier 1 and tier 2 write the same columns
		tiers = append(tiers, writeTier{number: 1, notes: true, columns: full})
	}
	if withTip {
		tiers = append(tiers, writeTier{number: 2, notes: true, columns: full})
	}
	return append(tiers, writeTier{number: 3, columns: baseColumns})
}

type SubmitResult struct {
	Order          *tables.Order `json:"order"`
	Tier           int           `json:"tier"`
	TableAssigned  bool          `json:"table_assigned"` // placeholder or remembered table used
	TipPersisted   bool          `json:"tip_persisted"`
	NotesPersisted bool          `json:"notes_persisted"`
}

// OrderWriter turns a cart into a persisted order.
type OrderWriter struct {
	logger  *gecho.Logger
	cfg     *structs.OrderingConfig
	store   OrderRepository
	clients ClientStateStore
	retry   database.RetryConfig
	now     func() time.Time
}

func NewOrderWriter(logger *gecho.Logger, cfg *structs.OrderingConfig, store OrderRepository, clients ClientStateStore) *OrderWriter {
	return &OrderWriter{
		logger:  logger,
		cfg:     cfg,
		store:   store,
		clients: clients,
		retry:   database.DefaultRetryConfig(),
		now:     time.Now,
	}
}

func (ow *OrderWriter) cooldownFor(source structs.OrderSource) time.Duration {
	if source == structs.OrderSourcePOS {
		return ow.cfg.POSCooldown
	}
	return ow.cfg.SubmissionCooldown
}

// Submit validates the cart, enforces the client cooldown and writes the
// order, degrading the column set when the store rejects optional columns.
// When the order row is stored but its items are not, the result is returned
// together with a *lib.PartialOrderError.
func (ow *OrderWriter) Submit(ctx context.Context, submitter structs.Submitter, req *structs.OrderRequest) (*SubmitResult, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, lib.ErrEmptyCart
	}

	subtotal, err := cartSubtotal(req.Items)
	if err != nil {
		return nil, err
	}
	if req.TipAmount < 0 {
		return nil, fmt.Errorf("%w: negative tip", lib.ErrInvalidCart)
	}

	serviceType := tables.ServiceType(req.ServiceType)
	if serviceType == "" {
		serviceType = tables.ServiceType(ow.cfg.DefaultServiceType)
	}
	if !serviceType.Valid() {
		return nil, fmt.Errorf("%w: unknown service type %q", lib.ErrInvalidCart, serviceType)
	}

	now := ow.now()
	reserved, err := ow.reserveCooldown(ctx, submitter, now)
	if err != nil {
		return nil, err
	}

	table, assigned := ow.resolveTable(ctx, submitter.ClientId, req.TableNumber)

	// Ids are fixed before the first attempt so a retried insert is a no-op
	order := &tables.Order{
		Id:           uuid.New(),
		TableNumber:  table,
		Status:       tables.OrderStatusPending,
		TotalPrice:   subtotal + req.TipAmount,
		TipAmount:    req.TipAmount,
		Notes:        req.Notes,
		RestaurantId: ow.restaurantId(req.RestaurantId),
		ServiceType:  serviceType,
	}

	result, err := ow.insertDegrading(ctx, order, submitter.Source)
	if err != nil {
		if reserved {
			ow.releaseCooldown(ctx, submitter)
		}
		return nil, err
	}
	result.TableAssigned = assigned

	items := make([]*tables.OrderItem, 0, len(req.Items))
	for _, line := range req.Items {
		items = append(items, &tables.OrderItem{
			Id:           uuid.New(),
			OrderId:      result.Order.Id,
			MenuItemId:   line.MenuItemId,
			Quantity:     line.Quantity,
			PriceAtOrder: line.Price,
			Notes:        line.Notes,
		})
	}

	itemsErr := database.RetryWithBackoff(ctx, ow.retry, func() error {
		return ow.store.InsertItems(ctx, items)
	})
	if itemsErr == nil {
		result.Order.Items = items
	} else {
		ow.logger.Error("Order stored without its items",
			gecho.Field("order_id", result.Order.Id),
			gecho.Field("error", lib.DescribeStoreError(itemsErr)),
		)
	}

	// The order row exists either way, so it belongs in the history
	ow.remember(ctx, submitter, result.Order, len(items), now)
	OrdersSubmitted.WithLabelValues(fmt.Sprint(result.Tier), string(submitter.Source)).Inc()

	if itemsErr != nil {
		return result, &lib.PartialOrderError{OrderId: result.Order.Id, Err: itemsErr}
	}
	return result, nil
}

func cartSubtotal(lines []structs.CartLine) (int64, error) {
	var subtotal int64
	for i, line := range lines {
		if line.Quantity <= 0 {
			return 0, fmt.Errorf("%w: line %d has quantity %d", lib.ErrInvalidCart, i, line.Quantity)
		}
		if line.Price < 0 {
			return 0, fmt.Errorf("%w: line %d has a negative price", lib.ErrInvalidCart, i)
		}
		if line.MenuItemId == uuid.Nil {
			return 0, fmt.Errorf("%w: line %d has no menu item", lib.ErrInvalidCart, i)
		}
		subtotal += line.Price * int64(line.Quantity)
	}
	return subtotal, nil
}

// reserveCooldown claims the client's submission window before anything is
// written, so two requests in flight for the same device cannot both pass.
// It reports whether a reservation was taken.
func (ow *OrderWriter) reserveCooldown(ctx context.Context, submitter structs.Submitter, now time.Time) (bool, error) {
	cooldown := ow.cooldownFor(submitter.Source)
	if cooldown <= 0 || submitter.ClientId == "" {
		return false, nil
	}

	remaining, err := ow.clients.ReserveSubmission(ctx, submitter.ClientId, now, cooldown)
	if err != nil {
		// Unreadable state is treated like a device with cleared storage
		ow.logger.Warn("Could not reserve submission window, skipping cooldown",
			gecho.Field("client_id", submitter.ClientId),
			gecho.Field("error", err),
		)
		return false, nil
	}
	if remaining > 0 {
		return false, &lib.CooldownError{Remaining: remaining}
	}
	return true, nil
}

// releaseCooldown gives the window back after a submission stored nothing.
func (ow *OrderWriter) releaseCooldown(ctx context.Context, submitter structs.Submitter) {
	if err := ow.clients.ReleaseSubmission(ctx, submitter.ClientId); err != nil {
		ow.logger.Warn("Failed to release submission window",
			gecho.Field("client_id", submitter.ClientId),
			gecho.Field("error", err),
		)
	}
}

func (ow *OrderWriter) resolveTable(ctx context.Context, clientId, raw string) (string, bool) {
	if table := lib.NormalizeTableNumber(raw, ow.cfg.TableNumberMaxLength); table != "" {
		return table, false
	}

	if clientId != "" {
		last, err := ow.clients.LastTable(ctx, clientId)
		if err != nil {
			ow.logger.Debug("Could not read last table", gecho.Field("client_id", clientId), gecho.Field("error", err))
		}
		if table := lib.NormalizeTableNumber(last, ow.cfg.TableNumberMaxLength); table != "" {
			return table, true
		}
	}

	return lib.SanitizeTableNumber("", ow.cfg.TableNumberMaxLength, ow.cfg.TablePlaceholder), true
}

func (ow *OrderWriter) restaurantId(requested *uuid.UUID) *uuid.UUID {
	if requested != nil {
		return requested
	}
	if ow.cfg.DefaultRestaurantID == "" {
		return nil
	}
	id, err := uuid.Parse(ow.cfg.DefaultRestaurantID)
	if err != nil {
		return nil
	}
	return &id
}

// insertDegrading tries each tier in turn; the first committed insert wins.
func (ow *OrderWriter) insertDegrading(ctx context.Context, order *tables.Order, source structs.OrderSource) (*SubmitResult, error) {
	var lastErr error

	for _, tier := range writeTiers(order.TipAmount > 0) {
		attempt := *order
		if !tier.tip {
			attempt.TipAmount = 0
		}
		if !tier.notes {
			attempt.Notes = ""
		}

		err := database.RetryWithBackoff(ctx, ow.retry, func() error {
			return ow.store.InsertOrder(ctx, &attempt, tier.columns)
		})
		if err == nil {
			if tier.number > 1 {
				ow.logger.Warn("Order stored with a reduced column set",
					gecho.Field("tier", tier.number),
					gecho.Field("order_id", attempt.Id),
					gecho.Field("source", source),
				)
			}
			return &SubmitResult{
				Order:          &attempt,
				Tier:           tier.number,
				TipPersisted:   tier.tip,
				NotesPersisted: tier.notes,
			}, nil
		}

		lastErr = err
		ow.logger.Warn("Order insert failed",
			gecho.Field("tier", tier.number),
			gecho.Field("schema_error", lib.IsSchemaError(err)),
			gecho.Field("error", lib.DescribeStoreError(err)),
		)
	}

	return nil, fmt.Errorf("%w: %s", lib.ErrOrderNotSent, lib.DescribeStoreError(lastErr))
}

func (ow *OrderWriter) remember(ctx context.Context, submitter structs.Submitter, order *tables.Order, itemCount int, now time.Time) {
	if submitter.ClientId == "" {
		return
	}

	entry := structs.HistoryEntry{
		OrderId:     order.Id,
		TableNumber: order.TableNumber,
		TotalPrice:  order.TotalPrice,
		ItemCount:   itemCount,
		CreatedAt:   now,
	}
	if err := ow.clients.RecordSubmission(ctx, submitter.ClientId, order.TableNumber, entry); err != nil {
		ow.logger.Warn("Failed to record client submission",
			gecho.Field("client_id", submitter.ClientId),
			gecho.Field("error", err),
		)
	}
}

// History returns the client's most recent submissions, newest first.
func (ow *OrderWriter) History(ctx context.Context, clientId string) ([]structs.HistoryEntry, error) {
	return ow.clients.History(ctx, clientId)
}
