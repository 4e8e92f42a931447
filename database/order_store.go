package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"tableside_server/bus"
	"tableside_server/lib"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
)

// OrderStore reads and writes orders and publishes a change event after
// every committed write.
type OrderStore struct {
	db        *DB
	publisher bus.Publisher
	logger    *gecho.Logger
	timeout   time.Duration
}

func NewOrderStore(db *DB, publisher bus.Publisher, logger *gecho.Logger, timeout time.Duration) *OrderStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OrderStore{
		db:        db,
		publisher: publisher,
		logger:    logger,
		timeout:   timeout,
	}
}

// writeCtx detaches a write from the caller's cancellation so a dropped
// client connection never aborts a statement halfway.
func (s *OrderStore) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

// InsertOrder writes the order id plus the given columns and scans back the
// store assigned fields. The id is chosen by the caller, so repeating the
// statement after a lost reply finds the committed row instead of adding a
// second one.
func (s *OrderStore) InsertOrder(ctx context.Context, order *tables.Order, columns []string) error {
	if order.Id == uuid.Nil {
		order.Id = uuid.New()
	}

	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	res, err := s.db.NewInsert().
		Model(order).
		Column(append([]string{tables.ColumnId}, columns...)...).
		On("CONFLICT (id) DO NOTHING").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return lib.MapPgError(err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if err := s.db.NewSelect().Model(order).Where("o.id = ?", order.Id).Scan(ctx); err != nil {
			return lib.MapPgError(err)
		}
		s.logger.Debug("Order insert repeated, using committed row", gecho.Field("order_id", order.Id))
	}

	s.publish(ctx, TableOrders, bus.EventInsert, order)
	return nil
}

// InsertItems writes all lines in one statement, keyed by caller chosen ids.
func (s *OrderStore) InsertItems(ctx context.Context, items []*tables.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if item.Id == uuid.Nil {
			item.Id = uuid.New()
		}
	}

	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	_, err := s.db.NewInsert().
		Model(&items).
		Column("id", "order_id", "menu_item_id", "quantity", "price_at_order", "notes").
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return lib.MapPgError(err)
	}

	s.publish(ctx, TableOrderItems, bus.EventInsert, map[string]any{
		"order_id": items[0].OrderId,
		"count":    len(items),
	})
	return nil
}

func (s *OrderStore) GetOrder(ctx context.Context, id uuid.UUID) (*tables.Order, error) {
	order := new(tables.Order)
	err := s.db.NewSelect().
		Model(order).
		Relation("Items", withMenuItem).
		Where("o.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}
	return order, nil
}

// UpdateStatus moves an order from one status to another only if it is
// still in from. Zero matched rows means another writer moved it first.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to tables.OrderStatus) (*tables.Order, error) {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	order := new(tables.Order)
	_, err := s.db.NewUpdate().
		Model(order).
		Set("status = ?", to).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("status = ?", from).
		Returning("*").
		Exec(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, lib.MapPgError(err)
	}

	if err != nil || order.Id == uuid.Nil {
		current, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &lib.TransitionError{From: current.Status, To: to, Err: lib.ErrStatusConflict}
	}

	s.publish(ctx, TableOrders, bus.EventUpdate, order)
	return order, nil
}

func (s *OrderStore) LogTransition(ctx context.Context, entry *tables.OrderStatusLog) error {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	_, err := s.db.NewInsert().
		Model(entry).
		Column("order_id", "from_status", "to_status", "actor", "override").
		Exec(ctx)
	return lib.MapPgError(err)
}

func (s *OrderStore) FindOrders(ctx context.Context, opts *structs.OrderListOptions) ([]*tables.Order, int, error) {
	if opts == nil {
		opts = &structs.OrderListOptions{}
	}
	opts.Normalize()

	orders := make([]*tables.Order, 0)
	q := s.db.NewSelect().Model(&orders)

	if opts.IncludeItems {
		q = q.Relation("Items", withMenuItem)
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("o.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.ServiceType != "" {
		q = q.Where("o.service_type = ?", opts.ServiceType)
	}
	if opts.Table != "" {
		q = q.Where("o.table_number ILIKE ?", "%"+escapeLike(opts.Table)+"%")
	}
	if opts.RestaurantId != nil {
		q = q.Where("o.restaurant_id = ?", *opts.RestaurantId)
	}
	if opts.CreatedAfter != nil {
		q = q.Where("o.created_at >= ?", *opts.CreatedAfter)
	}

	// SortBy and SortDirection are whitelisted by Normalize
	q = q.OrderExpr("o." + opts.SortBy + " " + opts.SortDirection).
		OrderExpr("o.id ASC").
		Limit(opts.PageSize).
		Offset(opts.Offset())

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, lib.MapPgError(err)
	}
	return orders, total, nil
}

func withMenuItem(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Relation("MenuItem")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *OrderStore) publish(ctx context.Context, table string, kind bus.EventType, row any) {
	if s.publisher == nil {
		return
	}

	if order, ok := row.(*tables.Order); ok {
		clone := *order
		clone.Items = nil
		row = &clone
	}

	raw, err := json.Marshal(row)
	if err != nil {
		s.logger.Warn("Failed to encode change event", gecho.Field("table", table), gecho.Field("error", err))
		return
	}

	if err := s.publisher.Publish(ctx, bus.Event{Table: table, Type: kind, Raw: raw}); err != nil {
		// Surfaces still converge through their poll fallback
		s.logger.Warn("Failed to publish change event",
			gecho.Field("table", table),
			gecho.Field("type", kind),
			gecho.Field("error", err),
		)
	}
}
