package database

import (
	"context"
	"fmt"
	"tableside_server/structs/tables"

	"github.com/uptrace/bun"
)

// CreateSchema creates the order tables when they do not exist yet. The
// catalog owns menu_items; it is only created here so a fresh development
// database can resolve the item-name join.
func (db *DB) CreateSchema(ctx context.Context) error {
	models := []any{
		(*tables.MenuItem)(nil),
		(*tables.Order)(nil),
		(*tables.OrderItem)(nil),
		(*tables.OrderStatusLog)(nil),
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create table for %T: %w", model, err)
			}
		}

		indexes := []struct {
			model   any
			name    string
			columns []string
		}{
			{(*tables.Order)(nil), "orders_status_created_at_idx", []string{"status", "created_at"}},
			{(*tables.Order)(nil), "orders_restaurant_id_idx", []string{"restaurant_id"}},
			{(*tables.OrderItem)(nil), "order_items_order_id_idx", []string{"order_id"}},
			{(*tables.OrderStatusLog)(nil), "order_status_log_order_id_idx", []string{"order_id"}},
		}
		for _, idx := range indexes {
			if _, err := tx.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.columns...).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}
		return nil
	})
}
