package services

import (
	"context"
	"slices"
	"strings"
	"tableside_server/lib"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/google/uuid"
)

type KitchenBoard struct {
	Pending    []OrderView `json:"pending"`
	Preparing  []OrderView `json:"preparing"`
	Ready      []OrderView `json:"ready"`
	LateCount  int         `json:"late_count"`
	ComputedAt time.Time   `json:"computed_at"`
	LastError  string      `json:"last_error,omitempty"`
}

// BuildKitchenBoard groups the open orders of a snapshot into columns,
// oldest first.
func BuildKitchenBoard(snap Snapshot) KitchenBoard {
	board := KitchenBoard{
		Pending:    []OrderView{},
		Preparing:  []OrderView{},
		Ready:      []OrderView{},
		ComputedAt: snap.ComputedAt,
		LastError:  snap.LastError,
	}

	for _, v := range snap.Orders {
		switch v.Status {
		case tables.OrderStatusPending:
			board.Pending = append(board.Pending, v)
		case tables.OrderStatusPreparing:
			board.Preparing = append(board.Preparing, v)
		case tables.OrderStatusReady:
			board.Ready = append(board.Ready, v)
		default:
			continue
		}
		if v.Urgency.Tier == lib.UrgencyLate {
			board.LateCount++
		}
	}

	for _, column := range [][]OrderView{board.Pending, board.Preparing, board.Ready} {
		slices.SortStableFunc(column, func(a, b OrderView) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		})
	}
	return board
}

// FilterViews applies list options to an in-memory snapshot, the way the
// admin console narrows its live view without another query.
func FilterViews(views []OrderView, opts *structs.OrderListOptions) ([]OrderView, structs.Pagination) {
	if opts == nil {
		opts = &structs.OrderListOptions{}
	}
	opts.Normalize()

	table := strings.ToUpper(opts.Table)
	filtered := make([]OrderView, 0, len(views))
	for _, v := range views {
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, v.Status) {
			continue
		}
		if opts.ServiceType != "" && v.ServiceType != opts.ServiceType {
			continue
		}
		if table != "" && !strings.Contains(v.TableNumber, table) {
			continue
		}
		if opts.RestaurantId != nil && (v.RestaurantId == nil || *v.RestaurantId != *opts.RestaurantId) {
			continue
		}
		if opts.CreatedAfter != nil && v.CreatedAt.Before(*opts.CreatedAfter) {
			continue
		}
		filtered = append(filtered, v)
	}

	slices.SortStableFunc(filtered, func(a, b OrderView) int {
		var c int
		if opts.SortBy == "total_price" {
			c = cmpInt64(a.TotalPrice, b.TotalPrice)
		} else {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if opts.SortDirection == "DESC" {
			return -c
		}
		return c
	})

	total := len(filtered)
	start := min(opts.Offset(), total)
	end := min(start+opts.PageSize, total)
	return filtered[start:end], structs.NewPagination(opts, total)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// KitchenFetch loads every open order with its items, a page at a time, so
// the board and its late count never miss a ticket.
func KitchenFetch(store OrderRepository) FetchFunc {
	return func(ctx context.Context) ([]*tables.Order, int, error) {
		var all []*tables.Order
		for page := 1; ; page++ {
			orders, total, err := store.FindOrders(ctx, &structs.OrderListOptions{
				Statuses: []tables.OrderStatus{
					tables.OrderStatusPending,
					tables.OrderStatusPreparing,
					tables.OrderStatusReady,
				},
				SortBy:        "created_at",
				SortDirection: "ASC",
				Page:          page,
				PageSize:      structs.MaxPageSize,
				IncludeItems:  true,
			})
			if err != nil {
				return nil, 0, err
			}
			all = append(all, orders...)
			if len(orders) < structs.MaxPageSize || len(all) >= total {
				return all, max(total, len(all)), nil
			}
		}
	}
}

// AdminFetch loads the most recent orders in every status.
func AdminFetch(store OrderRepository, limit int) FetchFunc {
	return func(ctx context.Context) ([]*tables.Order, int, error) {
		return store.FindOrders(ctx, &structs.OrderListOptions{
			SortBy:        "created_at",
			SortDirection: "DESC",
			PageSize:      limit,
			IncludeItems:  true,
		})
	}
}

// POSFetch loads today's orders for the terminal's restaurant.
func POSFetch(orders *OrderService, restaurantId *uuid.UUID, now func() time.Time) FetchFunc {
	return func(ctx context.Context) ([]*tables.Order, int, error) {
		return orders.TodaysOrders(ctx, restaurantId, now())
	}
}
