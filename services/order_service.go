package services

import (
	"context"
	"tableside_server/structs"
	"tableside_server/structs/tables"
	"time"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

// OrderService serves read access to orders for the admin and POS views.
type OrderService struct {
	logger *gecho.Logger
	store  OrderRepository
}

func NewOrderService(logger *gecho.Logger, store OrderRepository) *OrderService {
	return &OrderService{
		logger: logger,
		store:  store,
	}
}

func (os *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*tables.Order, error) {
	return os.store.GetOrder(ctx, id)
}

func (os *OrderService) ListOrders(ctx context.Context, opts *structs.OrderListOptions) ([]*tables.Order, structs.Pagination, error) {
	if opts == nil {
		opts = &structs.OrderListOptions{}
	}
	opts.Normalize()

	orders, total, err := os.store.FindOrders(ctx, opts)
	if err != nil {
		return nil, structs.Pagination{}, err
	}
	return orders, structs.NewPagination(opts, total), nil
}

// TodaysOrders lists the orders created since local midnight, optionally for
// one restaurant, newest first.
func (os *OrderService) TodaysOrders(ctx context.Context, restaurantId *uuid.UUID, now time.Time) ([]*tables.Order, int, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return os.store.FindOrders(ctx, &structs.OrderListOptions{
		RestaurantId:  restaurantId,
		CreatedAfter:  &midnight,
		SortBy:        "created_at",
		SortDirection: "DESC",
		PageSize:      structs.MaxPageSize,
		IncludeItems:  true,
	})
}
