package structs

import (
	"tableside_server/structs/tables"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// OrderListOptions filters, sorts and paginates order queries
type OrderListOptions struct {
	Statuses     []tables.OrderStatus
	ServiceType  tables.ServiceType
	Table        string // substring match on table_number
	RestaurantId *uuid.UUID
	CreatedAfter *time.Time

	SortBy        string // created_at, total_price
	SortDirection string // ASC, DESC

	Page     int
	PageSize int

	IncludeItems bool
}

// Normalize applies defaults and clamps paging values.
func (o *OrderListOptions) Normalize() {
	if o.SortBy != "total_price" {
		o.SortBy = "created_at"
	}
	if o.SortDirection != "DESC" {
		o.SortDirection = "ASC"
	}
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
}

func (o *OrderListOptions) Offset() int {
	return (o.Page - 1) * o.PageSize
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(opts *OrderListOptions, total int) Pagination {
	return Pagination{
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		Total:      total,
		TotalPages: (total + opts.PageSize - 1) / opts.PageSize,
	}
}
