package tables

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Order struct {
	// Table Name and identifiers
	bun.BaseModel `bun:"table:orders,alias:o"`
	Id            uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	TableNumber   string    `bun:"table_number,notnull" json:"table_number"`

	// Order Data
	Status     OrderStatus `bun:"status,notnull,default:'pending'" json:"status"`
	TotalPrice int64       `bun:"total_price,notnull" json:"total_price"` // minor units, includes tip
	TipAmount  int64       `bun:"tip_amount,nullzero" json:"tip_amount,omitempty"`
	Notes      string      `bun:"notes,nullzero" json:"notes,omitempty"` // Customer instruction

	// Context tags, never mutated after creation
	RestaurantId *uuid.UUID  `bun:"restaurant_id,type:uuid" json:"restaurant_id,omitempty"`
	ServiceType  ServiceType `bun:"service_type,notnull,default:'on-site'" json:"service_type"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`
	Id            uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	OrderId       uuid.UUID `bun:"order_id,notnull,type:uuid" json:"order_id"`
	MenuItemId    uuid.UUID `bun:"menu_item_id,notnull,type:uuid" json:"menu_item_id"`
	Quantity      int       `bun:"quantity,notnull" json:"quantity"`

	// Snapshot of pricing at time of order
	PriceAtOrder int64  `bun:"price_at_order,notnull" json:"price_at_order"`
	Notes        string `bun:"notes,nullzero" json:"notes,omitempty"`

	// Read-only join, the change bus never carries it
	MenuItem *MenuItem `bun:"rel:belongs-to,join:menu_item_id=id" json:"menu_item,omitempty"`
}

// LineTotal is the snapshot price multiplied by quantity.
func (oi *OrderItem) LineTotal() int64 {
	return oi.PriceAtOrder * int64(oi.Quantity)
}

// MenuItem is owned by the catalog; only the columns the order views join on
// are mapped here.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items,alias:mi"`
	Id            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
}

type OrderStatusLog struct {
	bun.BaseModel `bun:"table:order_status_log,alias:osl"`
	Id            uuid.UUID   `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	OrderId       uuid.UUID   `bun:"order_id,notnull,type:uuid" json:"order_id"`
	FromStatus    OrderStatus `bun:"from_status,notnull" json:"from_status"`
	ToStatus      OrderStatus `bun:"to_status,notnull" json:"to_status"`
	Actor         string      `bun:"actor,notnull" json:"actor"`
	Override      bool        `bun:"override,notnull,default:false" json:"override"`
	CreatedAt     time.Time   `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type ServiceType string

const (
	ServiceTypeOnSite   ServiceType = "on-site"
	ServiceTypeTakeaway ServiceType = "takeaway"
	ServiceTypeDelivery ServiceType = "delivery"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTypeOnSite, ServiceTypeTakeaway, ServiceTypeDelivery:
		return true
	}
	return false
}

// Column names, shared by the writer tiers and the store queries.
const (
	ColumnId           = "id"
	ColumnTableNumber  = "table_number"
	ColumnStatus       = "status"
	ColumnTotalPrice   = "total_price"
	ColumnTipAmount    = "tip_amount"
	ColumnNotes        = "notes"
	ColumnRestaurantId = "restaurant_id"
	ColumnServiceType  = "service_type"
)
