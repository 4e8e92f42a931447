package structs

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one line of a locally held cart. The price is the snapshot the
// device showed when the item was added and becomes price_at_order.
type CartLine struct {
	MenuItemId uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,min=1,max=99"`
	Price      int64     `json:"price" validate:"gte=0"`
	Notes      string    `json:"notes,omitempty" validate:"omitempty,max=200"`
}

type OrderRequest struct {
	Items        []CartLine `json:"items" validate:"dive"`
	TableNumber  string     `json:"table_number,omitempty"`
	ServiceType  string     `json:"service_type,omitempty" validate:"omitempty,oneof=on-site takeaway delivery"`
	RestaurantId *uuid.UUID `json:"restaurant_id,omitempty"`
	TipAmount    int64      `json:"tip_amount,omitempty" validate:"gte=0"`
	Notes        string     `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// OrderSource tells the writer which surface submitted the order.
type OrderSource string

const (
	OrderSourceCustomer OrderSource = "customer"
	OrderSourcePOS      OrderSource = "pos"
)

// Submitter identifies the client a submission is throttled and remembered for.
type Submitter struct {
	ClientId string
	Source   OrderSource
}

// HistoryEntry is one element of a client's local order history.
type HistoryEntry struct {
	OrderId     uuid.UUID `json:"order_id"`
	TableNumber string    `json:"table_number"`
	TotalPrice  int64     `json:"total_price"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type OverrideIntentRequest struct {
	Pin string `json:"pin,omitempty" validate:"omitempty,min=4,max=12"`
}

type OverrideRequest struct {
	Confirmation string `json:"confirmation" validate:"required"`
}

// OverrideClaims binds a manager confirmation to one order in one status.
type OverrideClaims struct {
	OrderId    uuid.UUID `json:"order_id"`
	FromStatus string    `json:"from_status"`
	IssuedAt   time.Time `json:"iat"`
	ExpiresAt  time.Time `json:"exp"`
}

type Receipt struct {
	ReceiptNumber string       `json:"receipt_number"`
	OrderId       uuid.UUID    `json:"order_id"`
	TableNumber   string       `json:"table_number"`
	Lines         []ReceiptRow `json:"lines"`
	Subtotal      int64        `json:"subtotal"`
	TipAmount     int64        `json:"tip_amount"`
	Total         int64        `json:"total"`
	IssuedAt      time.Time    `json:"issued_at"`
}

type ReceiptRow struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type SessionUpdateRequest struct {
	SoundEnabled *bool `json:"sound_enabled" validate:"required"`
}
