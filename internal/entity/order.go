package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Channel distinguishes retail checkout from wholesale checkout.
type Channel string

const (
	ChannelB2C Channel = "b2c"
	ChannelB2B Channel = "b2b"
)

// OrderStatus enumerates the order lifecycle values.
type OrderStatus string

const (
	StatusNew            OrderStatus = "new"
	StatusInProgress     OrderStatus = "in_progress"
	StatusReadyForPickup OrderStatus = "ready_for_pickup"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
	StatusRefunded       OrderStatus = "refunded"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusReadyForPickup, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// PaymentStatus tracks payment state independently of the order status.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentMethod enumerates supported payment methods per channel.
type PaymentMethod string

const (
	PaymentMethodInStore PaymentMethod = "in_store"
	PaymentMethodInvoice PaymentMethod = "invoice"
)

// Order is a placed purchase order. Contact info is stored on the order
// itself even for account holders so that "repeat last order" works without
// joining the users table.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            int64         `bun:",pk,autoincrement" json:"id"`
	Number        string        `bun:"number" json:"number"`
	CreatedBy     *int64        `bun:"created_by" json:"created_by,omitempty"`
	CustomerName  string        `bun:"customer_name" json:"customer_name"`
	CustomerEmail string        `bun:"customer_email" json:"customer_email"`
	CustomerPhone string        `bun:"customer_phone" json:"customer_phone"`
	StoreID       *int64        `bun:"store_id" json:"store_id,omitempty"`
	CompanyID     *int64        `bun:"company_id" json:"company_id,omitempty"`
	Channel       Channel       `bun:"channel" json:"channel"`
	Status        OrderStatus   `bun:"status" json:"status"`
	PaymentStatus PaymentStatus `bun:"payment_status" json:"payment_status"`
	PaymentMethod PaymentMethod `bun:"payment_method" json:"payment_method"`
	TotalCents    int64         `bun:"total_cents" json:"total_cents"`
	PickupDate    time.Time     `bun:"pickup_date" json:"pickup_date"`
	PickupTime    string        `bun:"pickup_time,nullzero" json:"pickup_time,omitempty"`
	CreatedAt     time.Time     `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `bun:"updated_at,nullzero" json:"updated_at"`

	Items  []*OrderItem   `bun:"rel:has-many,join:id=order_id" json:"items,omitempty"`
	Events []*StatusEvent `bun:"rel:has-many,join:id=order_id" json:"events,omitempty"`
}

// OrderItem is an immutable order line. Product name and price are frozen at
// order time; later catalog edits never alter a placed order.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID                int64  `bun:",pk,autoincrement" json:"id"`
	OrderID           int64  `bun:"order_id" json:"order_id"`
	ProductID         int64  `bun:"product_id" json:"product_id"`
	ProductName       string `bun:"product_name" json:"product_name"`
	ProductPriceCents int64  `bun:"product_price_cents" json:"product_price_cents"`
	Quantity          int    `bun:"quantity" json:"quantity"`
	UnitPriceCents    int64  `bun:"unit_price_cents" json:"unit_price_cents"`
	TotalCents        int64  `bun:"total_cents" json:"total_cents"`
}

// StatusEvent is one row of the append-only order audit log.
type StatusEvent struct {
	bun.BaseModel `bun:"table:order_status_events"`

	ID        int64       `bun:",pk,autoincrement" json:"id"`
	OrderID   int64       `bun:"order_id" json:"order_id"`
	Status    OrderStatus `bun:"status" json:"status"`
	Note      string      `bun:"note,nullzero" json:"note,omitempty"`
	CreatedBy *int64      `bun:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time   `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
}
