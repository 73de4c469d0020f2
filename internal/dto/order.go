package dto

import (
	"time"

	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

// OrderItemResponse is one frozen order line as exposed via transports.
type OrderItemResponse struct {
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID            int64               `json:"id"`
	Number        string              `json:"number"`
	Channel       string              `json:"channel"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	PaymentMethod string              `json:"payment_method"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	CustomerPhone string              `json:"customer_phone"`
	StoreID       *int64              `json:"store_id,omitempty"`
	CompanyID     *int64              `json:"company_id,omitempty"`
	TotalCents    int64               `json:"total_cents"`
	PickupDate    string              `json:"pickup_date"`
	PickupTime    string              `json:"pickup_time,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// FromOrder maps an entity order (with items) to its transport shape.
func FromOrder(order *entity.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		})
	}
	return OrderResponse{
		ID:            order.ID,
		Number:        order.Number,
		Channel:       string(order.Channel),
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		PaymentMethod: string(order.PaymentMethod),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
		StoreID:       order.StoreID,
		CompanyID:     order.CompanyID,
		TotalCents:    order.TotalCents,
		PickupDate:    order.PickupDate.Format("2006-01-02"),
		PickupTime:    order.PickupTime,
		Items:         items,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}
