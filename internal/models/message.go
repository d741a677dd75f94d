package models

import (
	"fmt"
	"time"
)

// NotificationEvent is published once an order has been committed
type NotificationEvent struct {
	OrderID      int64     `json:"order_id"`
	IssuerID     int64     `json:"issuer_id"`
	CustomerID   int64     `json:"customer_id"`
	CoffeeShopID int64     `json:"coffee_shop_id,omitempty"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewOrderPlacedEvent creates the notification for a freshly placed order
func NewOrderPlacedEvent(order *Order, coffeeShopID int64, now time.Time) *NotificationEvent {
	return &NotificationEvent{
		OrderID:      order.ID,
		IssuerID:     order.IssuerID,
		CustomerID:   order.CustomerID,
		CoffeeShopID: coffeeShopID,
		Message:      fmt.Sprintf("New order #%d placed with %d item(s)", order.ID, len(order.Lines)),
		CreatedAt:    now.UTC(),
	}
}
