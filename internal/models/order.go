package models

import (
	"fmt"
	"strings"
	"time"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusCompleted  OrderStatus = "COMPLETED"
	StatusClosed     OrderStatus = "CLOSED"
)

// ParseOrderStatus converts a raw status string into an OrderStatus
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusClosed:
		return s, nil
	default:
		return "", fmt.Errorf("status must be one of: PENDING, IN_PROGRESS, COMPLETED, CLOSED")
	}
}

// OrderLine is one aggregated menu item of an order
type OrderLine struct {
	OrderID  int64 `json:"order_id" db:"order_id"`
	ItemID   int64 `json:"item_id" db:"item_id"`
	Quantity int   `json:"quantity" db:"quantity"`
}

// Order represents a coffee shop order
type Order struct {
	ID         int64       `json:"id" db:"id"`
	IssueDate  time.Time   `json:"issue_date" db:"issue_date"`
	CustomerID int64       `json:"customer_id" db:"customer_id"`
	IssuerID   int64       `json:"issuer_id" db:"issuer_id"`
	AssignerID *int64      `json:"assigner_id" db:"assigner_id"`
	Status     OrderStatus `json:"status" db:"status"`
	Lines      []OrderLine `json:"items"`
}

// MenuItem is the read-only view of a menu item used for order validation
type MenuItem struct {
	ID           int64   `json:"id" db:"id"`
	CoffeeShopID int64   `json:"coffee_shop_id" db:"coffee_shop_id"`
	Name         string  `json:"name" db:"name"`
	Description  string  `json:"description" db:"description"`
	Price        float64 `json:"price" db:"price"`
	Deleted      bool    `json:"deleted" db:"deleted"`
}

// RequestedItem is a menu item reference submitted with a new order
type RequestedItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// PlaceOrderRequest represents the request to place a new order
type PlaceOrderRequest struct {
	CustomerDetails CustomerDetails `json:"customer_details"`
	Items           []RequestedItem `json:"order_items"`
}

// PlaceOrderResponse represents the response after placing an order
type PlaceOrderResponse struct {
	ID              int64       `json:"id"`
	CustomerPhoneNo string      `json:"customer_phone_no"`
	Status          OrderStatus `json:"status"`
}

// UpdateStatusRequest represents a status change request
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignOrderRequest represents a chef assignment request
type AssignOrderRequest struct {
	ChefID int64 `json:"chef_id"`
}

// OrderListing is a paginated page of orders
type OrderListing struct {
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Size   int     `json:"size"`
	Orders []Order `json:"orders"`
}

// Validate validates the place order request
func (req *PlaceOrderRequest) Validate() error {
	if err := req.CustomerDetails.Validate(); err != nil {
		return err
	}
	return validateItems(req.Items)
}

// validateItems validates the requested items list
func validateItems(items []RequestedItem) error {
	if len(items) == 0 {
		return fmt.Errorf("order must contain at least one item")
	}
	for i, item := range items {
		if item.ID <= 0 {
			return fmt.Errorf("item %d: id must be positive", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be at least 1", i)
		}
	}
	return nil
}
