package models

import "time"

// ReportFilter bounds a report to a coffee shop and an issue date range
type ReportFilter struct {
	CoffeeShopID int64
	FromDate     time.Time
	ToDate       time.Time
	OrderBy      string
	Descending   bool
}

// CustomerOrdersRow aggregates orders placed for one customer
type CustomerOrdersRow struct {
	CustomerID  int64   `json:"customer_id"`
	TotalOrders int     `json:"total_orders"`
	TotalPaid   float64 `json:"total_paid"`
}

// ChefOrdersRow aggregates orders served by one chef
type ChefOrdersRow struct {
	ChefID       int64 `json:"chef_id"`
	ServedOrders int   `json:"served_orders"`
}

// IssuerOrdersRow aggregates orders issued by one staff member
type IssuerOrdersRow struct {
	IssuerID     int64 `json:"issuer_id"`
	IssuedOrders int   `json:"issued_orders"`
}
