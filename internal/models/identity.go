package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the staff role carried by an authenticated principal
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleCashier       Role = "CASHIER"
	RoleChef          Role = "CHEF"
	RoleOrderReceiver Role = "ORDER_RECEIVER"
)

// ParseRole converts a raw claim value into a Role
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleAdmin, RoleCashier, RoleChef, RoleOrderReceiver:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Principal is the authenticated caller of an operation
type Principal struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	CoffeeShopID int64  `json:"coffee_shop_id"`
	BranchID     int64  `json:"branch_id"`
	Token        string `json:"-"`
}

// CustomerDetails identifies a customer when placing an order
type CustomerDetails struct {
	Name    string `json:"name"`
	PhoneNo string `json:"phone_no"`
}

// Validate validates the customer details
func (d CustomerDetails) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("customer_details.name is required")
	}
	if len(d.Name) > 100 {
		return fmt.Errorf("customer_details.name must not exceed 100 characters")
	}
	if strings.TrimSpace(d.PhoneNo) == "" {
		return fmt.Errorf("customer_details.phone_no is required")
	}
	return nil
}

// Customer is a customer record owned by the identity service
type Customer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PhoneNo      string    `json:"phone_no"`
	CoffeeShopID int64     `json:"coffee_shop_id"`
	Created      time.Time `json:"created"`
}

// User is a staff account owned by the identity service
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	PhoneNo   string `json:"phone_no"`
	Role      Role   `json:"role"`
	BranchID  int64  `json:"branch_id"`
}
