package order

import (
	"context"
	"fmt"

	"order-service/internal/models"
)

// MenuItemFinder looks up the active menu items of a coffee shop
type MenuItemFinder interface {
	FindActiveMenuItems(ctx context.Context, coffeeShopID int64, ids []int64) (map[int64]models.MenuItem, error)
}

// MenuValidator checks requested items against the coffee shop's menu
type MenuValidator struct {
	finder MenuItemFinder
}

// NewMenuValidator creates a validator backed by finder
func NewMenuValidator(finder MenuItemFinder) *MenuValidator {
	return &MenuValidator{finder: finder}
}

// Validate fails with InvalidOrder for an empty or malformed list and with
// ItemNotFound for the first item, in request order, that is missing,
// soft-deleted or owned by another coffee shop.
func (v *MenuValidator) Validate(ctx context.Context, coffeeShopID int64, items []models.RequestedItem) error {
	if len(items) == 0 {
		return models.NewInvalidOrder("Order must contain at least one item")
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return models.NewInvalidOrder(fmt.Sprintf("Quantity of item %d must be at least 1", item.ID))
		}
		if !seen[item.ID] {
			seen[item.ID] = true
			ids = append(ids, item.ID)
		}
	}

	found, err := v.finder.FindActiveMenuItems(ctx, coffeeShopID, ids)
	if err != nil {
		return models.NewInternal("Failed to validate menu items", err)
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return models.NewItemNotFound(id)
		}
	}
	return nil
}

// AggregateItems merges duplicate item ids by summing their quantities.
// Lines keep the order in which each id first appeared.
func AggregateItems(items []models.RequestedItem) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(items))
	index := make(map[int64]int, len(items))

	for _, item := range items {
		if i, ok := index[item.ID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(lines)
		lines = append(lines, models.OrderLine{ItemID: item.ID, Quantity: item.Quantity})
	}
	return lines
}
