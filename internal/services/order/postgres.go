package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"order-service/internal/database"
	"order-service/internal/models"
)

// ErrNotFound is returned by the repository when no row matched
var ErrNotFound = errors.New("not found")

// Repository is the persistence port of the order engine
type Repository interface {
	FindActiveMenuItems(ctx context.Context, coffeeShopID int64, ids []int64) (map[int64]models.MenuItem, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID, coffeeShopID int64) (*models.Order, error)
	ListOrders(ctx context.Context, coffeeShopID int64, statuses []string, limit, offset int) ([]models.Order, error)
	CountOrders(ctx context.Context, coffeeShopID int64, statuses []string) (int, error)
	UpdateStatus(ctx context.Context, orderID, coffeeShopID int64, status models.OrderStatus) error
	UpdateAssigner(ctx context.Context, orderID, coffeeShopID, assignerID int64) error
}

// PostgresRepository implements Repository with pgx
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository creates a repository on top of a pgx pool or any Querier
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindActiveMenuItems returns the non-deleted items of the coffee shop among ids
func (r *PostgresRepository) FindActiveMenuItems(ctx context.Context, coffeeShopID int64, ids []int64) (map[int64]models.MenuItem, error) {
	rows, err := r.db.Query(ctx, database.FindActiveMenuItemsSQL, ids, coffeeShopID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64]models.MenuItem, len(ids))
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(&item.ID, &item.CoffeeShopID, &item.Name, &item.Description, &item.Price, &item.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items[item.ID] = item
	}

	return items, rows.Err()
}

// CreateOrder inserts the order and its lines in one transaction and sets order.ID
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, database.InsertOrderSQL,
			order.IssueDate, order.CustomerID, order.IssuerID, string(order.Status),
		).Scan(&order.ID)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range order.Lines {
			order.Lines[i].OrderID = order.ID
			line := order.Lines[i]
			if _, err := tx.Exec(ctx, database.InsertOrderItemSQL, order.ID, line.ItemID, line.Quantity); err != nil {
				return fmt.Errorf("failed to insert order item %d: %w", line.ItemID, err)
			}
		}
		return nil
	})
}

// GetOrder loads one order with its lines
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID, coffeeShopID int64) (*models.Order, error) {
	row := r.db.QueryRow(ctx, database.GetOrderSQL, orderID, coffeeShopID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	orders := []models.Order{*order}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrders returns one page of the coffee shop's orders, newest first
func (r *PostgresRepository) ListOrders(ctx context.Context, coffeeShopID int64, statuses []string, limit, offset int) ([]models.Order, error) {
	if statuses == nil {
		statuses = []string{}
	}

	rows, err := r.db.Query(ctx, database.ListOrdersSQL, coffeeShopID, statuses, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	rows.Close()

	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CountOrders counts the coffee shop's orders matching statuses
func (r *PostgresRepository) CountOrders(ctx context.Context, coffeeShopID int64, statuses []string) (int, error) {
	if statuses == nil {
		statuses = []string{}
	}

	var total int
	if err := r.db.QueryRow(ctx, database.CountOrdersSQL, coffeeShopID, statuses).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

// UpdateStatus sets the order status
func (r *PostgresRepository) UpdateStatus(ctx context.Context, orderID, coffeeShopID int64, status models.OrderStatus) error {
	tag, err := r.db.Exec(ctx, database.UpdateOrderStatusSQL, string(status), orderID, coffeeShopID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAssigner sets the chef responsible for the order
func (r *PostgresRepository) UpdateAssigner(ctx context.Context, orderID, coffeeShopID, assignerID int64) error {
	tag, err := r.db.Exec(ctx, database.UpdateOrderAssignerSQL, assignerID, orderID, coffeeShopID)
	if err != nil {
		return fmt.Errorf("failed to update order assigner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) attachLines(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.Query(ctx, database.GetOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.OrderID, &line.ItemID, &line.Quantity); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if i, ok := index[line.OrderID]; ok {
			orders[i].Lines = append(orders[i].Lines, line)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order  models.Order
		status string
	)
	if err := row.Scan(&order.ID, &order.IssueDate, &order.CustomerID, &order.IssuerID, &order.AssignerID, &status); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatus(status)
	return &order, nil
}
