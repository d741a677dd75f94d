package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"order-service/internal/database"
	"order-service/internal/models"
)

// Report order-by columns accepted from callers
var (
	CustomerColumns = []string{"total_paid", "total_orders"}
	ChefColumns     = []string{"served_orders"}
	IssuerColumns   = []string{"issued_orders"}
)

// Repository runs the report aggregations
type Repository interface {
	CustomersOrders(ctx context.Context, filter models.ReportFilter) ([]models.CustomerOrdersRow, error)
	ChefsOrders(ctx context.Context, filter models.ReportFilter) ([]models.ChefOrdersRow, error)
	IssuersOrders(ctx context.Context, filter models.ReportFilter) ([]models.IssuerOrdersRow, error)
}

// PostgresRepository implements Repository with pgx
type PostgresRepository struct {
	db database.Querier
}

// NewPostgresRepository creates a report repository
func NewPostgresRepository(db database.Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CustomersOrders counts orders and sums what each customer paid
func (r *PostgresRepository) CustomersOrders(ctx context.Context, filter models.ReportFilter) ([]models.CustomerOrdersRow, error) {
	rows, err := r.query(ctx, database.CustomersOrdersReportSQL, CustomerColumns, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.CustomerOrdersRow{}
	for rows.Next() {
		var row models.CustomerOrdersRow
		if err := rows.Scan(&row.CustomerID, &row.TotalOrders, &row.TotalPaid); err != nil {
			return nil, fmt.Errorf("failed to scan customer report row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ChefsOrders counts the orders assigned to each chef
func (r *PostgresRepository) ChefsOrders(ctx context.Context, filter models.ReportFilter) ([]models.ChefOrdersRow, error) {
	rows, err := r.query(ctx, database.ChefsOrdersReportSQL, ChefColumns, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.ChefOrdersRow{}
	for rows.Next() {
		var row models.ChefOrdersRow
		if err := rows.Scan(&row.ChefID, &row.ServedOrders); err != nil {
			return nil, fmt.Errorf("failed to scan chef report row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// IssuersOrders counts the orders issued by each staff member
func (r *PostgresRepository) IssuersOrders(ctx context.Context, filter models.ReportFilter) ([]models.IssuerOrdersRow, error) {
	rows, err := r.query(ctx, database.IssuersOrdersReportSQL, IssuerColumns, filter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.IssuerOrdersRow{}
	for rows.Next() {
		var row models.IssuerOrdersRow
		if err := rows.Scan(&row.IssuerID, &row.IssuedOrders); err != nil {
			return nil, fmt.Errorf("failed to scan issuer report row: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) query(ctx context.Context, base string, allowed []string, filter models.ReportFilter) (pgx.Rows, error) {
	clause, err := orderClause(filter, allowed)
	if err != nil {
		return nil, err
	}

	// to_date is inclusive; the query bound is exclusive
	upper := filter.ToDate.AddDate(0, 0, 1)
	rows, err := r.db.Query(ctx, base+clause, filter.CoffeeShopID, filter.FromDate, upper)
	if err != nil {
		return nil, fmt.Errorf("failed to run report: %w", err)
	}
	return rows, nil
}

// orderClause renders ORDER BY from a whitelisted column; no column means no ordering
func orderClause(filter models.ReportFilter, allowed []string) (string, error) {
	if filter.OrderBy == "" {
		return "", nil
	}
	for _, column := range allowed {
		if column == filter.OrderBy {
			if filter.Descending {
				return "\n\t\tORDER BY " + column + " DESC", nil
			}
			return "\n\t\tORDER BY " + column + " ASC", nil
		}
	}
	return "", models.NewInvalidRequest(fmt.Sprintf("order_by must be one of: %v", allowed))
}
