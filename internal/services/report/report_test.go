package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-service/internal/auth"
	"order-service/internal/logger"
	"order-service/internal/models"
)

func TestPostgresRepository_CustomersOrders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`GROUP BY o.customer_id\s+ORDER BY total_paid DESC`).
		WithArgs(int64(1), from, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(pgxmock.NewRows([]string{"customer_id", "total_orders", "total_paid"}).
			AddRow(int64(42), 3, 17.5).
			AddRow(int64(43), 1, 3.5))

	repo := NewPostgresRepository(mock)
	rows, err := repo.CustomersOrders(context.Background(), models.ReportFilter{
		CoffeeShopID: 1, FromDate: from, ToDate: to, OrderBy: "total_paid", Descending: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.CustomerOrdersRow{
		{CustomerID: 42, TotalOrders: 3, TotalPaid: 17.5},
		{CustomerID: 43, TotalOrders: 1, TotalPaid: 3.5},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RejectsUnknownColumn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	_, err = repo.ChefsOrders(context.Background(), models.ReportFilter{OrderBy: "id; DROP TABLE orders"})

	assert.True(t, models.IsKind(err, models.KindInvalidRequest))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderClause(t *testing.T) {
	clause, err := orderClause(models.ReportFilter{}, ChefColumns)
	require.NoError(t, err)
	assert.Empty(t, clause)

	clause, err = orderClause(models.ReportFilter{OrderBy: "issued_orders"}, IssuerColumns)
	require.NoError(t, err)
	assert.Contains(t, clause, "ORDER BY issued_orders ASC")
}

type stubRepo struct {
	filter models.ReportFilter
}

func (s *stubRepo) CustomersOrders(_ context.Context, filter models.ReportFilter) ([]models.CustomerOrdersRow, error) {
	s.filter = filter
	return []models.CustomerOrdersRow{{CustomerID: 42, TotalOrders: 2, TotalPaid: 7}}, nil
}

func (s *stubRepo) ChefsOrders(_ context.Context, filter models.ReportFilter) ([]models.ChefOrdersRow, error) {
	s.filter = filter
	return []models.ChefOrdersRow{}, nil
}

func (s *stubRepo) IssuersOrders(_ context.Context, filter models.ReportFilter) ([]models.IssuerOrdersRow, error) {
	s.filter = filter
	return []models.IssuerOrdersRow{{IssuerID: 3, IssuedOrders: 5}}, nil
}

func newRouter(repo Repository, p *models.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("", func(c *gin.Context) {
		auth.SetPrincipal(c, p)
		c.Next()
	})
	NewHandler(repo, logger.NewNop(), time.Second).RegisterRoutes(group)
	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler_Reports(t *testing.T) {
	repo := &stubRepo{}
	admin := &models.Principal{ID: 1, Role: models.RoleAdmin, CoffeeShopID: 1}
	router := newRouter(repo, admin)

	w := get(router, "/reports/coffee-shops/1/customers-orders?from_date=2026-01-01&to_date=2026-01-31")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "total_paid", repo.filter.OrderBy)
	assert.True(t, repo.filter.Descending)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), repo.filter.ToDate)

	var rows []models.CustomerOrdersRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, 1)

	w = get(router, "/reports/coffee-shops/1/chefs-orders?from_date=2026-01-01&to_date=2026-01-31")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Empty(t, repo.filter.OrderBy)
	assert.False(t, repo.filter.Descending)

	w = get(router, "/reports/coffee-shops/1/issuers-orders?from_date=2026-01-01&to_date=2026-01-31&order_by=issued_orders&sort=desc")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "issued_orders", repo.filter.OrderBy)
	assert.True(t, repo.filter.Descending)
}

func TestHandler_ReportRejections(t *testing.T) {
	tests := []struct {
		name       string
		principal  *models.Principal
		path       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "non admin",
			principal:  &models.Principal{Role: models.RoleCashier, CoffeeShopID: 1},
			path:       "/reports/coffee-shops/1/customers-orders?from_date=2026-01-01&to_date=2026-01-02",
			wantStatus: http.StatusForbidden,
			wantError:  "You do not have the necessary permissions",
		},
		{
			name:       "other coffee shop",
			principal:  &models.Principal{Role: models.RoleAdmin, CoffeeShopID: 2},
			path:       "/reports/coffee-shops/1/customers-orders?from_date=2026-01-01&to_date=2026-01-02",
			wantStatus: http.StatusForbidden,
			wantError:  "You are not allowed to access this coffee shop",
		},
		{
			name:       "missing dates",
			principal:  &models.Principal{Role: models.RoleAdmin, CoffeeShopID: 1},
			path:       "/reports/coffee-shops/1/customers-orders",
			wantStatus: http.StatusBadRequest,
			wantError:  "from_date is required",
		},
		{
			name:       "inverted range",
			principal:  &models.Principal{Role: models.RoleAdmin, CoffeeShopID: 1},
			path:       "/reports/coffee-shops/1/issuers-orders?from_date=2026-02-01&to_date=2026-01-01",
			wantStatus: http.StatusBadRequest,
			wantError:  "to_date must not be before from_date",
		},
		{
			name:       "bad sort",
			principal:  &models.Principal{Role: models.RoleAdmin, CoffeeShopID: 1},
			path:       "/reports/coffee-shops/1/chefs-orders?from_date=2026-01-01&to_date=2026-01-02&sort=up",
			wantStatus: http.StatusBadRequest,
			wantError:  "sort must be one of: asc, desc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newRouter(&stubRepo{}, tt.principal), tt.path)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}
