package report

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"order-service/internal/auth"
	"order-service/internal/logger"
	"order-service/internal/models"
	"order-service/internal/server"
)

const dateLayout = "2006-01-02"

// Handler serves the read-only report endpoints
type Handler struct {
	repo    Repository
	logger  *logger.Logger
	timeout time.Duration
}

// NewHandler creates a report handler; timeout bounds each report query
func NewHandler(repo Repository, log *logger.Logger, timeout time.Duration) *Handler {
	return &Handler{repo: repo, logger: log, timeout: timeout}
}

// RegisterRoutes mounts the report endpoints on an authenticated group
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	reports := group.Group("/reports/coffee-shops/:id", auth.RequireRole(models.RoleAdmin), h.requireShop)
	reports.GET("/customers-orders", h.CustomersOrders)
	reports.GET("/chefs-orders", h.ChefsOrders)
	reports.GET("/issuers-orders", h.IssuersOrders)
}

// requireShop rejects principals of another coffee shop
func (h *Handler) requireShop(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	shopID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || shopID <= 0 {
		server.WriteError(c, http.StatusBadRequest, "coffee shop id must be a positive integer")
		return
	}
	if shopID != principal.CoffeeShopID {
		h.logger.Debug("report_access_denied", "Coffee shop mismatch", server.RequestID(c), map[string]interface{}{
			"principal_shop": principal.CoffeeShopID,
			"target_shop":    shopID,
		})
		server.WriteError(c, http.StatusForbidden, "You are not allowed to access this coffee shop")
		return
	}
	c.Next()
}

// CustomersOrders handles GET .../customers-orders
func (h *Handler) CustomersOrders(c *gin.Context) {
	filter, ok := h.filter(c, "total_paid", "desc")
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	rows, err := h.repo.CustomersOrders(ctx, filter)
	if err != nil {
		server.RenderError(c, h.logger, "report_failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ChefsOrders handles GET .../chefs-orders
func (h *Handler) ChefsOrders(c *gin.Context) {
	filter, ok := h.filter(c, "", "asc")
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	rows, err := h.repo.ChefsOrders(ctx, filter)
	if err != nil {
		server.RenderError(c, h.logger, "report_failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// IssuersOrders handles GET .../issuers-orders
func (h *Handler) IssuersOrders(c *gin.Context) {
	filter, ok := h.filter(c, "", "asc")
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	rows, err := h.repo.IssuersOrders(ctx, filter)
	if err != nil {
		server.RenderError(c, h.logger, "report_failed", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) filter(c *gin.Context, defaultOrderBy, defaultSort string) (models.ReportFilter, bool) {
	principal, _ := auth.PrincipalFrom(c)

	from, err := parseDate(c, "from_date")
	if err != nil {
		server.WriteError(c, http.StatusBadRequest, err.Error())
		return models.ReportFilter{}, false
	}
	to, err := parseDate(c, "to_date")
	if err != nil {
		server.WriteError(c, http.StatusBadRequest, err.Error())
		return models.ReportFilter{}, false
	}
	if to.Before(from) {
		server.WriteError(c, http.StatusBadRequest, "to_date must not be before from_date")
		return models.ReportFilter{}, false
	}

	sort := strings.ToLower(c.DefaultQuery("sort", defaultSort))
	if sort != "asc" && sort != "desc" {
		server.WriteError(c, http.StatusBadRequest, "sort must be one of: asc, desc")
		return models.ReportFilter{}, false
	}

	return models.ReportFilter{
		CoffeeShopID: principal.CoffeeShopID,
		FromDate:     from,
		ToDate:       to,
		OrderBy:      c.DefaultQuery("order_by", defaultOrderBy),
		Descending:   sort == "desc",
	}, true
}

func (h *Handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func parseDate(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format", name)
	}
	return t, nil
}
