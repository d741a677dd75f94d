package order

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"order-service/internal/auth"
	"order-service/internal/logger"
	"order-service/internal/models"
	"order-service/internal/server"
)

// Handler handles HTTP requests for the order engine
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// RegisterRoutes mounts the order endpoints on group. The group must already
// run auth.Authenticate.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	orders := group.Group("/orders")
	orders.POST("", auth.RequireRole(models.RoleOrderReceiver, models.RoleCashier, models.RoleAdmin), h.PlaceOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PATCH("/:id/status", auth.RequireRole(models.RoleCashier, models.RoleChef), h.UpdateStatus)
	orders.PATCH("/:id/assign", auth.RequireRole(models.RoleAdmin, models.RoleCashier), h.AssignOrder)
}

// PlaceOrder handles POST /orders requests
func (h *Handler) PlaceOrder(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	requestID := server.RequestID(c)

	var req models.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		server.WriteError(c, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.Error("validation_failed", "Request validation failed", requestID, err, map[string]interface{}{
			"items": len(req.Items),
		})
		server.RenderError(c, h.logger, "validation_failed", models.NewInvalidOrder(err.Error()))
		return
	}

	response, err := h.service.PlaceOrder(c.Request.Context(), principal, &req)
	if err != nil {
		server.RenderError(c, h.logger, "order_creation_failed", err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListOrders handles GET /orders?status=...&page=...&size=...
func (h *Handler) ListOrders(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		server.WriteError(c, http.StatusBadRequest, "page must be an integer")
		return
	}
	size, err := queryInt(c, "size", DefaultPageSize)
	if err != nil {
		server.WriteError(c, http.StatusBadRequest, "size must be an integer")
		return
	}

	listing, err := h.service.ListOrders(c.Request.Context(), principal.CoffeeShopID, c.QueryArray("status"), page, size)
	if err != nil {
		server.RenderError(c, h.logger, "order_listing_failed", err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// GetOrder handles GET /orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), orderID, principal.CoffeeShopID)
	if err != nil {
		server.RenderError(c, h.logger, "order_lookup_failed", err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateStatus handles PATCH /orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.WriteError(c, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	target, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		server.WriteError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdateOrderStatus(c.Request.Context(), principal, orderID, target); err != nil {
		server.RenderError(c, h.logger, "order_status_update_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": orderID, "status": target})
}

// AssignOrder handles PATCH /orders/:id/assign
func (h *Handler) AssignOrder(c *gin.Context) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		server.WriteError(c, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req models.AssignOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChefID <= 0 {
		server.WriteError(c, http.StatusBadRequest, "chef_id must be a positive integer")
		return
	}

	if err := h.service.AssignOrder(c.Request.Context(), principal, orderID, req.ChefID); err != nil {
		server.RenderError(c, h.logger, "order_assignment_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": orderID, "assigner_id": req.ChefID})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		server.WriteError(c, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
