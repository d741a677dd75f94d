package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"order-service/internal/config"
	"order-service/internal/logger"
	"order-service/internal/models"
)

// Client talks to the user management service for customers and staff users
type Client struct {
	baseURL      string
	customerPath string
	userPath     string
	httpClient   *http.Client
	logger       *logger.Logger
}

// NewClient creates an identity client; every request is bounded by timeout
func NewClient(cfg config.IdentityConfig, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		customerPath: cfg.CustomerPath,
		userPath:     strings.TrimRight(cfg.UserPath, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       log,
	}
}

// ResolveCustomer returns the customer with the given phone in the caller's
// coffee shop, creating it when it does not exist yet.
func (c *Client) ResolveCustomer(ctx context.Context, token string, details models.CustomerDetails) (*models.Customer, error) {
	payload, err := json.Marshal(details)
	if err != nil {
		return nil, models.NewInternal("Failed to encode customer details", err)
	}

	var customer models.Customer
	status, detail, err := c.do(ctx, http.MethodPost, c.baseURL+c.customerPath, token, payload, &customer)
	if err != nil {
		c.logger.Error("customer_resolution_failed", "Customer service call failed", logger.RequestIDFrom(ctx), err, nil)
		return nil, models.NewCustomerResolutionFailed(http.StatusInternalServerError, "Customer service is unavailable")
	}
	if status >= http.StatusBadRequest {
		c.logger.Error("customer_resolution_failed", "Customer service rejected the request", logger.RequestIDFrom(ctx), nil, map[string]interface{}{
			"status": status,
			"detail": detail,
		})
		return nil, models.NewCustomerResolutionFailed(status, detail)
	}

	return &customer, nil
}

// FindUser returns the staff user with the given id
func (c *Client) FindUser(ctx context.Context, token string, userID int64) (*models.User, error) {
	var user models.User
	url := fmt.Sprintf("%s%s/%d", c.baseURL, c.userPath, userID)

	status, detail, err := c.do(ctx, http.MethodGet, url, token, nil, &user)
	if err != nil {
		c.logger.Error("user_lookup_failed", "User service call failed", logger.RequestIDFrom(ctx), err, map[string]interface{}{"user_id": userID})
		return nil, models.NewUserLookupFailed(http.StatusInternalServerError, "User service is unavailable")
	}
	if status >= http.StatusBadRequest {
		if status == http.StatusNotFound {
			detail = fmt.Sprintf("User %d not found", userID)
		}
		return nil, models.NewUserLookupFailed(status, detail)
	}

	return &user, nil
}

// do performs one request and decodes a successful body into out. A non-2xx
// answer is reported through status and detail with a nil error.
func (c *Client) do(ctx context.Context, method, url, token string, payload []byte, out interface{}) (int, string, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, errorDetail(raw, resp.Status), nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return 0, "", fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, "", nil
}

// errorDetail extracts the "detail" message the user service puts in error bodies
func errorDetail(raw []byte, fallback string) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return fallback
}
