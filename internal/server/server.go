package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"order-service/internal/logger"
	"order-service/internal/metrics"
	"order-service/internal/models"
)

const requestIDKey = "request_id"

// NewRouter creates a gin engine with recovery, request ids, tracing, logging and latency metrics
func NewRouter(log *logger.Logger, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(withLogging(log, m))
	return router
}

// withLogging assigns a request id and logs the start and end of every request
func withLogging(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	tracer := otel.Tracer("order-service/http")

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		ctx, span := tracer.Start(logger.WithRequestID(c.Request.Context(), requestID), c.Request.Method+" "+c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		log.Debug("request_started",
			fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      c.Request.Method,
				"path":        c.Request.URL.Path,
				"remote_addr": c.ClientIP(),
				"user_agent":  c.Request.UserAgent(),
			})

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if m != nil {
			m.ObserveRequest(c.Request.Method, c.FullPath(), status, duration)
		}

		log.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", c.Request.Method, c.Request.URL.Path, status),
			requestID,
			map[string]interface{}{
				"method":      c.Request.Method,
				"path":        c.Request.URL.Path,
				"status_code": status,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// RequestID returns the id assigned to the current request
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// WriteError aborts the request with the service error body
func WriteError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": RequestID(c),
	})
}

// RenderError writes err with the status of its domain kind; anything else is a 500
func RenderError(c *gin.Context, log *logger.Logger, action string, err error) {
	var domainErr *models.Error
	if errors.As(err, &domainErr) {
		if domainErr.Status >= http.StatusInternalServerError {
			log.Error(action, domainErr.Message, RequestID(c), err, nil)
		}
		WriteError(c, domainErr.Status, domainErr.Message)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		log.Error(action, "Request timed out", RequestID(c), err, nil)
		WriteError(c, http.StatusGatewayTimeout, "Request timed out")
		return
	}

	log.Error(action, "Unexpected failure", RequestID(c), err, nil)
	WriteError(c, http.StatusInternalServerError, "Internal server error")
}

// Check reports the health of one dependency
type Check struct {
	Name     string
	Critical bool
	Ping     func(ctx context.Context) error
}

// HealthHandler answers GET /health; only critical checks turn it unhealthy
func HealthHandler(service string, timeout time.Duration, checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		healthy := true
		dependencies := make(map[string]string, len(checks))
		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				dependencies[check.Name] = err.Error()
				if check.Critical {
					healthy = false
				}
				continue
			}
			dependencies[check.Name] = "ok"
		}

		response := gin.H{
			"status":       "ok",
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"service":      service,
			"healthy":      healthy,
			"dependencies": dependencies,
		}

		if !healthy {
			response["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		c.JSON(http.StatusOK, response)
	}
}
