package order

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"order-service/internal/cache"
	"order-service/internal/logger"
	"order-service/internal/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListingKey builds the cache key of one listing page. The status filter is
// embedded exactly as the caller supplied it, spelling and order included, so
// "pending" and "PENDING" are cached separately.
func ListingKey(coffeeShopID int64, filter []string, page, size int) string {
	return fmt.Sprintf("orders:%d:%s:%d:%d", coffeeShopID, filterString(filter), page, size)
}

func filterString(filter []string) string {
	if len(filter) == 0 {
		return "all"
	}
	return strings.Join(filter, ",")
}

// parseFilter validates the raw status filter and returns the canonical
// statuses for the store query
func parseFilter(filter []string) ([]string, error) {
	statuses := make([]string, len(filter))
	for i, raw := range filter {
		status, err := models.ParseOrderStatus(raw)
		if err != nil {
			return nil, models.NewInvalidRequest(err.Error())
		}
		statuses[i] = string(status)
	}
	return statuses, nil
}

// ListOrders serves a page of the coffee shop's orders through the listing
// cache. Pages may be stale for up to the listing TTL after a write.
func (s *Service) ListOrders(ctx context.Context, coffeeShopID int64, filter []string, page, size int) (*models.OrderListing, error) {
	if page < 1 {
		return nil, models.NewInvalidRequest("page must be at least 1")
	}
	if size < 1 || size > MaxPageSize {
		return nil, models.NewInvalidRequest(fmt.Sprintf("size must be between 1 and %d", MaxPageSize))
	}
	statuses, err := parseFilter(filter)
	if err != nil {
		return nil, err
	}

	key := ListingKey(coffeeShopID, filter, page, size)
	ctx, span := s.tracer.Start(ctx, "order.list", trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()
	requestID := logger.RequestIDFrom(ctx)

	if listing, ok := s.cachedListing(ctx, key, requestID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return listing, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	orders, err := s.repo.ListOrders(storeCtx, coffeeShopID, statuses, size, (page-1)*size)
	if err != nil {
		return nil, s.fail(span, models.NewInternal("Failed to list orders", err))
	}
	total, err := s.repo.CountOrders(storeCtx, coffeeShopID, statuses)
	if err != nil {
		return nil, s.fail(span, models.NewInternal("Failed to count orders", err))
	}

	listing := &models.OrderListing{Total: total, Page: page, Size: size, Orders: orders}

	body, err := json.Marshal(listing)
	if err != nil {
		s.logger.Error("cache_write_failed", "Failed to encode listing", requestID, err, nil)
		return listing, nil
	}
	if res := s.listings.Set(ctx, key, body, s.opts.ListingTTL); res.Degraded() {
		s.logger.Error("cache_write_failed", "Listing was not cached", requestID, res.Err, map[string]interface{}{
			"key": key,
		})
	}

	return listing, nil
}

// cachedListing returns the cached page; any cache problem counts as a miss
func (s *Service) cachedListing(ctx context.Context, key, requestID string) (*models.OrderListing, bool) {
	res := s.listings.Get(ctx, key)
	s.recorder.ListingCache(res.Outcome.String())

	switch res.Outcome {
	case cache.OutcomeHit:
		var listing models.OrderListing
		if err := json.Unmarshal(res.Value, &listing); err != nil {
			s.logger.Error("cache_read_failed", "Discarding unreadable cached listing", requestID, err, map[string]interface{}{
				"key": key,
			})
			return nil, false
		}
		return &listing, true
	case cache.OutcomeDegraded:
		s.logger.Error("cache_read_failed", "Cache unavailable, reading from store", requestID, res.Err, map[string]interface{}{
			"key": key,
		})
	}
	return nil, false
}
