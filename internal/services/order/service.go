package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"order-service/internal/cache"
	"order-service/internal/logger"
	"order-service/internal/models"
)

// CustomerResolver finds or creates the customer an order is placed for
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, token string, details models.CustomerDetails) (*models.Customer, error)
}

// UserLookup finds staff users by id
type UserLookup interface {
	FindUser(ctx context.Context, token string, userID int64) (*models.User, error)
}

// Recorder receives the engine's business counters
type Recorder interface {
	OrderPlaced()
	StatusChanged(status string)
	ListingCache(outcome string)
	Notification(outcome string)
}

// Options tunes the engine
type Options struct {
	ListingTTL   time.Duration
	StoreTimeout time.Duration
}

// Service is the order lifecycle engine
type Service struct {
	repo      Repository
	validator *MenuValidator
	customers CustomerResolver
	users     UserLookup
	listings  cache.Gateway
	notifier  *Notifier
	recorder  Recorder
	logger    *logger.Logger
	tracer    trace.Tracer
	opts      Options
	now       func() time.Time
}

// NewService wires the engine from its collaborators
func NewService(
	repo Repository,
	customers CustomerResolver,
	users UserLookup,
	listings cache.Gateway,
	notifier *Notifier,
	recorder Recorder,
	log *logger.Logger,
	opts Options,
) *Service {
	return &Service{
		repo:      repo,
		validator: NewMenuValidator(repo),
		customers: customers,
		users:     users,
		listings:  listings,
		notifier:  notifier,
		recorder:  recorder,
		logger:    log,
		tracer:    otel.Tracer("order-service/order"),
		opts:      opts,
		now:       time.Now,
	}
}

// PlaceOrder validates the items, resolves the customer, stores the order with
// aggregated lines in one transaction and then emits a best-effort notification.
func (s *Service) PlaceOrder(ctx context.Context, principal *models.Principal, req *models.PlaceOrderRequest) (*models.PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.place", trace.WithAttributes(
		attribute.Int64("coffee_shop.id", principal.CoffeeShopID),
		attribute.Int("order.items", len(req.Items)),
	))
	defer span.End()
	requestID := logger.RequestIDFrom(ctx)

	storeCtx, cancel := s.storeContext(ctx)
	err := s.validator.Validate(storeCtx, principal.CoffeeShopID, req.Items)
	cancel()
	if err != nil {
		return nil, s.fail(span, err)
	}

	customer, err := s.customers.ResolveCustomer(ctx, principal.Token, req.CustomerDetails)
	if err != nil {
		return nil, s.fail(span, err)
	}

	order := &models.Order{
		IssueDate:  s.now().UTC(),
		CustomerID: customer.ID,
		IssuerID:   principal.ID,
		Status:     models.StatusPending,
		Lines:      AggregateItems(req.Items),
	}

	storeCtx, cancel = s.storeContext(ctx)
	err = s.repo.CreateOrder(storeCtx, order)
	cancel()
	if err != nil {
		s.logger.Error("order_creation_failed", "Failed to store order", requestID, err, map[string]interface{}{
			"customer_id": customer.ID,
			"issuer_id":   principal.ID,
		})
		return nil, s.fail(span, models.NewInternal("Failed to place order", err))
	}

	s.recorder.OrderPlaced()
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	s.logger.Info("order_placed", "Order placed", requestID, map[string]interface{}{
		"order_id":       order.ID,
		"customer_id":    customer.ID,
		"issuer_id":      principal.ID,
		"coffee_shop_id": principal.CoffeeShopID,
		"lines":          len(order.Lines),
	})

	// the order is committed; a client disconnect must not drop the notification
	event := models.NewOrderPlacedEvent(order, principal.CoffeeShopID, s.now())
	delivery := s.notifier.Notify(context.WithoutCancel(ctx), event)
	s.recorder.Notification(string(delivery.Outcome))
	if delivery.Outcome == DeliveryDegraded {
		s.logger.Error("notification_failed", "Order notification was not published", requestID, delivery.Err, map[string]interface{}{
			"order_id": order.ID,
		})
	}

	return &models.PlaceOrderResponse{
		ID:              order.ID,
		CustomerPhoneNo: customer.PhoneNo,
		Status:          order.Status,
	}, nil
}

// GetOrder returns one order of the coffee shop
func (s *Service) GetOrder(ctx context.Context, orderID, coffeeShopID int64) (*models.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.get", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	order, err := s.repo.GetOrder(storeCtx, orderID, coffeeShopID)
	if errors.Is(err, ErrNotFound) {
		return nil, s.fail(span, models.NewOrderNotFound(orderID))
	}
	if err != nil {
		return nil, s.fail(span, models.NewInternal("Failed to load order", err))
	}
	return order, nil
}

// UpdateOrderStatus applies the role gate and persists the new status.
// Listings are not invalidated and no notification is sent.
func (s *Service) UpdateOrderStatus(ctx context.Context, principal *models.Principal, orderID int64, target models.OrderStatus) error {
	ctx, span := s.tracer.Start(ctx, "order.update_status", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", string(target)),
	))
	defer span.End()

	if err := CheckTransition(target, principal.Role); err != nil {
		return s.fail(span, err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	err := s.repo.UpdateStatus(storeCtx, orderID, principal.CoffeeShopID, target)
	if errors.Is(err, ErrNotFound) {
		return s.fail(span, models.NewOrderNotFound(orderID))
	}
	if err != nil {
		return s.fail(span, models.NewInternal("Failed to update order status", err))
	}

	s.recorder.StatusChanged(string(target))
	s.logger.Info("order_status_changed", "Order status changed", logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id":   orderID,
		"new_status": target,
		"changed_by": principal.ID,
		"role":       principal.Role,
	})
	return nil
}

// AssignOrder makes chefID responsible for the order. Reassignment is allowed.
func (s *Service) AssignOrder(ctx context.Context, principal *models.Principal, orderID, chefID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.assign", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("chef.id", chefID),
	))
	defer span.End()

	if _, err := s.GetOrder(ctx, orderID, principal.CoffeeShopID); err != nil {
		return s.fail(span, err)
	}

	user, err := s.users.FindUser(ctx, principal.Token, chefID)
	if err != nil {
		return s.fail(span, err)
	}
	if user.Role != models.RoleChef {
		return s.fail(span, models.NewInvalidAssignment(chefID))
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	err = s.repo.UpdateAssigner(storeCtx, orderID, principal.CoffeeShopID, chefID)
	if errors.Is(err, ErrNotFound) {
		return s.fail(span, models.NewOrderNotFound(orderID))
	}
	if err != nil {
		return s.fail(span, models.NewInternal("Failed to assign order", err))
	}

	s.logger.Info("order_assigned", "Order assigned to chef", logger.RequestIDFrom(ctx), map[string]interface{}{
		"order_id":    orderID,
		"chef_id":     chefID,
		"assigned_by": principal.ID,
	})
	return nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
