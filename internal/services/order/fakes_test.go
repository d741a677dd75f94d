package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"order-service/internal/cache"
	"order-service/internal/logger"
	"order-service/internal/models"
)

type memoryRepo struct {
	mu      sync.Mutex
	menu    map[int64]models.MenuItem
	orders  map[int64]*models.Order
	shopOf  map[int64]int64
	nextID  int64
	created int
	failOn  string
}

func newMemoryRepo(items ...models.MenuItem) *memoryRepo {
	r := &memoryRepo{
		menu:   make(map[int64]models.MenuItem),
		orders: make(map[int64]*models.Order),
		shopOf: make(map[int64]int64),
	}
	for _, item := range items {
		r.menu[item.ID] = item
	}
	return r
}

func (r *memoryRepo) FindActiveMenuItems(_ context.Context, coffeeShopID int64, ids []int64) (map[int64]models.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "menu" {
		return nil, errors.New("connection refused")
	}
	found := make(map[int64]models.MenuItem)
	for _, id := range ids {
		item, ok := r.menu[id]
		if ok && !item.Deleted && item.CoffeeShopID == coffeeShopID {
			found[id] = item
		}
	}
	return found, nil
}

func (r *memoryRepo) CreateOrder(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "create" {
		return errors.New("insert failed")
	}
	r.nextID++
	r.created++
	order.ID = r.nextID
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
	}
	stored := *order
	stored.Lines = append([]models.OrderLine(nil), order.Lines...)
	r.orders[order.ID] = &stored
	if len(order.Lines) > 0 {
		r.shopOf[order.ID] = r.menu[order.Lines[0].ItemID].CoffeeShopID
	}
	return nil
}

func (r *memoryRepo) GetOrder(_ context.Context, orderID, coffeeShopID int64) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || r.shopOf[orderID] != coffeeShopID {
		return nil, ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *memoryRepo) ListOrders(_ context.Context, coffeeShopID int64, statuses []string, limit, offset int) ([]models.Order, error) {
	matched := r.matching(coffeeShopID, statuses)
	if offset >= len(matched) {
		return []models.Order{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *memoryRepo) CountOrders(_ context.Context, coffeeShopID int64, statuses []string) (int, error) {
	return len(r.matching(coffeeShopID, statuses)), nil
}

func (r *memoryRepo) matching(coffeeShopID int64, statuses []string) []models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for id, order := range r.orders {
		if r.shopOf[id] != coffeeShopID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, string(order.Status)) {
			continue
		}
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memoryRepo) UpdateStatus(_ context.Context, orderID, coffeeShopID int64, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || r.shopOf[orderID] != coffeeShopID {
		return ErrNotFound
	}
	order.Status = status
	return nil
}

func (r *memoryRepo) UpdateAssigner(_ context.Context, orderID, coffeeShopID, assignerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || r.shopOf[orderID] != coffeeShopID {
		return ErrNotFound
	}
	order.AssignerID = &assignerID
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

type stubCustomers struct {
	customer *models.Customer
	err      error
	calls    int
}

func (s *stubCustomers) ResolveCustomer(_ context.Context, _ string, details models.CustomerDetails) (*models.Customer, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.customer != nil {
		return s.customer, nil
	}
	return &models.Customer{ID: 42, Name: details.Name, PhoneNo: details.PhoneNo}, nil
}

type stubUsers struct {
	users map[int64]*models.User
	err   error
}

func (s *stubUsers) FindUser(_ context.Context, _ string, userID int64) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[userID]
	if !ok {
		return nil, models.NewUserLookupFailed(404, "User not found")
	}
	return user, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	err       error
	published [][]byte
	queues    []string
}

func (p *recordingPublisher) PublishToQueue(ctx context.Context, queue string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.queues = append(p.queues, queue)
	p.published = append(p.published, body)
	return nil
}

type countingRecorder struct {
	mu            sync.Mutex
	placed        int
	statuses      map[string]int
	cache         map[string]int
	notifications map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		statuses:      make(map[string]int),
		cache:         make(map[string]int),
		notifications: make(map[string]int),
	}
}

func (r *countingRecorder) OrderPlaced() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed++
}

func (r *countingRecorder) StatusChanged(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[status]++
}

func (r *countingRecorder) ListingCache(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[outcome]++
}

func (r *countingRecorder) Notification(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[outcome]++
}

// mapCache is an in-process Gateway without expiry
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	down    bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) cache.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return cache.Result{Outcome: cache.OutcomeDegraded, Err: models.NewCacheUnavailable(errors.New("dial tcp: refused"))}
	}
	value, ok := c.entries[key]
	if !ok {
		return cache.Result{Outcome: cache.OutcomeMiss}
	}
	return cache.Result{Outcome: cache.OutcomeHit, Value: value}
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) cache.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return cache.Result{Outcome: cache.OutcomeDegraded, Err: models.NewCacheUnavailable(errors.New("dial tcp: refused"))}
	}
	c.entries[key] = value
	return cache.Result{Outcome: cache.OutcomeStored}
}

const (
	shopA int64 = 1
	shopB int64 = 2
)

type fixture struct {
	repo      *memoryRepo
	customers *stubCustomers
	users     *stubUsers
	publisher *recordingPublisher
	recorder  *countingRecorder
	listings  cache.Gateway
	service   *Service
}

func newFixture(listings cache.Gateway) *fixture {
	if listings == nil {
		listings = newMapCache()
	}
	f := &fixture{
		repo: newMemoryRepo(
			models.MenuItem{ID: 10, CoffeeShopID: shopA, Name: "Latte", Price: 3.5},
			models.MenuItem{ID: 11, CoffeeShopID: shopA, Name: "Croissant", Price: 2.0},
			models.MenuItem{ID: 12, CoffeeShopID: shopA, Name: "Old brew", Deleted: true},
			models.MenuItem{ID: 20, CoffeeShopID: shopB, Name: "Flat white", Price: 3.8},
		),
		customers: &stubCustomers{},
		users: &stubUsers{users: map[int64]*models.User{
			7: {ID: 7, Role: models.RoleChef},
			8: {ID: 8, Role: models.RoleCashier},
		}},
		publisher: &recordingPublisher{},
		recorder:  newCountingRecorder(),
		listings:  listings,
	}
	f.service = NewService(
		f.repo,
		f.customers,
		f.users,
		listings,
		NewNotifier(f.publisher, "order_notifications", time.Second),
		f.recorder,
		logger.NewNop(),
		Options{ListingTTL: time.Minute, StoreTimeout: time.Second},
	)
	return f
}

func principal(role models.Role, shop int64) *models.Principal {
	return &models.Principal{ID: 3, Email: "staff@example.com", Role: role, CoffeeShopID: shop, Token: "token"}
}

func placeRequest(items ...models.RequestedItem) *models.PlaceOrderRequest {
	return &models.PlaceOrderRequest{
		CustomerDetails: models.CustomerDetails{Name: "Alice", PhoneNo: "+100200300"},
		Items:           items,
	}
}
