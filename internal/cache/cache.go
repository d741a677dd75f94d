package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"order-service/internal/models"
)

// Outcome describes how a cache call ended
type Outcome int

const (
	OutcomeHit Outcome = iota
	OutcomeMiss
	OutcomeStored
	// OutcomeDegraded means the cache could not be reached; callers carry on without it
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	case OutcomeStored:
		return "stored"
	case OutcomeDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is returned instead of an error so connectivity failures cannot be escalated by accident
type Result struct {
	Outcome Outcome
	Value   []byte
	Err     error
}

// Degraded reports whether the cache was unavailable
func (r Result) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}

// Gateway is a key-value cache with per-entry TTL
type Gateway interface {
	Get(ctx context.Context, key string) Result
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) Result
}

// RedisGateway implements Gateway on Redis. The client dials lazily on first
// command and transparently redials dropped connections.
type RedisGateway struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// Options configures a RedisGateway
type Options struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedisGateway creates a gateway; no connection is made until the first call
func NewRedisGateway(opts Options) *RedisGateway {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		MaxRetries:   1,
	})
	return NewRedisGatewayWithClient(client, opts.Timeout)
}

// NewRedisGatewayWithClient wraps an existing client
func NewRedisGatewayWithClient(client redis.UniversalClient, timeout time.Duration) *RedisGateway {
	return &RedisGateway{client: client, timeout: timeout}
}

// Get returns the cached bytes for key
func (g *RedisGateway) Get(ctx context.Context, key string) Result {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	value, err := g.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return Result{Outcome: OutcomeMiss}
	case err != nil:
		return Result{Outcome: OutcomeDegraded, Err: models.NewCacheUnavailable(err)}
	default:
		return Result{Outcome: OutcomeHit, Value: value}
	}
}

// Set stores value under key for ttl
func (g *RedisGateway) Set(ctx context.Context, key string, value []byte, ttl time.Duration) Result {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if err := g.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return Result{Outcome: OutcomeDegraded, Err: models.NewCacheUnavailable(err)}
	}
	return Result{Outcome: OutcomeStored}
}

// Ping checks that Redis is reachable
func (g *RedisGateway) Ping(ctx context.Context) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.client.Ping(ctx).Err()
}

// Close releases the connection pool
func (g *RedisGateway) Close() error {
	return g.client.Close()
}

func (g *RedisGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
