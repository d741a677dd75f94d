package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"order-service/internal/config"
	"order-service/internal/logger"
)

// defaultConnectTimeout bounds a dial when the caller's context has no deadline
const defaultConnectTimeout = 5 * time.Second

// Connection wraps a RabbitMQ connection that is dialed on first use and
// re-dialed whenever it is found closed.
type Connection struct {
	// lock is a one-slot semaphore so waiters can give up when their context ends
	lock    chan struct{}
	conn    *amqp091.Connection
	channel *amqp091.Channel

	url            string
	queues         []string
	retryAttempts  int
	connectTimeout time.Duration
	logger         *logger.Logger
}

// New creates a RabbitMQ connection handle. No network I/O happens until the
// first call to Channel.
func New(cfg *config.Config, log *logger.Logger, queues ...string) *Connection {
	attempts := cfg.RabbitMQ.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	connectTimeout := cfg.Timeouts.Queue
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	return &Connection{
		lock:           make(chan struct{}, 1),
		url:            cfg.RabbitMQURL(),
		queues:         queues,
		retryAttempts:  attempts,
		connectTimeout: connectTimeout,
		logger:         log,
	}
}

func (c *Connection) acquire(ctx context.Context) error {
	select {
	case c.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to connect to RabbitMQ: %w", ctx.Err())
	}
}

func (c *Connection) release() {
	<-c.lock
}

// Channel returns an open channel, connecting or reconnecting first if needed
func (c *Connection) Channel(ctx context.Context) (*amqp091.Channel, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}

	c.close()
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c.channel, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Connection) connect(ctx context.Context) error {
	var err error

	for i := 0; i < c.retryAttempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", ctxErr)
		}

		err = c.dial(ctx)
		if err == nil {
			return nil
		}

		if i < c.retryAttempts-1 {
			waitTime := time.Duration(i+1) * 500 * time.Millisecond
			c.logger.Error("rabbitmq_connection_failed",
				fmt.Sprintf("Failed to connect to RabbitMQ, retrying in %v", waitTime),
				"", err, map[string]interface{}{"attempt": i + 1})

			select {
			case <-ctx.Done():
				return fmt.Errorf("failed to connect to RabbitMQ: %w", ctx.Err())
			case <-time.After(waitTime):
			}
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", c.retryAttempts, err)
}

// dial connects with the TCP connect and AMQP handshake bounded by ctx's
// deadline, or by the configured connect timeout when ctx has none
func (c *Connection) dial(ctx context.Context) error {
	timeout := c.connectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", context.DeadlineExceeded)
		}
	}

	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(timeout),
	})
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	c.conn, c.channel = conn, channel
	if err := c.setupTopology(); err != nil {
		c.logger.Error("rabbitmq_setup_failed", "Failed to set up topology", "", err, nil)
		c.close()
		return err
	}

	c.logger.Info("rabbitmq_connected", "Connected to RabbitMQ", "", map[string]interface{}{
		"queues": c.queues,
	})
	return nil
}

// setupTopology declares the durable queues this connection works with
func (c *Connection) setupTopology() error {
	for _, queueName := range c.queues {
		_, err := c.channel.QueueDeclare(
			queueName, // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			nil,       // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	}
	return nil
}

// Close closes the connection
func (c *Connection) Close() error {
	c.lock <- struct{}{}
	defer c.release()
	return c.close()
}

func (c *Connection) close() error {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && err != amqp091.ErrClosed {
			return err
		}
	}
	return nil
}

// IsClosed checks if the connection is closed or was never opened
func (c *Connection) IsClosed() bool {
	c.lock <- struct{}{}
	defer c.release()
	return c.conn == nil || c.conn.IsClosed()
}

// OpenChannel returns the current channel if it is open, without dialing
func (c *Connection) OpenChannel() (*amqp091.Channel, bool) {
	c.lock <- struct{}{}
	defer c.release()
	if c.conn == nil || c.conn.IsClosed() || c.channel == nil || c.channel.IsClosed() {
		return nil, false
	}
	return c.channel, true
}

// Reconnect drops the current connection and dials again
func (c *Connection) Reconnect(ctx context.Context) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()
	c.close()
	return c.connect(ctx)
}
