package messaging

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-service/internal/config"
	"order-service/internal/logger"
	"order-service/internal/models"
)

type fakeProducer struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeProducer) WriteMessage(_ context.Context, msg kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_PublishToQueue(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewKafkaPublisherWithProducer(producer, "order_notifications", logger.NewNop())

	err := pub.PublishToQueue(context.Background(), "order_notifications", []byte(`{"order_id":1}`))
	require.NoError(t, err)
	require.Len(t, producer.messages, 1)
	assert.Equal(t, `{"order_id":1}`, string(producer.messages[0].Value))

	require.NoError(t, pub.Close())
	assert.True(t, producer.closed)
}

func TestKafkaPublisher_Failures(t *testing.T) {
	tests := []struct {
		name     string
		queue    string
		producer *fakeProducer
	}{
		{
			name:     "broker error",
			queue:    "order_notifications",
			producer: &fakeProducer{err: errors.New("leader not available")},
		},
		{
			name:     "unbound topic",
			queue:    "something_else",
			producer: &fakeProducer{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := NewKafkaPublisherWithProducer(tt.producer, "order_notifications", logger.NewNop())
			err := pub.PublishToQueue(context.Background(), tt.queue, []byte("{}"))
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.KindNotificationPublishFailed))
			assert.Empty(t, tt.producer.messages)
		})
	}
}

func TestPublisher_UnreachableBroker(t *testing.T) {
	cfg := config.Default()
	cfg.RabbitMQ.Host = "127.0.0.1"
	cfg.RabbitMQ.Port = 1
	cfg.RabbitMQ.RetryAttempts = 1

	conn := New(cfg, logger.NewNop(), "order_notifications")
	assert.True(t, conn.IsClosed())

	pub := NewPublisher(conn, logger.NewNop())
	err := pub.PublishToQueue(context.Background(), "order_notifications", []byte("{}"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.KindNotificationPublishFailed))
	assert.NoError(t, pub.Close())
}

// silentBroker accepts TCP connections and never speaks AMQP
type silentBroker struct {
	listener net.Listener
	accepted atomic.Int32
	mu       sync.Mutex
	conns    []net.Conn
}

func newSilentBroker(t *testing.T) *silentBroker {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	b := &silentBroker{listener: listener}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			b.accepted.Add(1)
			b.mu.Lock()
			b.conns = append(b.conns, conn)
			b.mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		listener.Close()
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, conn := range b.conns {
			conn.Close()
		}
	})
	return b
}

func (b *silentBroker) config() *config.Config {
	cfg := config.Default()
	addr := b.listener.Addr().(*net.TCPAddr)
	cfg.RabbitMQ.Host = addr.IP.String()
	cfg.RabbitMQ.Port = addr.Port
	cfg.RabbitMQ.RetryAttempts = 1
	return cfg
}

func TestPublisher_StalledHandshakeRespectsDeadline(t *testing.T) {
	broker := newSilentBroker(t)
	pub := NewPublisher(New(broker.config(), logger.NewNop(), "order_notifications"), logger.NewNop())
	defer pub.Close()

	const callers = 4
	errs := make([]error, callers)
	elapsed := make([]time.Duration, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()

			start := time.Now()
			errs[i] = pub.PublishToQueue(ctx, "order_notifications", []byte("{}"))
			elapsed[i] = time.Since(start)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.Error(t, errs[i])
		assert.True(t, models.IsKind(errs[i], models.KindNotificationPublishFailed))
		assert.Less(t, elapsed[i], 2*time.Second, "caller %d", i)
	}
	assert.GreaterOrEqual(t, broker.accepted.Load(), int32(1))
}

func TestPublisher_StalledHandshakeWithoutDeadline(t *testing.T) {
	broker := newSilentBroker(t)
	cfg := broker.config()
	cfg.Timeouts.Queue = 200 * time.Millisecond
	pub := NewPublisher(New(cfg, logger.NewNop(), "order_notifications"), logger.NewNop())
	defer pub.Close()

	start := time.Now()
	err := pub.PublishToQueue(context.Background(), "order_notifications", []byte("{}"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConsumer_CloseDoesNotDial(t *testing.T) {
	broker := newSilentBroker(t)
	conn := New(broker.config(), logger.NewNop(), "order_notifications")
	consumer := NewConsumer(conn, logger.NewNop(), "order_notifications", "notifier", 1)

	done := make(chan error, 1)
	go func() { done <- consumer.Close() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer close blocked")
	}

	// give a stray dial time to reach the listener
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), broker.accepted.Load())
	assert.True(t, conn.IsClosed())
}

type scriptedReader struct {
	messages []*kafka.Message
	errs     []error
	closed   bool
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (*kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return nil, err
	}
	if len(r.messages) == 0 {
		return nil, context.Canceled
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func TestKafkaConsumer_StartConsuming(t *testing.T) {
	reader := &scriptedReader{
		errs: []error{errors.New("rebalance in progress")},
		messages: []*kafka.Message{
			{Value: []byte(`{"order_id":1}`)},
			{Value: []byte(`broken`)},
			{Value: []byte(`{"order_id":2}`)},
		},
	}
	consumer := NewKafkaConsumerWithReader(reader, "order_notifications", logger.NewNop())

	var seen []string
	err := consumer.StartConsuming(context.Background(), func(_ context.Context, body []byte) error {
		seen = append(seen, string(body))
		if string(body) == "broken" {
			return errors.New("bad payload")
		}
		return nil
	})

	// the scripted reader ends with context.Canceled while ctx itself is live
	assert.NoError(t, err)
	assert.Equal(t, []string{`{"order_id":1}`, "broken", `{"order_id":2}`}, seen)

	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)
}

func TestPingKafka_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, PingKafka(ctx, []string{"127.0.0.1:1"}))
	assert.Error(t, PingKafka(ctx, nil))
}
