package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"order-service/internal/logger"
	"order-service/internal/models"
)

// Producer is the subset of a Kafka writer used for publishing
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaPublisher publishes order events to a single Kafka topic
type KafkaPublisher struct {
	producer Producer
	topic    string
	logger   *logger.Logger
}

// NewKafkaPublisher creates a traced Kafka writer for topic. kafka-go dials lazily on first write.
func NewKafkaPublisher(brokers []string, topic string, tp trace.TracerProvider, log *logger.Logger) (*KafkaPublisher, error) {
	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(topic),
				attribute.String("messaging.kafka.client_id", "order-service"),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka writer: %w", err)
	}

	return NewKafkaPublisherWithProducer(writer, topic, log), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer Producer, topic string, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: log}
}

// PublishToQueue writes body to the configured topic; queue must name that topic
func (p *KafkaPublisher) PublishToQueue(ctx context.Context, queue string, body []byte) error {
	if queue != p.topic {
		return models.NewNotificationPublishFailed(fmt.Errorf("kafka publisher is bound to topic %s, not %s", p.topic, queue))
	}

	msg := kafka.Message{
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := p.producer.WriteMessage(ctx, msg); err != nil {
		p.logger.Error("message_publish_failed",
			fmt.Sprintf("Failed to publish message to topic %s", p.topic),
			"", err, map[string]interface{}{"topic": p.topic})
		return models.NewNotificationPublishFailed(err)
	}

	p.logger.Debug("message_published",
		fmt.Sprintf("Published message to topic %s", p.topic),
		"", map[string]interface{}{
			"topic":        p.topic,
			"message_size": len(body),
		})
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Reader is the subset of a Kafka reader used for consuming
type Reader interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
	Close() error
}

// KafkaConsumer feeds messages of one topic to a MessageHandler
type KafkaConsumer struct {
	reader Reader
	topic  string
	logger *logger.Logger
}

// NewKafkaConsumer creates a traced consumer-group reader for topic
func NewKafkaConsumer(brokers []string, topic, groupID string, log *logger.Logger) (*KafkaConsumer, error) {
	baseReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})

	reader, err := otelkafka.NewReader(baseReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka reader: %w", err)
	}
	return NewKafkaConsumerWithReader(reader, topic, log), nil
}

// NewKafkaConsumerWithReader wraps an existing reader
func NewKafkaConsumerWithReader(reader Reader, topic string, log *logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, topic: topic, logger: log}
}

// StartConsuming reads until ctx is done. Handler failures are logged and the
// message is skipped; the reader commits offsets as messages are read.
func (c *KafkaConsumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("consumer_started",
		fmt.Sprintf("Started consuming from topic %s", c.topic),
		"", map[string]interface{}{"topic": c.topic})

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer_stopped", "Consumer stopped by context", "", nil)
				return ctx.Err()
			}
			c.logger.Error("message_read_failed", "Failed to read from Kafka", "", err, map[string]interface{}{
				"topic": c.topic,
			})
			continue
		}

		carrier := propagation.MapCarrier{}
		for _, header := range msg.Headers {
			carrier[header.Key] = string(header.Value)
		}
		msgCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)

		if err := handler(msgCtx, msg.Value); err != nil {
			c.logger.Error("message_processing_failed", "Failed to process message", "", err, map[string]interface{}{
				"topic":     c.topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
		}
	}
}

// Close closes the reader
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

// PingKafka succeeds when any of the brokers accepts a connection
func PingKafka(ctx context.Context, brokers []string) error {
	var errs error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn.Close()
		}
		errs = errors.Join(errs, err)
	}
	if errs == nil {
		return errors.New("no kafka brokers configured")
	}
	return errs
}
