package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaConfig struct {
	Brokers []string
	GroupID string
}

// kafkaBus implements Bus on Apache Kafka. It is the heaviest backend
// and is intended for a SERVER-mode deployment that already runs a
// Kafka cluster for its other services.
type kafkaBus struct {
	cfg           kafkaConfig
	mu            sync.Mutex
	writers       map[string]*kafka.Writer
	readers       map[string]*kafka.Reader
	subscriptions map[string]context.CancelFunc
}

func newKafkaBus(cfg kafkaConfig) (*kafkaBus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("eventbus: kafka backend requires at least one broker")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "metabasenet-group"
	}
	return &kafkaBus{
		cfg:           cfg,
		writers:       make(map[string]*kafka.Writer),
		readers:       make(map[string]*kafka.Reader),
		subscriptions: make(map[string]context.CancelFunc),
	}, nil
}

func (b *kafkaBus) getOrCreateWriter(topic string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, exists := b.writers[topic]; exists {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(b.cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	b.writers[topic] = w
	return w
}

func (b *kafkaBus) Publish(ctx context.Context, topic string, payload []byte) error {
	writer := b.getOrCreateWriter(topic)
	if err := writer.WriteMessages(ctx, kafka.Message{Value: payload, Time: time.Now()}); err != nil {
		return fmt.Errorf("eventbus: publish to kafka topic %s: %w", topic, err)
	}
	return nil
}

func (b *kafkaBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	if _, exists := b.subscriptions[topic]; exists {
		b.mu.Unlock()
		return fmt.Errorf("eventbus: already subscribed to topic %q", topic)
	}
	b.mu.Unlock()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        b.cfg.Brokers,
		GroupID:        b.cfg.GroupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})

	subCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	b.readers[topic] = reader
	b.subscriptions[topic] = cancel
	b.mu.Unlock()

	go b.consume(subCtx, reader, topic, handler)
	return nil
}

func (b *kafkaBus) consume(ctx context.Context, reader *kafka.Reader, topic string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if err := handler(ctx, topic, msg.Value); err != nil {
			continue
		}

		for i := 0; i < 3; i++ {
			if err := reader.CommitMessages(ctx, msg); err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (b *kafkaBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cancel, exists := b.subscriptions[topic]
	if !exists {
		return fmt.Errorf("eventbus: not subscribed to topic %q", topic)
	}
	cancel()
	if reader, ok := b.readers[topic]; ok {
		_ = reader.Close()
		delete(b.readers, topic)
	}
	delete(b.subscriptions, topic)
	return nil
}

func (b *kafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var lastErr error
	for topic, cancel := range b.subscriptions {
		cancel()
		if reader, ok := b.readers[topic]; ok {
			if err := reader.Close(); err != nil {
				lastErr = err
			}
			delete(b.readers, topic)
		}
		delete(b.subscriptions, topic)
	}
	for topic, writer := range b.writers {
		if err := writer.Close(); err != nil {
			lastErr = err
		}
		delete(b.writers, topic)
	}
	return lastErr
}
