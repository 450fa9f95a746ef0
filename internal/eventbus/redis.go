package eventbus

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisConfig struct {
	URL      string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

// redisBus implements Bus on Redis Streams, giving topics a consumer
// group so multiple instances of the same module kind can share load.
type redisBus struct {
	client        *redis.Client
	cfg           redisConfig
	mu            sync.Mutex
	subscriptions map[string]context.CancelFunc
}

func newRedisBus(cfg redisConfig) (*redisBus, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL, Password: cfg.Password, DB: cfg.DB}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("eventbus: connect to redis: %w", err)
	}

	if cfg.Stream == "" {
		cfg.Stream = "metabasenet"
	}
	if cfg.Group == "" {
		cfg.Group = "metabasenet-group"
	}
	if cfg.Consumer == "" {
		hostname, _ := os.Hostname()
		if hostname == "" {
			hostname = "consumer-1"
		}
		cfg.Consumer = hostname
	}

	return &redisBus{client: client, cfg: cfg, subscriptions: make(map[string]context.CancelFunc)}, nil
}

func (b *redisBus) streamName(topic string) string {
	return fmt.Sprintf("%s:%s", b.cfg.Stream, topic)
}

func (b *redisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	stream := b.streamName(topic)
	_, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Result()
	if err != nil {
		return fmt.Errorf("eventbus: publish to stream %s: %w", stream, err)
	}
	return nil
}

func (b *redisBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscriptions[topic]; exists {
		return fmt.Errorf("eventbus: already subscribed to topic %q", topic)
	}

	stream := b.streamName(topic)
	subCtx, cancel := context.WithCancel(ctx)

	err := b.client.XGroupCreateMkStream(subCtx, stream, b.cfg.Group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		cancel()
		return fmt.Errorf("eventbus: create consumer group: %w", err)
	}

	go b.readStream(subCtx, stream, topic, handler)
	b.subscriptions[topic] = cancel
	return nil
}

func (b *redisBus) readStream(ctx context.Context, stream, topic string, handler Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.cfg.Group,
			Consumer: b.cfg.Consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					b.client.XAck(ctx, stream, b.cfg.Group, msg.ID)
					continue
				}
				if err := handler(ctx, topic, []byte(data)); err != nil {
					continue
				}
				b.client.XAck(ctx, stream, b.cfg.Group, msg.ID)
			}
		}
	}
}

func (b *redisBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cancel, exists := b.subscriptions[topic]
	if !exists {
		return fmt.Errorf("eventbus: not subscribed to topic %q", topic)
	}
	cancel()
	delete(b.subscriptions, topic)
	return nil
}

func (b *redisBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, cancel := range b.subscriptions {
		cancel()
		delete(b.subscriptions, topic)
	}
	return b.client.Close()
}
