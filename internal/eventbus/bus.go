// Package eventbus gives modules a publish/subscribe channel keyed by
// topic instead of direct references to one another, so the
// dispatcher/service/netchannel/txpool modules can talk without the
// module container having to wire a reference cycle between them.
package eventbus

import (
	"context"
	"fmt"
	"strings"
)

// Handler processes one message delivered on a topic.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Publisher sends opaque payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Subscriber delivers payloads published to a topic to a Handler.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(topic string) error
	Close() error
}

// Bus is the combined capability the container hands to modules.
type Bus interface {
	Publisher
	Subscriber
}

// Backend selects which concrete Bus implementation Open constructs.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendNATS   Backend = "nats"
	BackendRedis  Backend = "redis"
	BackendKafka  Backend = "kafka"
)

// Config is the subset of node configuration Open consumes.
type Config struct {
	Backend  Backend
	URL      string
	Password string

	RedisDB     int
	RedisStream string
	RedisGroup  string

	KafkaBrokers []string
	KafkaGroupID string

	ConsumerName string
}

// Open constructs a Bus for the configured backend. An empty Backend
// defaults to BackendMemory so a node with no broker configured still
// gets a working, process-local bus.
func Open(cfg Config) (Bus, error) {
	backend := Backend(strings.ToLower(string(cfg.Backend)))
	if backend == "" {
		backend = BackendMemory
	}

	switch backend {
	case BackendMemory:
		return newMemoryBus(), nil
	case BackendNATS:
		return newNATSBus(cfg.URL)
	case BackendRedis:
		return newRedisBus(redisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.ConsumerName,
		})
	case BackendKafka:
		return newKafkaBus(kafkaConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
		})
	default:
		return nil, fmt.Errorf("eventbus: unsupported backend %q (want memory, nats, redis, or kafka)", cfg.Backend)
	}
}
