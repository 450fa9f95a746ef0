package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// natsBus implements Bus on top of NATS JetStream, giving the event
// bus persistence and redelivery across node restarts when the
// backend is configured for a SERVER-mode deployment.
type natsBus struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	mu            sync.Mutex
	subscriptions map[string]*nats.Subscription
}

func newNATSBus(url string) (*natsBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to nats: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: open jetstream context: %w", err)
	}
	return &natsBus{
		conn:          conn,
		js:            js,
		subscriptions: make(map[string]*nats.Subscription),
	}, nil
}

func (b *natsBus) Publish(_ context.Context, topic string, payload []byte) error {
	if _, err := b.js.PublishAsync(topic, payload); err != nil {
		return fmt.Errorf("eventbus: publish to %q: %w", topic, err)
	}
	return nil
}

func (b *natsBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscriptions[topic]; exists {
		return fmt.Errorf("eventbus: already subscribed to topic %q", topic)
	}

	streamName := "mtb-" + sanitizeName(topic)
	if _, err := b.js.StreamInfo(streamName); err != nil {
		if _, err := b.js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{topic},
			Storage:  nats.FileStorage,
		}); err != nil {
			return fmt.Errorf("eventbus: create stream for %q: %w", topic, err)
		}
	}

	sub, err := b.js.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, topic, msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("consumer-"+sanitizeName(topic)),
		nats.ManualAck(),
		nats.MaxAckPending(100),
		nats.AckWait(30*time.Second),
		nats.MaxDeliver(3),
		nats.DeliverAll(),
	)
	if err != nil {
		return fmt.Errorf("eventbus: subscribe to %q: %w", topic, err)
	}
	b.subscriptions[topic] = sub
	return nil
}

func (b *natsBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, exists := b.subscriptions[topic]
	if !exists {
		return fmt.Errorf("eventbus: not subscribed to topic %q", topic)
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("eventbus: unsubscribe from %q: %w", topic, err)
	}
	delete(b.subscriptions, topic)
	return nil
}

func (b *natsBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, sub := range b.subscriptions {
		_ = sub.Unsubscribe()
		delete(b.subscriptions, topic)
	}
	b.conn.Close()
	return nil
}

// sanitizeName maps a topic to the character set NATS stream and
// consumer names accept (alphanumeric, dash, underscore).
func sanitizeName(topic string) string {
	out := make([]byte, 0, len(topic))
	for i := 0; i < len(topic); i++ {
		c := topic[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
