package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// setupTestNATS starts an embedded, JetStream-enabled NATS server for
// the duration of a test.
func setupTestNATS(t *testing.T) (url string, cleanup func()) {
	t.Helper()

	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("start embedded nats server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded nats server not ready")
	}

	return ns.ClientURL(), func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	}
}

func TestNATSBus_PublishSubscribe(t *testing.T) {
	url, cleanup := setupTestNATS(t)
	defer cleanup()

	bus, err := Open(Config{Backend: BackendNATS, URL: url})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer bus.Close()

	ctx := context.Background()
	received := make(chan []byte, 1)
	if err := bus.Subscribe(ctx, "blocks.new", func(_ context.Context, topic string, payload []byte) error {
		received <- payload
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := bus.Publish(ctx, "blocks.new", []byte("block-001")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != "block-001" {
			t.Fatalf("unexpected payload: %q", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestNATSBus_DoubleSubscribeRejected(t *testing.T) {
	url, cleanup := setupTestNATS(t)
	defer cleanup()

	bus, err := Open(Config{Backend: BackendNATS, URL: url})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer bus.Close()

	ctx := context.Background()
	noop := func(context.Context, string, []byte) error { return nil }

	if err := bus.Subscribe(ctx, "txpool.accepted", noop); err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	if err := bus.Subscribe(ctx, "txpool.accepted", noop); err == nil {
		t.Fatal("expected error on duplicate subscribe")
	}
}

func TestNATSBus_UnsubscribeThenPublishDoesNotDeliver(t *testing.T) {
	url, cleanup := setupTestNATS(t)
	defer cleanup()

	bus, err := Open(Config{Backend: BackendNATS, URL: url})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer bus.Close()

	ctx := context.Background()
	received := make(chan []byte, 1)
	if err := bus.Subscribe(ctx, "dispatcher", func(_ context.Context, _ string, payload []byte) error {
		received <- payload
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Unsubscribe("dispatcher"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}

	if err := bus.Publish(ctx, "dispatcher", []byte("late")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-received:
		t.Fatal("expected no delivery after unsubscribe")
	case <-time.After(500 * time.Millisecond):
	}
}
