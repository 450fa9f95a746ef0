package eventbus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewMemoryBus(t *testing.T) {
	b := newMemoryBus()
	if b == nil {
		t.Fatal("newMemoryBus should return non-nil")
	}
	defer func() { _ = b.Close() }()

	if b.channels == nil {
		t.Error("channels map should be initialized")
	}
	if b.subscriptions == nil {
		t.Error("subscriptions map should be initialized")
	}
}

func TestMemoryBus_Publish(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	if err := b.Publish(ctx, "test.topic", []byte("test message")); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	if count := b.pending("test.topic"); count != 1 {
		t.Errorf("Expected 1 pending message, got %d", count)
	}
}

func TestMemoryBus_Publish_DataCopy(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	original := []byte("original")
	if err := b.Publish(ctx, "test", original); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	original[0] = 'X'

	var received []byte
	var wg sync.WaitGroup
	wg.Add(1)

	err := b.Subscribe(ctx, "test", func(_ context.Context, _ string, payload []byte) error {
		received = payload
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	waitWithTimeout(t, &wg, 2*time.Second)

	if string(received) != "original" {
		t.Errorf("expected 'original', got %q", received)
	}
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	var received []byte
	var wg sync.WaitGroup
	wg.Add(1)

	ctx := context.Background()
	err := b.Subscribe(ctx, "test", func(_ context.Context, topic string, payload []byte) error {
		received = payload
		wg.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := b.Publish(ctx, "test", []byte("hello")); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	waitWithTimeout(t, &wg, 2*time.Second)

	if string(received) != "hello" {
		t.Errorf("expected 'hello', got %q", received)
	}
}

func TestMemoryBus_Subscribe_MultipleMessages(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	const messageCount = 100
	var receivedCount int32

	ctx := context.Background()
	err := b.Subscribe(ctx, "test", func(context.Context, string, []byte) error {
		atomic.AddInt32(&receivedCount, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	for i := 0; i < messageCount; i++ {
		_ = b.Publish(ctx, "test", []byte(fmt.Sprintf("msg-%d", i)))
	}

	waitFor(t, func() bool { return int(atomic.LoadInt32(&receivedCount)) >= messageCount }, 5*time.Second)

	if int(receivedCount) != messageCount {
		t.Errorf("expected %d, got %d", messageCount, receivedCount)
	}
}

func TestMemoryBus_Subscribe_DoubleSubscribe(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	noop := func(context.Context, string, []byte) error { return nil }

	if err := b.Subscribe(ctx, "test", noop); err != nil {
		t.Fatalf("first subscribe failed: %v", err)
	}
	if err := b.Subscribe(ctx, "test", noop); err == nil {
		t.Fatal("expected error for double subscribe")
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	noop := func(context.Context, string, []byte) error { return nil }

	if err := b.Subscribe(ctx, "test", noop); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := b.Unsubscribe("test"); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
	if err := b.Unsubscribe("test"); err == nil {
		t.Fatal("expected error for double unsubscribe")
	}
}

func TestMemoryBus_Unsubscribe_NotSubscribed(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	if err := b.Unsubscribe("nope"); err == nil {
		t.Fatal("expected error for unsubscribing a topic with no subscription")
	}
}

func TestMemoryBus_Close(t *testing.T) {
	b := newMemoryBus()

	ctx := context.Background()
	noop := func(context.Context, string, []byte) error { return nil }
	_ = b.Subscribe(ctx, "test.1", noop)
	_ = b.Subscribe(ctx, "test.2", noop)
	_ = b.Publish(ctx, "test.3", []byte("msg"))

	if err := b.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if len(b.subscriptions) != 0 {
		t.Error("subscriptions should be empty after close")
	}
	if len(b.channels) != 0 {
		t.Error("channels should be empty after close")
	}
}

func TestMemoryBus_ChannelFull(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	for i := 0; i < 1024; i++ {
		if err := b.Publish(ctx, "full", []byte("msg")); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	if err := b.Publish(ctx, "full", []byte("overflow")); err == nil {
		t.Fatal("expected error when channel is full")
	}
}

func TestMemoryBus_ConcurrentPublish(t *testing.T) {
	b := newMemoryBus()
	defer func() { _ = b.Close() }()

	ctx := context.Background()
	const goroutines, perGoroutine = 8, 50

	var wg sync.WaitGroup
	var errCount int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if err := b.Publish(ctx, "concurrent", []byte(fmt.Sprintf("%d-%d", id, j))); err != nil {
					atomic.AddInt32(&errCount, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	if errCount > 0 {
		t.Errorf("had %d errors during concurrent publish", errCount)
	}
	if got := b.pending("concurrent"); got != goroutines*perGoroutine {
		t.Errorf("expected %d pending, got %d", goroutines*perGoroutine, got)
	}
}

func TestOpen_DefaultsToMemory(t *testing.T) {
	bus, err := Open(Config{})
	if err != nil {
		t.Fatalf("Open with empty config should default to memory: %v", err)
	}
	defer func() { _ = bus.Close() }()

	if _, ok := bus.(*memoryBus); !ok {
		t.Errorf("expected *memoryBus, got %T", bus)
	}
}

func TestOpen_UnsupportedBackend(t *testing.T) {
	_, err := Open(Config{Backend: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timeout waiting for WaitGroup")
	}
}

func waitFor(t *testing.T, condition func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timeout waiting for condition")
}
