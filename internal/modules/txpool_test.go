package modules

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTxPoolModule_SubmitAcceptRetrieve(t *testing.T) {
	dir := t.TempDir()
	m := NewTxPoolModule(dir, 3600, true, zerolog.Nop())
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Deinitialize(ctx)

	var hash [32]byte
	hash[0] = 0x11
	payload := []byte("raw transaction bytes")

	m.Submit(hash, payload)
	if got := m.Pending(); got != 1 {
		t.Fatalf("expected 1 pending entry, got %d", got)
	}

	if err := m.Accept(1234, hash); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := m.Pending(); got != 0 {
		t.Fatalf("expected 0 pending entries after accept, got %d", got)
	}

	got, found, err := m.Database().Retrieve(1234, hash)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !found {
		t.Fatal("expected accepted entry to be retrievable")
	}
	if string(got.Payload) != string(payload) {
		t.Fatalf("unexpected payload: %q", got.Payload)
	}
}

func TestTxPoolModule_AcceptUnknownHash(t *testing.T) {
	dir := t.TempDir()
	m := NewTxPoolModule(dir, 3600, false, zerolog.Nop())
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Deinitialize(ctx)

	var hash [32]byte
	hash[0] = 0x22
	err := m.Accept(1, hash)
	if err == nil {
		t.Fatal("expected error accepting a hash that was never submitted")
	}
	if !strings.Contains(err.Error(), "is not pending") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTxPoolModule_HaltFlushes(t *testing.T) {
	dir := t.TempDir()
	m := NewTxPoolModule(dir, 3600, true, zerolog.Nop())
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Deinitialize(ctx)

	var hash [32]byte
	hash[0] = 0x33
	m.Submit(hash, []byte("payload"))
	if err := m.Accept(1, hash); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := m.Halt(ctx); err != nil {
		t.Fatalf("halt: %v", err)
	}

	_, found, err := m.Database().Retrieve(1, hash)
	if err != nil || !found {
		t.Fatalf("expected entry to survive flush: found=%v err=%v", found, err)
	}
}
