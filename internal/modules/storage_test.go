package modules

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestBlockchainModule_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	m := NewBlockchainModule(dir, 3600, true, zerolog.Nop())
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	var hash [32]byte
	hash[0] = 0xAB
	entry := &BlockIndexEntry{Height: 42, ParentHash: hash}
	if err := m.Database().Update(1000, hash, entry); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, found, err := m.Database().Retrieve(1000, hash)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if !found {
		t.Fatal("expected entry to be found in write buffer")
	}
	if got.Height != 42 || got.ParentHash != hash {
		t.Fatalf("unexpected entry: %+v", got)
	}

	if err := m.Halt(ctx); err != nil {
		t.Fatalf("halt: %v", err)
	}

	got, found, err = m.Database().Retrieve(1000, hash)
	if err != nil {
		t.Fatalf("retrieve after flush: %v", err)
	}
	if !found {
		t.Fatal("expected entry to be found on disk after flush")
	}
	if got.Height != 42 {
		t.Fatalf("unexpected height after flush: %d", got.Height)
	}

	if err := m.Deinitialize(ctx); err != nil {
		t.Fatalf("deinitialize: %v", err)
	}
}

func TestDataStatModule_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	m := NewDataStatModule(dir, 3600, false, zerolog.Nop())
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Deinitialize(ctx)

	var key [28]byte
	key[0] = 0x01
	if err := m.Database().Update(500, key, &StatEntry{BlockCount: 3, TxCount: 10}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, found, err := m.Database().Retrieve(500, key)
	if err != nil || !found {
		t.Fatalf("retrieve: found=%v err=%v", found, err)
	}
	if got.BlockCount != 3 || got.TxCount != 10 {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestRecoveryModule_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	m := NewRecoveryModule(dir, 3600, true, zerolog.Nop())
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer m.Deinitialize(ctx)

	var hash [32]byte
	hash[0] = 0x02
	if err := m.Database().Update(2000, hash, &CheckpointEntry{Height: 99, Hash: hash}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := m.Halt(ctx); err != nil {
		t.Fatalf("halt: %v", err)
	}

	got, found, err := m.Database().Retrieve(2000, hash)
	if err != nil || !found {
		t.Fatalf("retrieve: found=%v err=%v", found, err)
	}
	if got.Height != 99 {
		t.Fatalf("unexpected height: %d", got.Height)
	}
}
