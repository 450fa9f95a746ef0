package modules

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestLockModule_AcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	m := NewLockModule(dir, zerolog.Nop())
	ctx := context.Background()

	if err := m.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := m.Deinitialize(ctx); err != nil {
		t.Fatalf("deinitialize: %v", err)
	}
}

func TestLockModule_SecondLockerContends(t *testing.T) {
	dir := t.TempDir()
	first := NewLockModule(dir, zerolog.Nop())
	ctx := context.Background()
	if err := first.Initialize(ctx); err != nil {
		t.Fatalf("first initialize: %v", err)
	}
	defer first.Deinitialize(ctx)

	second := NewLockModule(dir, zerolog.Nop())
	if err := second.Initialize(ctx); err == nil {
		t.Fatal("expected second lock attempt to fail while first holds the lock")
	}
}
