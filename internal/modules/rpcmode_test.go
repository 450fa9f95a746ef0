package modules

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/container"
	"github.com/metabasenet/node/internal/eventbus"
	"github.com/metabasenet/node/internal/logging"
)

func TestRPCModeModule_RequiresHTTPServerCapability(t *testing.T) {
	bus, err := eventbus.Open(eventbus.Config{})
	if err != nil {
		t.Fatalf("open bus: %v", err)
	}
	defer bus.Close()

	c := container.New(zerolog.Nop(), bus)
	m := NewRPCModeModule(c, zerolog.Nop())

	if err := m.Initialize(context.Background()); err == nil {
		t.Fatal("expected error when httpserver capability is missing")
	}
}

func TestRPCModeModule_RegistersCatchAllOnceHTTPServerAttached(t *testing.T) {
	bus, err := eventbus.Open(eventbus.Config{})
	if err != nil {
		t.Fatalf("open bus: %v", err)
	}
	defer bus.Close()

	c := container.New(zerolog.Nop(), bus)
	httpMod := NewHTTPServerModule("127.0.0.1:0", logging.NewDevelopment())
	if !c.Attach(httpMod) {
		t.Fatal("expected httpserver to attach")
	}
	rpcMod := NewRPCModeModule(c, zerolog.Nop())
	if !c.Attach(rpcMod) {
		t.Fatal("expected rpcmode to attach")
	}

	ctx := context.Background()
	if err := httpMod.Initialize(ctx); err != nil {
		t.Fatalf("httpserver initialize: %v", err)
	}
	if err := rpcMod.Initialize(ctx); err != nil {
		t.Fatalf("rpcmode initialize: %v", err)
	}
	if err := rpcMod.Run(ctx); err != nil {
		t.Fatalf("rpcmode run: %v", err)
	}
}
