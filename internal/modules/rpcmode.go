package modules

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/container"
)

// RPCModeModule looks up the httpserver capability and registers a
// catch-all placeholder handler; no JSON-RPC method dispatch table is
// implemented (the RPC surface is a non-goal here).
type RPCModeModule struct {
	name      string
	container *container.Container
	logger    zerolog.Logger
}

// NewRPCModeModule constructs the RPCMODE module. c must already
// have an "httpserver" module attached, initialized before this
// module in the mode registry's ordering.
func NewRPCModeModule(c *container.Container, logger zerolog.Logger) *RPCModeModule {
	return &RPCModeModule{name: "rpcmode", container: c, logger: logger}
}

func (m *RPCModeModule) Name() string { return m.name }

func (m *RPCModeModule) Initialize(ctx context.Context) error {
	httpMod, ok := container.GetCapability[*HTTPServerModule](m.container, "httpserver")
	if !ok {
		return fmt.Errorf("rpcmode: httpserver capability not found")
	}

	httpMod.App().All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotImplemented).SendString("rpc method dispatch not implemented")
	})
	return nil
}

func (m *RPCModeModule) Run(ctx context.Context) error {
	m.logger.Debug().Str("module", m.name).Msg("rpcmode running")
	return nil
}

func (m *RPCModeModule) Halt(ctx context.Context) error { return nil }

func (m *RPCModeModule) Deinitialize(ctx context.Context) error { return nil }
