package modules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/metabasenet/node/internal/logging"
)

// HTTPServerModule starts and stops a fiber listener. AddNewHost
// mirrors the original's per-chain-id host list; no RPC method
// dispatch is registered here, that is RPCMODE's job.
type HTTPServerModule struct {
	name   string
	addr   string
	app    *fiber.App
	logger *logging.Logger

	mu    sync.Mutex
	hosts map[string]bool

	listenErr chan error
}

// NewHTTPServerModule constructs the HTTPSERVER module, listening on
// addr once started.
func NewHTTPServerModule(addr string, logger *logging.Logger) *HTTPServerModule {
	return &HTTPServerModule{
		name:   "httpserver",
		addr:   addr,
		logger: logger,
		hosts:  make(map[string]bool),
	}
}

func (m *HTTPServerModule) Name() string { return m.name }

func (m *HTTPServerModule) Initialize(ctx context.Context) error {
	m.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	m.app.Use(logging.FiberMiddleware(m.logger))
	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return nil
}

func (m *HTTPServerModule) Run(ctx context.Context) error {
	m.listenErr = make(chan error, 1)
	go func() {
		m.listenErr <- m.app.Listen(m.addr)
	}()
	select {
	case err := <-m.listenErr:
		return fmt.Errorf("httpserver: listen failed: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (m *HTTPServerModule) Halt(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	return m.app.ShutdownWithTimeout(5 * time.Second)
}

func (m *HTTPServerModule) Deinitialize(ctx context.Context) error { return nil }

// App exposes the underlying fiber application so RPCMODE can attach
// its handlers after HTTPSERVER.Initialize has run.
func (m *HTTPServerModule) App() *fiber.App { return m.app }

// AddNewHost records a chain id this server should accept requests
// for, mirroring the original's per-chain-id host list. No routing
// decision is made on it; it is purely observable bookkeeping.
func (m *HTTPServerModule) AddNewHost(chainID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hosts[chainID] = true
}

// Hosts returns the chain ids registered via AddNewHost.
func (m *HTTPServerModule) Hosts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.hosts))
	for h := range m.hosts {
		out = append(out, h)
	}
	return out
}
