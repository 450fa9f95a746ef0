package modules

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPGetModule is a thin HTTP client wrapper used by CLIENT mode;
// no command semantics are implemented, only the transport.
type HTTPGetModule struct {
	name   string
	client *http.Client
	logger zerolog.Logger
}

func NewHTTPGetModule(logger zerolog.Logger) *HTTPGetModule {
	return &HTTPGetModule{name: "httpget", logger: logger}
}

func (m *HTTPGetModule) Name() string { return m.name }

func (m *HTTPGetModule) Initialize(ctx context.Context) error {
	m.client = &http.Client{Timeout: 10 * time.Second}
	return nil
}

func (m *HTTPGetModule) Run(ctx context.Context) error { return nil }

func (m *HTTPGetModule) Halt(ctx context.Context) error { return nil }

func (m *HTTPGetModule) Deinitialize(ctx context.Context) error {
	m.client = nil
	return nil
}

// Get issues a plain GET and returns the response body.
func (m *HTTPGetModule) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// RPCClientModule is a thin JSON-RPC transport wrapper used by
// CLIENT mode; no method dispatch table is implemented.
type RPCClientModule struct {
	name     string
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

func NewRPCClientModule(endpoint string, logger zerolog.Logger) *RPCClientModule {
	return &RPCClientModule{name: "rpcclient", endpoint: endpoint, logger: logger}
}

func (m *RPCClientModule) Name() string { return m.name }

func (m *RPCClientModule) Initialize(ctx context.Context) error {
	m.client = &http.Client{Timeout: 10 * time.Second}
	return nil
}

func (m *RPCClientModule) Run(ctx context.Context) error { return nil }

func (m *RPCClientModule) Halt(ctx context.Context) error { return nil }

func (m *RPCClientModule) Deinitialize(ctx context.Context) error {
	m.client = nil
	return nil
}

// Call is a placeholder for an eventual JSON-RPC request/response
// round trip; no method is implemented yet.
func (m *RPCClientModule) Call(ctx context.Context, method string, params []byte) ([]byte, error) {
	return nil, fmt.Errorf("rpcclient: method %q not implemented", method)
}
