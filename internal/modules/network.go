package modules

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/registry"
)

// NetworkModule registers this node's advertised address with the
// optional etcd-backed peer directory on Run and deregisters on
// Halt. It implements no wire protocol; peer discovery here is
// address bootstrap only.
type NetworkModule struct {
	name   string
	dir    *registry.PeerDirectory // nil when no peer directory is configured
	logger zerolog.Logger
	cancel context.CancelFunc
}

// NewNetworkModule constructs the NETWORK module. Pass a nil dir to
// run with the peer directory disabled.
func NewNetworkModule(dir *registry.PeerDirectory, logger zerolog.Logger) *NetworkModule {
	return &NetworkModule{name: "network", dir: dir, logger: logger}
}

func (m *NetworkModule) Name() string { return m.name }

func (m *NetworkModule) Initialize(ctx context.Context) error { return nil }

func (m *NetworkModule) Run(ctx context.Context) error {
	if m.dir == nil {
		m.logger.Info().Msg("network: peer directory disabled")
		return nil
	}
	regCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	return m.dir.Register(regCtx)
}

func (m *NetworkModule) Halt(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.dir == nil {
		return nil
	}
	return m.dir.Deregister(ctx)
}

func (m *NetworkModule) Deinitialize(ctx context.Context) error { return nil }
