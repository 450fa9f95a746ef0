package modules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Wallet is the single capability the original modeled as two
// parallel type hierarchies (a real wallet and a disabled
// placeholder implementing separate, nearly-identical interfaces).
// Here both are realizations of one interface, selected at entry
// time; callers that resolve "wallet" via container.GetCapability
// see the same type regardless of which realization is attached. No
// key management or cryptographic signing is implemented (a
// non-goal); Sign exists to be overridden by the eventual wallet
// spec.
type Wallet interface {
	Name() string
	Initialize(ctx context.Context) error
	Run(ctx context.Context) error
	Halt(ctx context.Context) error
	Deinitialize(ctx context.Context) error

	Address() string
	Sign(payload []byte) ([]byte, error)
}

type realWallet struct {
	address string
	logger  zerolog.Logger
}

// NewWallet constructs the realization backed by an actual address.
func NewWallet(address string, logger zerolog.Logger) Wallet {
	return &realWallet{address: address, logger: logger}
}

func (w *realWallet) Name() string                           { return "wallet" }
func (w *realWallet) Initialize(ctx context.Context) error    { return nil }
func (w *realWallet) Run(ctx context.Context) error           { return nil }
func (w *realWallet) Halt(ctx context.Context) error          { return nil }
func (w *realWallet) Deinitialize(ctx context.Context) error  { return nil }
func (w *realWallet) Address() string                         { return w.address }
func (w *realWallet) Sign(payload []byte) ([]byte, error) {
	return nil, fmt.Errorf("wallet: signing is not implemented")
}

// dummyWallet is the realization attached when no wallet is
// configured: it satisfies the capability so every module that
// resolves "wallet" still gets a usable instance, but refuses every
// operation.
type dummyWallet struct {
	logger zerolog.Logger
}

// NewDummyWallet constructs the disabled realization.
func NewDummyWallet(logger zerolog.Logger) Wallet {
	return &dummyWallet{logger: logger}
}

func (w *dummyWallet) Name() string                          { return "wallet" }
func (w *dummyWallet) Initialize(ctx context.Context) error  { return nil }
func (w *dummyWallet) Run(ctx context.Context) error          { return nil }
func (w *dummyWallet) Halt(ctx context.Context) error         { return nil }
func (w *dummyWallet) Deinitialize(ctx context.Context) error { return nil }
func (w *dummyWallet) Address() string                        { return "" }
func (w *dummyWallet) Sign(payload []byte) ([]byte, error) {
	return nil, fmt.Errorf("wallet: no wallet configured")
}
