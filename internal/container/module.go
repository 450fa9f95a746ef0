// Package container implements the module orchestration kernel: a
// named registry of long-lived service objects driven through a
// four-phase lifecycle in deterministic attach order, with typed
// capability lookup replacing runtime type identification.
package container

import "context"

// Module is the lifecycle interface every attached object implements.
// Name must be stable for the lifetime of the instance; the
// container uses it as the sole lookup key.
type Module interface {
	Name() string
	Initialize(ctx context.Context) error
	Run(ctx context.Context) error
	Halt(ctx context.Context) error
	Deinitialize(ctx context.Context) error
}
