package container

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/metabasenet/node/internal/errs"
	"github.com/metabasenet/node/internal/eventbus"
)

// Phase is the container's own lifecycle state, advancing
// monotonically: Constructed -> Initialized -> Running -> Halted ->
// Deinitialized.
type Phase int

const (
	Constructed Phase = iota
	Initialized
	Running
	Halted
	Deinitialized
)

func (p Phase) String() string {
	switch p {
	case Constructed:
		return "constructed"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Deinitialized:
		return "deinitialized"
	default:
		return "unknown"
	}
}

// Container is the process-wide owner of attached modules. Attach is
// only safe to call during entry, before Run; it is not internally
// synchronized.
type Container struct {
	order   []string
	modules map[string]Module
	phase   Phase
	logger  zerolog.Logger
	bus     eventbus.Bus
}

// New returns an empty Container. bus is handed to modules that need
// to publish or subscribe without holding direct references to one
// another; pass a memory-backed bus (eventbus.Open(eventbus.Config{}))
// if the caller has none configured.
func New(logger zerolog.Logger, bus eventbus.Bus) *Container {
	return &Container{
		modules: make(map[string]Module),
		logger:  logger,
		bus:     bus,
	}
}

// Bus returns the event bus modules use to avoid holding direct
// references to one another.
func (c *Container) Bus() eventbus.Bus { return c.bus }

// Phase returns the container's current lifecycle phase.
func (c *Container) Phase() Phase { return c.phase }

// Attach registers m under its declared name, in call order. It
// returns false without registering m if the name is already taken;
// the caller is responsible for discarding the rejected instance.
func (c *Container) Attach(m Module) bool {
	name := m.Name()
	if _, exists := c.modules[name]; exists {
		return false
	}
	c.modules[name] = m
	c.order = append(c.order, name)
	return true
}

// GetObject looks up a module by its exact name.
func (c *Container) GetObject(name string) (Module, bool) {
	m, ok := c.modules[name]
	return m, ok
}

// GetCapability looks up a module by name and asserts it satisfies T,
// replacing a heterogeneous map plus downcast with a single typed
// lookup. It returns the zero value of T and false if the name is
// unattached or the module does not implement T.
func GetCapability[T any](c *Container, name string) (T, bool) {
	var zero T
	m, ok := c.GetObject(name)
	if !ok {
		return zero, false
	}
	t, ok := m.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Initialize calls Initialize on every attached module in attach
// order. If any module fails, the modules already initialized are
// Halted and Deinitialized in reverse order and Initialize returns
// ModuleInitFailed; no module reaches Run.
func (c *Container) Initialize(ctx context.Context) error {
	for i, name := range c.order {
		m := c.modules[name]
		if err := m.Initialize(ctx); err != nil {
			c.logger.Error().Str("module", name).Err(err).Msg("container: module initialization failed, unwinding")
			c.unwind(ctx, c.order[:i])
			return errs.ModuleInitFailure(name, err)
		}
	}
	c.phase = Initialized
	return nil
}

// unwind Halts then Deinitializes the named modules in reverse order,
// logging and swallowing individual failures.
func (c *Container) unwind(ctx context.Context, names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		m := c.modules[name]
		if err := m.Halt(ctx); err != nil {
			c.logger.Warn().Str("module", name).Err(err).Msg("container: halt failed during unwind")
		}
		if err := m.Deinitialize(ctx); err != nil {
			c.logger.Warn().Str("module", name).Err(err).Msg("container: deinitialize failed during unwind")
		}
	}
}

// Run initializes every attached module (see Initialize) and, on
// success, calls Run on each in attach order. The container never
// partially runs: either every module reaches Run, or, on failure,
// every already-initialized module is Halted and Deinitialized in
// reverse order before Run returns, leaving none of them running.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	for _, name := range c.order {
		if err := c.modules[name].Run(ctx); err != nil {
			c.logger.Error().Str("module", name).Err(err).Msg("container: module run failed, unwinding")
			c.unwind(ctx, c.order)
			return fmt.Errorf("container: module %q run failed: %w", name, err)
		}
	}
	c.phase = Running
	return nil
}

// Halt calls Halt on every attached module in reverse attach order,
// logging but continuing past individual failures, and returns the
// first error encountered (if any) once every module has been asked
// to halt.
func (c *Container) Halt(ctx context.Context) error {
	var firstErr error
	for i := len(c.order) - 1; i >= 0; i-- {
		name := c.order[i]
		if err := c.modules[name].Halt(ctx); err != nil {
			c.logger.Warn().Str("module", name).Err(err).Msg("container: halt failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("container: module %q halt failed: %w", name, err)
			}
		}
	}
	c.phase = Halted
	return firstErr
}

// Deinitialize calls Deinitialize on every attached module in reverse
// attach order, logging but continuing past individual failures.
func (c *Container) Deinitialize(ctx context.Context) error {
	var firstErr error
	for i := len(c.order) - 1; i >= 0; i-- {
		name := c.order[i]
		if err := c.modules[name].Deinitialize(ctx); err != nil {
			c.logger.Warn().Str("module", name).Err(err).Msg("container: deinitialize failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("container: module %q deinitialize failed: %w", name, err)
			}
		}
	}
	c.phase = Deinitialized
	return firstErr
}

// Exit performs best-effort shutdown: Halt then Deinitialize on every
// module in reverse attach order, logging but swallowing individual
// failures. It never returns an error.
func (c *Container) Exit(ctx context.Context) {
	if err := c.Halt(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("container: halt reported errors during exit")
	}
	if err := c.Deinitialize(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("container: deinitialize reported errors during exit")
	}
}
