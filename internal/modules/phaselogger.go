package modules

import (
	"context"

	"github.com/rs/zerolog"
)

// PhaseLogger backs BLOCKMAKER, COREPROTOCOL, CONSENSUS, and
// FORKMANAGER: lifecycle no-ops that log their phase transitions.
// These are placeholders for the consensus/validation subsystem this
// node explicitly excludes.
type PhaseLogger struct {
	name   string
	logger zerolog.Logger
}

func NewPhaseLogger(name string, logger zerolog.Logger) *PhaseLogger {
	return &PhaseLogger{name: name, logger: logger}
}

func (m *PhaseLogger) Name() string { return m.name }

func (m *PhaseLogger) Initialize(ctx context.Context) error {
	m.logger.Debug().Str("module", m.name).Msg("initialize")
	return nil
}

func (m *PhaseLogger) Run(ctx context.Context) error {
	m.logger.Debug().Str("module", m.name).Msg("run")
	return nil
}

func (m *PhaseLogger) Halt(ctx context.Context) error {
	m.logger.Debug().Str("module", m.name).Msg("halt")
	return nil
}

func (m *PhaseLogger) Deinitialize(ctx context.Context) error {
	m.logger.Debug().Str("module", m.name).Msg("deinitialize")
	return nil
}

func NewBlockMaker(logger zerolog.Logger) *PhaseLogger   { return NewPhaseLogger("blockmaker", logger) }
func NewCoreProtocol(logger zerolog.Logger) *PhaseLogger { return NewPhaseLogger("coreprotocol", logger) }
func NewConsensus(logger zerolog.Logger) *PhaseLogger     { return NewPhaseLogger("consensus", logger) }
func NewForkManager(logger zerolog.Logger) *PhaseLogger   { return NewPhaseLogger("forkmanager", logger) }
