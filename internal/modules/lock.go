package modules

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/metabasenet/node/internal/errs"
)

// LockModule holds the data directory's exclusive advisory lock for
// the lifetime of the process. It is always the first module in the
// mode registry's ordering so no other module can touch the data
// directory before the lock is held, and the last to release it on
// shutdown.
type LockModule struct {
	name     string
	dataPath string
	logger   zerolog.Logger
	file     *os.File
}

// NewLockModule constructs the LOCK module; its lock file lives at
// <dataPath>/.lock.
func NewLockModule(dataPath string, logger zerolog.Logger) *LockModule {
	return &LockModule{name: "lock", dataPath: dataPath, logger: logger}
}

func (m *LockModule) Name() string { return m.name }

func (m *LockModule) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(m.dataPath, 0o755); err != nil {
		return errs.Wrap(errs.DirUnavailable, "create data directory", err)
	}

	path := filepath.Join(m.dataPath, ".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return errs.Wrap(errs.DirUnavailable, "open lock file", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return errs.Wrap(errs.LockContended, "data directory already locked by another process", err)
		}
		return errs.Wrap(errs.DirUnavailable, "acquire data directory lock", err)
	}

	m.file = f
	m.logger.Info().Str("path", path).Msg("lock: data directory locked")
	return nil
}

func (m *LockModule) Run(ctx context.Context) error { return nil }

func (m *LockModule) Halt(ctx context.Context) error { return nil }

func (m *LockModule) Deinitialize(ctx context.Context) error {
	if m.file == nil {
		return nil
	}
	_ = unix.Flock(int(m.file.Fd()), unix.LOCK_UN)
	err := m.file.Close()
	m.file = nil
	return err
}
