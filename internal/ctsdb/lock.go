package ctsdb

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/metabasenet/node/internal/errs"
)

// acquireLock takes a non-blocking advisory exclusive lock on a
// zero-length file at path, for the calling process's lifetime. The
// OS releases the lock automatically on process exit even if
// releaseLock is never called.
func acquireLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.DirUnavailable, "open lock file", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errs.Wrap(errs.LockContended, "database already locked by another process", err)
		}
		return nil, errs.Wrap(errs.DirUnavailable, "acquire lock", err)
	}

	return f, nil
}

func releaseLock(f *os.File) error {
	if f == nil {
		return nil
	}
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return f.Close()
}
