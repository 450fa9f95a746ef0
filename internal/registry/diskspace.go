package registry

import (
	"fmt"
	"syscall"
)

// DiskCapacity reports free/total/used bytes for the filesystem
// holding path.
type DiskCapacity struct {
	Total     int64
	Used      int64
	Available int64
}

// GetDiskCapacity statfs(2)s path and reports its capacity. Used by
// the entry sequencer's environment check (spec step 2: require at
// least a configured minimum of free space before any module touches
// the data directory).
func GetDiskCapacity(path string) (*DiskCapacity, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, fmt.Errorf("registry: statfs %s: %w", path, err)
	}

	total := int64(stat.Blocks) * int64(stat.Bsize)
	available := int64(stat.Bavail) * int64(stat.Bsize)
	used := total - available

	return &DiskCapacity{
		Total:     total,
		Used:      used,
		Available: available,
	}, nil
}
