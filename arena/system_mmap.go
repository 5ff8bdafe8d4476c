//go:build linux || darwin

package arena

import (
	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapAllocator serves system memory from private anonymous mappings. Memory is zeroed by the kernel
// and is returned to the OS as soon as it is freed, which suits large arenas that are destroyed as a
// unit.
type MmapAllocator struct{}

var _ SystemAllocator = MmapAllocator{}

func (MmapAllocator) Alloc(size int) ([]byte, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, cerrors.Wrapf(err, "failed to map %d anonymous bytes", size)
	}
	return buf, nil
}

func (MmapAllocator) Free(buf []byte) error {
	return unix.Munmap(buf)
}
