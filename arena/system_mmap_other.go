//go:build !linux && !darwin

package arena

// MmapAllocator serves system memory from private anonymous mappings. It is not available on this
// platform and every call returns ErrNotSupported.
type MmapAllocator struct{}

var _ SystemAllocator = MmapAllocator{}

func (MmapAllocator) Alloc(size int) ([]byte, error) {
	return nil, ErrNotSupported
}

func (MmapAllocator) Free(buf []byte) error {
	return ErrNotSupported
}
