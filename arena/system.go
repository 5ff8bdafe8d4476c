package arena

import cerrors "github.com/cockroachdb/errors"

//go:generate mockgen -source system.go -destination ./mocks/system_allocator.go -package mocks

// SystemAllocator is the underlying allocator a Pool draws from: once for its backing block in Create,
// and once per overflow allocation. Alloc must return a slice of exactly size bytes. Free receives the
// exact slice returned by Alloc.
type SystemAllocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte) error
}

// HeapAllocator serves system memory from the Go heap. It is the default SystemAllocator.
type HeapAllocator struct{}

var _ SystemAllocator = HeapAllocator{}

func (HeapAllocator) Alloc(size int) (buf []byte, err error) {
	if size < 0 {
		return nil, cerrors.Newf("cannot allocate %d bytes", size)
	}

	// make panics on lengths the runtime can never satisfy
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = cerrors.Newf("failed to allocate %d heap bytes: %v", size, r)
		}
	}()

	return make([]byte, size), nil
}

func (HeapAllocator) Free(buf []byte) error {
	return nil
}
