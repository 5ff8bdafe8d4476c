package arena

import cerrors "github.com/cockroachdb/errors"

var (
	// ErrConfig is returned from Create when the requested geometry is invalid or the backing block
	// could not be allocated. No pool is returned alongside it.
	ErrConfig = cerrors.New("arena: invalid pool configuration")
	// ErrOutOfMemory is returned from Allocate when neither the slab path nor the overflow path could
	// service a request. The pool remains usable.
	ErrOutOfMemory = cerrors.New("arena: out of memory")
	// ErrInvalidFree is returned from Release when the address is not a live allocation of the pool:
	// foreign addresses, interior pointers and double frees all land here. The pool is left untouched.
	ErrInvalidFree = cerrors.New("arena: address is not a live allocation")
	// ErrInvalidSize is returned from Allocate for negative sizes
	ErrInvalidSize = cerrors.New("arena: invalid allocation size")
	// ErrDestroyed is returned by every operation on a pool after Destroy
	ErrDestroyed = cerrors.New("arena: pool has been destroyed")
	// ErrNotSupported is returned by system allocators that are unavailable on this platform
	ErrNotSupported = cerrors.New("arena: not supported on this platform")
)
