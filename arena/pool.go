package arena

import (
	"context"
	"log/slog"
	"math"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/vkngwrapper/slabarena/memutils"
	"github.com/vkngwrapper/slabarena/memutils/bitmap"
)

// Pool is a fixed-capacity arena that serves allocations from per-size-class slabs carved out of a
// single backing block. Requests larger than the maximum chunk size, or that arrive when the arena has
// no room, are served by an overflow allocator backed by the pool's SystemAllocator.
//
// Pool is not safe for concurrent use. Callers that share a pool between goroutines must serialize
// every call, including Destroy.
type Pool struct {
	logger         *slog.Logger
	flags          CreateFlags
	system         SystemAllocator
	callbacks      memoryCallbacks
	overflowBudget int

	block   []byte
	layout  layout
	header  *arenaHeader
	pageMap bitmap.Bitmap
	classes []pageRef
	slots   []pageSlot
	data    []byte
	base    uintptr

	overflow overflowList
}

var _ memutils.Validatable = &Pool{}

// PageSize returns the size in bytes of one page
func (p *Pool) PageSize() int { return p.layout.PageSize }

// PageCount returns the total number of pages in the arena
func (p *Pool) PageCount() int { return p.layout.PageCount }

// FreePages returns the number of pages not owned by any slab
func (p *Pool) FreePages() int {
	if p.header == nil {
		return 0
	}
	return int(p.header.FreePages)
}

// MinChunk returns the smallest chunk size, which is also the size-class granularity
func (p *Pool) MinChunk() int { return p.layout.MinChunk }

// MaxChunk returns the largest request size served from slabs
func (p *Pool) MaxChunk() int { return p.layout.MaxChunk }

// ClassCount returns the number of size classes
func (p *Pool) ClassCount() int { return p.layout.ClassCount }

// Capacity returns the number of bytes in the arena's pages
func (p *Pool) Capacity() int { return p.layout.UsableBytes() }

// Destroyed reports whether Destroy has been called
func (p *Pool) Destroyed() bool { return p.block == nil }

// Contains reports whether ptr points into the arena's pages. Overflow allocations are not contained.
func (p *Pool) Contains(ptr unsafe.Pointer) bool {
	if p.block == nil {
		return false
	}

	_, ok := p.arenaOffset(ptr)
	return ok
}

func (p *Pool) arenaOffset(ptr unsafe.Pointer) (int, bool) {
	addr := uintptr(ptr)
	if addr < p.base || addr-p.base >= uintptr(len(p.data)) {
		return 0, false
	}

	return int(addr - p.base), true
}

// MaxRequest returns the largest size Allocate accepts. Anything larger cannot be rounded to a chunk
// size without overflowing an int.
func (p *Pool) MaxRequest() int {
	return math.MaxInt - p.MinChunk() - memutils.DebugMargin
}

// ChunkSize returns the number of bytes actually reserved for a request of size bytes: size raised to
// MinChunk and rounded up to a multiple of it. It returns 0 for sizes above MaxRequest.
func (p *Pool) ChunkSize(size int) int {
	if size > p.MaxRequest() {
		return 0
	}

	minChunk := p.MinChunk()
	if size < minChunk {
		size = minChunk
	}
	return memutils.RoundUp(size, minChunk)
}

// Allocate returns a pointer to at least size bytes. Requests up to MaxChunk are served from a slab of
// their size class, and fall back to the overflow allocator when the arena has no free run of pages
// for a new slab. Larger requests always use the overflow allocator.
//
// When neither path can serve the request, Allocate returns nil and an error matching ErrOutOfMemory.
// The pool remains usable.
func (p *Pool) Allocate(size int) (unsafe.Pointer, error) {
	if p.block == nil {
		return nil, ErrDestroyed
	}
	if size < 0 {
		return nil, cerrors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}
	if size > p.MaxRequest() {
		return nil, cerrors.Wrapf(ErrOutOfMemory, "requested %d bytes, more than the largest possible request of %d", size, p.MaxRequest())
	}

	chunkSize := p.ChunkSize(size)
	memutils.DebugCheckMultiple(chunkSize, p.MinChunk(), "chunkSize")

	if chunkSize > p.MaxChunk() {
		return p.overflowAllocate(size, chunkSize)
	}

	class := p.classIndex(chunkSize)
	if head := p.classes[class]; head != noPage {
		if offset, ok := p.takeChunk(head); ok {
			memutils.DebugValidate(p)
			return p.pointer(offset), nil
		}
	}

	ref, ok := p.acquireSlab(chunkSize)
	if !ok {
		return p.overflowAllocate(size, chunkSize)
	}

	offset, ok := p.takeChunk(ref)
	if !ok {
		// A fresh slab always has room
		panic("a newly created slab had no free chunks")
	}

	memutils.DebugValidate(p)
	return p.pointer(offset), nil
}

// AllocateBytes is Allocate, returning the memory as a slice of length size. The slice's capacity is
// the full chunk reserved for the request.
func (p *Pool) AllocateBytes(size int) ([]byte, error) {
	ptr, err := p.Allocate(size)
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(ptr), p.ChunkSize(size))[:size], nil
}

func (p *Pool) pointer(offset int) unsafe.Pointer {
	return unsafe.Pointer(&p.data[offset])
}

// Release returns memory obtained from Allocate to the pool. When the last chunk of a slab is
// released, the slab's pages are returned to the arena.
//
// Addresses that are not live allocations of this pool - foreign pointers, pointers into the middle
// of a chunk, and pointers that were already released - return an error matching ErrInvalidFree and
// leave the pool untouched.
func (p *Pool) Release(ptr unsafe.Pointer) error {
	if p.block == nil {
		return ErrDestroyed
	}
	if ptr == nil {
		return cerrors.Wrap(ErrInvalidFree, "cannot release a nil pointer")
	}

	offset, inArena := p.arenaOffset(ptr)
	if !inArena {
		return p.overflowRelease(ptr)
	}

	pageSize := p.PageSize()
	ref := p.owner(offset / pageSize)
	if ref == noPage {
		return cerrors.Wrapf(ErrInvalidFree, "arena offset %d is not inside a live slab", offset)
	}

	s := p.slab(ref)
	relative := offset - ref.page()*pageSize
	chunkSize := int(s.ChunkSize)
	if relative%chunkSize != 0 {
		return cerrors.Wrapf(ErrInvalidFree, "arena offset %d is not the start of a %d byte chunk", offset, chunkSize)
	}

	index := relative / chunkSize
	if index >= int(s.Capacity) {
		return cerrors.Wrapf(ErrInvalidFree, "arena offset %d is past the last chunk of its slab", offset)
	}
	if !s.Chunks.Test(index) {
		return cerrors.Wrapf(ErrInvalidFree, "chunk at arena offset %d is already free", offset)
	}

	wasFull := s.Free == 0
	s.Chunks.Clear(index)
	s.Free++
	if index < int(s.Cursor) {
		s.Cursor = uint16(index)
	}

	if s.Free == s.Capacity {
		p.destroySlab(ref)
	} else if wasFull {
		p.promoteSlab(ref)
	}

	memutils.DebugValidate(p)
	return nil
}

// ReleaseBytes releases a slice obtained from AllocateBytes
func (p *Pool) ReleaseBytes(b []byte) error {
	if cap(b) == 0 {
		return cerrors.Wrap(ErrInvalidFree, "cannot release a slice without capacity")
	}

	return p.Release(unsafe.Pointer(unsafe.SliceData(b)))
}

// overflowAllocate serves a request of size bytes from the system allocator. reserved is the chunk
// size the caller may use, which the buffer covers before its debug margin.
func (p *Pool) overflowAllocate(size, reserved int) (unsafe.Pointer, error) {
	if p.flags&PoolCreateDisableOverflow != 0 {
		return nil, cerrors.Wrapf(ErrOutOfMemory, "no room in the arena for %d bytes and overflow is disabled", size)
	}
	if p.overflowBudget > 0 && size > p.overflowBudget-p.overflow.bytes {
		return nil, cerrors.Wrapf(ErrOutOfMemory, "%d overflow bytes would exceed the overflow budget of %d with %d bytes live", size, p.overflowBudget, p.overflow.bytes)
	}

	buf, err := p.system.Alloc(reserved + memutils.DebugMargin)
	if err != nil {
		return nil, cerrors.Mark(cerrors.Wrapf(err, "failed to allocate %d overflow bytes", reserved), ErrOutOfMemory)
	}
	if len(buf) < reserved+memutils.DebugMargin {
		freeErr := p.system.Free(buf)
		return nil, cerrors.CombineErrors(
			cerrors.Wrapf(ErrOutOfMemory, "system allocator returned %d bytes for a %d byte overflow allocation", len(buf), reserved),
			freeErr,
		)
	}

	memutils.WriteMagicValue(buf[reserved:])

	node := &overflowNode{
		buf:      buf,
		addr:     uintptr(unsafe.Pointer(&buf[0])),
		size:     size,
		reserved: reserved,
	}
	p.overflow.Register(node)
	p.callbacks.Allocate(MemoryPurposeOverflow, len(buf))

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Allocated as overflow",
		slog.Int("Size", size),
		slog.Int("OverflowCount", p.overflow.count))

	memutils.DebugValidate(p)
	return unsafe.Pointer(&buf[0]), nil
}

func (p *Pool) overflowRelease(ptr unsafe.Pointer) error {
	node, ok := p.overflow.Find(uintptr(ptr))
	if !ok {
		return cerrors.Wrapf(ErrInvalidFree, "address %p is neither in the arena nor a live overflow allocation", ptr)
	}

	if !memutils.ValidateMagicValue(node.buf[node.reserved:]) {
		p.logger.LogAttrs(context.Background(), slog.LevelError, "memory corruption detected after overflow allocation",
			slog.Int("Size", node.size))
	}

	p.overflow.Unregister(node)
	err := p.freeOverflowNode(node)

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Freed overflow",
		slog.Int("Size", node.size),
		slog.Int("OverflowCount", p.overflow.count))

	memutils.DebugValidate(p)
	return err
}

func (p *Pool) freeOverflowNode(node *overflowNode) error {
	size := len(node.buf)
	err := p.system.Free(node.buf)
	node.buf = nil
	if err != nil {
		return cerrors.Wrapf(err, "failed to free %d overflow bytes", size)
	}

	p.callbacks.Free(MemoryPurposeOverflow, size)
	return nil
}

// Destroy returns every overflow allocation and then the whole backing block to the SystemAllocator.
// Allocations that are still live are logged as unreleased but do not prevent destruction. After
// Destroy, every operation on the pool returns ErrDestroyed.
func (p *Pool) Destroy() error {
	if p.block == nil {
		return ErrDestroyed
	}

	p.logUnreleasedMemory()

	var err error
	for node := p.overflow.head; node != nil; {
		next := node.next
		p.overflow.Unregister(node)
		err = cerrors.CombineErrors(err, p.freeOverflowNode(node))
		node = next
	}

	size := len(p.block)
	freeErr := p.system.Free(p.block)
	if freeErr != nil {
		err = cerrors.CombineErrors(err, cerrors.Wrapf(freeErr, "failed to free the %d byte backing block", size))
	} else {
		p.callbacks.Free(MemoryPurposeArena, size)
	}

	p.block = nil
	p.header = nil
	p.pageMap = nil
	p.classes = nil
	p.slots = nil
	p.data = nil
	p.base = 0

	return err
}

func (p *Pool) logUnreleasedMemory() {
	_ = p.visitSlabs(func(ref pageRef, s *slabHeader) error {
		p.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] slab with live chunks",
			slog.Int("slab.page", ref.page()),
			slog.Uint64("ChunkSize", s.ChunkSize),
			slog.Int("LiveChunks", int(s.Capacity-s.Free)),
		)
		return nil
	})

	if p.overflow.IsEmpty() {
		return
	}

	for node := p.overflow.head; node != nil; node = node.next {
		p.logger.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] overflow allocation",
			slog.Int("Size", node.size),
		)
	}
}
