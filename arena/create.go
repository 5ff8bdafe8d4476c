package arena

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/vkngwrapper/slabarena/memutils"
	"github.com/vkngwrapper/slabarena/memutils/bitmap"
)

// CreateFlags indicate specific pool behaviors to activate or deactivate
type CreateFlags uint32

var createFlagsMapping = map[CreateFlags]string{}

func (f CreateFlags) Register(str string) {
	createFlagsMapping[f] = str
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit != 0; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := createFlagsMapping[bit]
		if !ok {
			name = fmt.Sprintf("CreateFlags(0x%x)", uint32(bit))
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

const (
	// PoolCreateDisableOverflow prevents the pool from ever calling its SystemAllocator after Create.
	// Requests the slab system cannot serve fail with ErrOutOfMemory instead.
	PoolCreateDisableOverflow CreateFlags = 1 << iota
)

func init() {
	PoolCreateDisableOverflow.Register("PoolCreateDisableOverflow")
}

const (
	// DefaultMinChunk is the smallest chunk size, and the granularity every chunk size is rounded to
	DefaultMinChunk int = 8
	// DefaultMaxChunk is the largest chunk size served from slabs when none is provided. It is equal to 128Kb.
	DefaultMaxChunk int = 128 * 1024
	// DefaultPageSize is the page size used unless the minimum chunk is larger. It is equal to 4Kb.
	DefaultPageSize int = 4 * 1024
	// MaxClassRatio is the largest permitted MaxChunk / MinChunk, which bounds the size-class table
	MaxClassRatio int = DefaultMaxChunk / DefaultMinChunk
)

// CreateOptions contains optional settings when creating a pool
type CreateOptions struct {
	// Flags indicates specific pool behaviors to activate or deactivate
	Flags CreateFlags
	// MinChunk is the smallest chunk size. It is raised to at least DefaultMinChunk and rounded up
	// to a multiple of it. Zero means DefaultMinChunk.
	MinChunk int
	// MaxChunk is the largest request served from slabs. Larger requests go to the overflow
	// allocator. It is rounded up to a multiple of MinChunk. Zero means DefaultMaxChunk.
	MaxChunk int

	// SystemAllocator provides the backing block and overflow allocations. HeapAllocator is used
	// when it is nil.
	SystemAllocator SystemAllocator
	// OverflowBudget caps the number of bytes that may be live in overflow allocations at once.
	// Zero means no cap. Requests beyond the cap fail with ErrOutOfMemory.
	OverflowBudget int

	// MemoryCallbackOptions is an optional set of callbacks that will be executed whenever the pool
	// allocates or frees system memory
	MemoryCallbackOptions *MemoryCallbackOptions
}

// Create reserves a pool able to hold at least capacity bytes of slab data in a single call to the
// SystemAllocator. After this call the pool serves requests up to MaxChunk without touching the
// SystemAllocator again.
//
// logger - Receives debug output for slab and overflow activity. May be nil.
//
// capacity - The minimum size in bytes of the data region. It is rounded up to a multiple of MaxChunk
// (or of DefaultMaxChunk when MaxChunk is smaller).
//
// options - Optional parameters: it is valid to leave all the fields blank
func Create(logger *slog.Logger, capacity int, options CreateOptions) (*Pool, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	minChunk := options.MinChunk
	if minChunk == 0 {
		minChunk = DefaultMinChunk
	}
	maxChunk := options.MaxChunk
	if maxChunk == 0 {
		maxChunk = DefaultMaxChunk
	}

	if minChunk < DefaultMinChunk {
		minChunk = DefaultMinChunk
	}
	if minChunk > math.MaxInt-DefaultMinChunk {
		return nil, cerrors.Wrapf(ErrConfig, "minimum chunk size %d is too large", minChunk)
	}
	minChunk = memutils.RoundUp(minChunk, DefaultMinChunk)

	if capacity < maxChunk {
		return nil, cerrors.Wrapf(ErrConfig, "capacity %d is smaller than the maximum chunk size %d", capacity, maxChunk)
	}
	if maxChunk < minChunk {
		return nil, cerrors.Wrapf(ErrConfig, "maximum chunk size %d is smaller than the minimum chunk size %d", maxChunk, minChunk)
	}
	if options.OverflowBudget < 0 {
		return nil, cerrors.Wrapf(ErrConfig, "overflow budget %d is negative", options.OverflowBudget)
	}
	if maxChunk > math.MaxInt-minChunk {
		return nil, cerrors.Wrapf(ErrConfig, "maximum chunk size %d is too large", maxChunk)
	}

	maxChunk = memutils.RoundUp(maxChunk, minChunk)
	if maxChunk/minChunk > MaxClassRatio {
		return nil, cerrors.Wrapf(ErrConfig, "maximum chunk size %d is more than %d times the minimum chunk size %d", maxChunk, MaxClassRatio, minChunk)
	}

	pageSize := DefaultPageSize
	if minChunk > pageSize {
		pageSize = minChunk
	}

	capacityBase := DefaultMaxChunk
	if maxChunk > capacityBase {
		capacityBase = maxChunk
	}
	if capacity > math.MaxInt-capacityBase {
		return nil, cerrors.Wrapf(ErrConfig, "capacity %d is too large", capacity)
	}
	capacity = memutils.RoundUp(capacity, capacityBase)

	if capacity/pageSize > int(^uint32(0)>>1) {
		return nil, cerrors.Wrapf(ErrConfig, "capacity %d needs more pages than a pool can index", capacity)
	}

	pool := &Pool{
		logger:         logger,
		flags:          options.Flags,
		system:         options.SystemAllocator,
		overflowBudget: options.OverflowBudget,
	}
	if pool.system == nil {
		pool.system = HeapAllocator{}
	}
	pool.callbacks = memoryCallbacks{
		Callbacks: options.MemoryCallbackOptions,
		Pool:      pool,
	}

	l := computeLayout(capacity, pageSize, minChunk, maxChunk)
	if l.Total < capacity {
		return nil, cerrors.Wrapf(ErrConfig, "capacity %d leaves no room for the pool's bookkeeping", capacity)
	}
	memutils.DebugValidate(l)

	block, err := pool.system.Alloc(l.Total)
	if err != nil {
		return nil, cerrors.Mark(cerrors.Wrapf(err, "failed to allocate the %d byte backing block", l.Total), ErrConfig)
	}
	if len(block) < l.Total {
		freeErr := pool.system.Free(block)
		return nil, cerrors.CombineErrors(
			cerrors.Wrapf(ErrConfig, "system allocator returned %d bytes for a %d byte backing block", len(block), l.Total),
			freeErr,
		)
	}
	block = block[:l.Total:l.Total]
	clear(block)

	pool.callbacks.Allocate(MemoryPurposeArena, l.Total)
	pool.bind(block, l)

	pool.header.PageCount = uint64(l.PageCount)
	pool.header.FreePages = uint64(l.PageCount)

	pool.overflow.Init()

	logger.LogAttrs(context.Background(), slog.LevelDebug, "Pool::Create",
		slog.Int("Capacity", capacity),
		slog.Int("PageSize", pageSize),
		slog.Int("PageCount", l.PageCount),
		slog.Int("MinChunk", minChunk),
		slog.Int("MaxChunk", maxChunk),
		slog.Int("ClassCount", l.ClassCount),
		slog.Int("TotalBytes", l.Total),
		slog.String("Flags", options.Flags.String()),
	)

	memutils.DebugValidate(pool)
	return pool, nil
}

// bind lays the pool's bookkeeping over the backing block
func (p *Pool) bind(block []byte, l layout) {
	p.block = block
	p.layout = l

	p.header = (*arenaHeader)(unsafe.Pointer(&block[l.Header.Offset]))
	p.pageMap = bitmap.Bitmap(block[l.PageMap.Offset:l.PageMap.end():l.PageMap.end()])
	p.classes = unsafe.Slice((*pageRef)(unsafe.Pointer(&block[l.Classes.Offset])), l.ClassCount)
	p.slots = unsafe.Slice((*pageSlot)(unsafe.Pointer(&block[l.Slots.Offset])), l.PageCount)

	usable := l.UsableBytes()
	p.data = block[l.Data.Offset : l.Data.Offset+usable : l.Data.Offset+usable]
	p.base = uintptr(unsafe.Pointer(&p.data[0]))
}
