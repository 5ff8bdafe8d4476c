package arena

import (
	"context"
	"log/slog"

	"github.com/vkngwrapper/slabarena/memutils"
	"github.com/vkngwrapper/slabarena/memutils/bitmap"
)

// pageRef identifies a page by index+1 so that zeroed memory reads as "no page"
type pageRef uint32

const noPage pageRef = 0

func refOf(page int) pageRef {
	return pageRef(page + 1)
}

func (r pageRef) page() int {
	return int(r) - 1
}

// arenaHeader holds the pool's mutable counters. It lives at the start of the backing block.
type arenaHeader struct {
	PageCount uint64
	FreePages uint64

	UsedHead  pageRef
	UsedCount uint32
}

// slabHeader describes a run of pages split into equal chunks of one size class. A slab is identified
// by its start page, and its header lives in that page's slot.
type slabHeader struct {
	ChunkSize uint64
	PageCount uint32
	Capacity  uint16
	Free      uint16
	Cursor    uint16

	// size-class chain
	Next pageRef
	Prev pageRef

	Chunks bitmap.Fixed
}

// pageSlot is the fixed per-page metadata reserved at creation. Only the start page of a slab uses
// its slab header, but every page of the run records its owner.
type pageSlot struct {
	Slab slabHeader
	Used usedNode
}

func (p *Pool) slab(ref pageRef) *slabHeader {
	return &p.slots[ref.page()].Slab
}

func (p *Pool) classIndex(chunkSize int) int {
	return chunkSize/p.MinChunk() - 1
}

// slabPageCounts returns the page counts to try, in order, for a new slab of chunkSize. A zero entry
// means no further candidate.
func (p *Pool) slabPageCounts(chunkSize int) [2]int {
	pageSize := p.PageSize()

	switch {
	case chunkSize <= pageSize/2:
		return [2]int{1, 0}
	case chunkSize <= pageSize:
		return [2]int{2, 1}
	default:
		// Double up so the next few allocations of this class don't need new pages
		need := memutils.DivCeil(chunkSize, pageSize)
		return [2]int{2 * need, need}
	}
}

// acquireSlab carves a new slab for chunkSize out of the first free run of pages that fits, and links
// it as the head of its class and of the used-list. It returns false when no run is available.
func (p *Pool) acquireSlab(chunkSize int) (pageRef, bool) {
	pageSize := p.PageSize()

	for _, pageCount := range p.slabPageCounts(chunkSize) {
		if pageCount == 0 || uint64(pageCount) > p.header.FreePages {
			continue
		}

		capacity := pageCount * pageSize / chunkSize
		if capacity == 0 || bitmap.CheckCapacity(capacity) != nil {
			continue
		}

		start := p.pageMap.FindClearRun(pageCount, p.PageCount())
		if start < 0 {
			continue
		}

		return p.initSlab(start, pageCount, chunkSize, capacity), true
	}

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "    No page run for slab",
		slog.Int("ChunkSize", chunkSize),
		slog.Uint64("FreePages", p.header.FreePages))
	return noPage, false
}

func (p *Pool) initSlab(start, pageCount, chunkSize, capacity int) pageRef {
	ref := refOf(start)

	p.pageMap.SetRange(start, pageCount)
	p.header.FreePages -= uint64(pageCount)

	slots := p.slots[start : start+pageCount]
	clear(slots)
	for i := range slots {
		slots[i].Used.Owner = ref
	}

	s := p.slab(ref)
	s.ChunkSize = uint64(chunkSize)
	s.PageCount = uint32(pageCount)
	s.Capacity = uint16(capacity)
	s.Free = uint16(capacity)

	p.pushClassHead(ref)
	p.pushUsed(ref)

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Created slab",
		slog.Int("slab.page", start),
		slog.Int("PageCount", pageCount),
		slog.Int("ChunkSize", chunkSize),
		slog.Int("Capacity", capacity))

	return ref
}

// destroySlab returns an empty slab's pages to the arena
func (p *Pool) destroySlab(ref pageRef) {
	s := p.slab(ref)
	start := ref.page()
	pageCount := int(s.PageCount)

	p.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Deleted empty slab",
		slog.Int("slab.page", start),
		slog.Int("PageCount", pageCount),
		slog.Uint64("ChunkSize", s.ChunkSize))

	p.unlinkClass(ref)
	p.unlinkUsed(ref)

	clear(p.slots[start : start+pageCount])
	p.pageMap.ClearRange(start, pageCount)
	p.header.FreePages += uint64(pageCount)
}

// takeChunk marks the next free chunk of a slab as used. It returns false when the slab is full.
func (p *Pool) takeChunk(ref pageRef) (int, bool) {
	s := p.slab(ref)
	if s.Free == 0 {
		return 0, false
	}

	capacity := int(s.Capacity)
	index := int(s.Cursor)
	if index >= capacity || s.Chunks.Test(index) {
		index = s.Chunks.Bits().FindClear(0, capacity)
		if index < 0 {
			return 0, false
		}
	}

	s.Chunks.Set(index)
	s.Free--
	s.Cursor = uint16(index + 1)

	return ref.page()*p.PageSize() + index*int(s.ChunkSize), true
}

func (p *Pool) pushClassHead(ref pageRef) {
	s := p.slab(ref)
	class := p.classIndex(int(s.ChunkSize))

	s.Prev = noPage
	s.Next = p.classes[class]
	if s.Next != noPage {
		p.slab(s.Next).Prev = ref
	}
	p.classes[class] = ref
}

func (p *Pool) unlinkClass(ref pageRef) {
	s := p.slab(ref)
	class := p.classIndex(int(s.ChunkSize))

	if s.Prev != noPage {
		p.slab(s.Prev).Next = s.Next
	} else {
		p.classes[class] = s.Next
	}

	if s.Next != noPage {
		p.slab(s.Next).Prev = s.Prev
	}

	s.Next = noPage
	s.Prev = noPage
}

// promoteSlab moves a slab to the head of its class so the next allocation of that class finds its
// free chunks before new pages are carved
func (p *Pool) promoteSlab(ref pageRef) {
	s := p.slab(ref)
	if p.classes[p.classIndex(int(s.ChunkSize))] == ref {
		return
	}

	p.unlinkClass(ref)
	p.pushClassHead(ref)
}
