package arena

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/vkngwrapper/slabarena/memutils"
	"github.com/vkngwrapper/slabarena/memutils/bitmap"
)

// Validate performs internal consistency checks across the page bitmap, the per-page slots, the
// size-class lists, the used-list and the overflow list. It is linear in the number of pages and
// classes, and should generally only be called for diagnostic purposes.
func (p *Pool) Validate() error {
	if p.block == nil {
		return ErrDestroyed
	}

	err := p.layout.Validate()
	if err != nil {
		return err
	}

	pageCount := p.PageCount()
	if p.header.PageCount != uint64(pageCount) {
		return cerrors.Newf("the header lists %d pages but the layout has %d", p.header.PageCount, pageCount)
	}

	occupied := p.pageMap.Count(pageCount)
	if p.FreePages()+occupied != pageCount {
		return cerrors.Newf("the pool has %d free pages and %d occupied pages, which does not add up to %d", p.FreePages(), occupied, pageCount)
	}

	for n := pageCount; n < p.pageMap.Len(); n++ {
		if p.pageMap.Test(n) {
			return cerrors.Newf("page bit %d is set but the pool only has %d pages", n, pageCount)
		}
	}

	usedCount := 0
	slabPages := 0
	prev := noPage
	err = p.visitSlabs(func(ref pageRef, s *slabHeader) error {
		usedCount++
		if usedCount > pageCount {
			return cerrors.New("the used-list is longer than the number of pages, it probably contains a cycle")
		}

		if p.used(ref).Prev != prev {
			return cerrors.Newf("slab at page %d is in the used-list, but the reverse reference is broken", ref.page())
		}
		prev = ref

		err := p.validateSlab(ref, s)
		if err != nil {
			return err
		}

		slabPages += int(s.PageCount)
		return nil
	})
	if err != nil {
		return err
	}

	if usedCount != int(p.header.UsedCount) {
		return cerrors.Newf("the header lists %d live slabs but the used-list holds %d", p.header.UsedCount, usedCount)
	}
	if slabPages != occupied {
		return cerrors.Newf("live slabs cover %d pages but %d pages are marked occupied", slabPages, occupied)
	}

	for page := 0; page < pageCount; page++ {
		owner := p.owner(page)
		if (owner != noPage) != p.pageMap.Test(page) {
			return cerrors.Newf("page %d has owner %d but its occupancy bit is %t", page, owner.page(), p.pageMap.Test(page))
		}
		if owner == noPage {
			continue
		}

		start := owner.page()
		if page < start || page >= start+int(p.slab(owner).PageCount) {
			return cerrors.Newf("page %d is owned by the slab at page %d, which does not cover it", page, start)
		}
	}

	classSlabs := 0
	for class, head := range p.classes {
		chunkSize := (class + 1) * p.MinChunk()
		prev := noPage

		for ref := head; ref != noPage; ref = p.slab(ref).Next {
			classSlabs++
			if classSlabs > usedCount {
				return cerrors.New("the size-class lists hold more slabs than the used-list")
			}

			s := p.slab(ref)
			if p.owner(ref.page()) != ref {
				return cerrors.Newf("size class %d lists a slab at page %d that is not live", chunkSize, ref.page())
			}
			if int(s.ChunkSize) != chunkSize {
				return cerrors.Newf("size class %d lists a slab at page %d with chunk size %d", chunkSize, ref.page(), s.ChunkSize)
			}
			if s.Prev != prev {
				return cerrors.Newf("slab at page %d is in size class %d, but the reverse reference is broken", ref.page(), chunkSize)
			}
			prev = ref
		}
	}

	if classSlabs != usedCount {
		return cerrors.Newf("the size-class lists hold %d slabs but the used-list holds %d", classSlabs, usedCount)
	}

	return p.overflow.Validate()
}

func (p *Pool) validateSlab(ref pageRef, s *slabHeader) error {
	start := ref.page()
	pageCount := int(s.PageCount)
	if pageCount == 0 || start+pageCount > p.PageCount() {
		return cerrors.Newf("slab at page %d spans %d pages, which does not fit the arena", start, pageCount)
	}

	chunkSize := int(s.ChunkSize)
	if chunkSize < p.MinChunk() || chunkSize > p.MaxChunk() {
		return cerrors.Newf("slab at page %d has chunk size %d outside of [%d, %d]", start, chunkSize, p.MinChunk(), p.MaxChunk())
	}
	err := memutils.CheckMultiple(chunkSize, p.MinChunk(), "chunk size")
	if err != nil {
		return cerrors.Wrapf(err, "slab at page %d", start)
	}

	capacity := pageCount * p.PageSize() / chunkSize
	if int(s.Capacity) != capacity {
		return cerrors.Newf("slab at page %d lists a capacity of %d chunks but its pages hold %d", start, s.Capacity, capacity)
	}
	err = bitmap.CheckCapacity(capacity)
	if err != nil {
		return cerrors.Wrapf(err, "slab at page %d", start)
	}

	live := s.Chunks.Bits().Count(capacity)
	if int(s.Free)+live != capacity {
		return cerrors.Newf("slab at page %d has %d free and %d live chunks, which does not add up to %d", start, s.Free, live, capacity)
	}
	if s.Chunks.Bits().Count(bitmap.FixedCapacity) != live {
		return cerrors.Newf("slab at page %d has chunk bits set past its capacity", start)
	}
	if s.Free == s.Capacity {
		return cerrors.Newf("slab at page %d is empty but still live", start)
	}

	for page := start; page < start+pageCount; page++ {
		if p.owner(page) != ref {
			return cerrors.Newf("page %d belongs to the slab at page %d but lists a different owner", page, start)
		}
	}

	return nil
}

// CheckCorruption verifies the corruption markers written after every overflow allocation. Markers
// are only written when built with the debug_mem_utils build tag; otherwise this always succeeds.
func (p *Pool) CheckCorruption() error {
	if p.block == nil {
		return ErrDestroyed
	}

	for node := p.overflow.head; node != nil; node = node.next {
		if !memutils.ValidateMagicValue(node.buf[node.reserved:]) {
			return cerrors.Newf("memory corruption detected after the %d byte overflow allocation at %#x", node.size, node.addr)
		}
	}

	return nil
}
