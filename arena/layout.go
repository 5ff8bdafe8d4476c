package arena

import (
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/vkngwrapper/slabarena/memutils"
	"github.com/vkngwrapper/slabarena/memutils/bitmap"
)

// layoutAlignment is the alignment of every region within the backing block
const layoutAlignment uint = 8

type region struct {
	Offset int
	Size   int
}

func (r region) end() int {
	return r.Offset + r.Size
}

// layout records where each bookkeeping structure lives within a pool's single backing block. It is
// computed once in Create and never changes.
type layout struct {
	PageSize   int
	PageCount  int
	MinChunk   int
	MaxChunk   int
	ClassCount int

	Header  region
	PageMap region
	Classes region
	Slots   region
	Data    region

	Total int
}

var _ memutils.Validatable = layout{}

func computeLayout(capacity, pageSize, minChunk, maxChunk int) layout {
	l := layout{
		PageSize:   pageSize,
		PageCount:  capacity / pageSize,
		MinChunk:   minChunk,
		MaxChunk:   maxChunk,
		ClassCount: maxChunk / minChunk,
	}

	offset := 0
	next := func(size int) region {
		r := region{Offset: offset, Size: size}
		offset = memutils.AlignUp(offset+size, layoutAlignment)
		return r
	}

	l.Header = next(int(unsafe.Sizeof(arenaHeader{})))
	l.PageMap = next(bitmap.Bytes(l.PageCount))
	l.Classes = next(l.ClassCount * int(unsafe.Sizeof(pageRef(0))))
	l.Slots = next(l.PageCount * int(unsafe.Sizeof(pageSlot{})))
	l.Data = next(capacity)
	l.Total = l.Data.end()

	return l
}

// UsableBytes is the portion of the data region covered by whole pages
func (l layout) UsableBytes() int {
	return l.PageCount * l.PageSize
}

func (l layout) Validate() error {
	if l.PageSize <= 0 || l.PageCount <= 0 || l.ClassCount <= 0 {
		return cerrors.Newf("layout has an empty geometry: page size %d, %d pages, %d classes", l.PageSize, l.PageCount, l.ClassCount)
	}
	if l.MinChunk <= 0 || l.MaxChunk%l.MinChunk != 0 || l.MaxChunk/l.MinChunk != l.ClassCount {
		return cerrors.Newf("layout has %d classes, which does not match chunk sizes %d to %d", l.ClassCount, l.MinChunk, l.MaxChunk)
	}

	regions := []struct {
		name string
		r    region
		want int
	}{
		{"header", l.Header, int(unsafe.Sizeof(arenaHeader{}))},
		{"page map", l.PageMap, bitmap.Bytes(l.PageCount)},
		{"class table", l.Classes, l.ClassCount * int(unsafe.Sizeof(pageRef(0)))},
		{"page slots", l.Slots, l.PageCount * int(unsafe.Sizeof(pageSlot{}))},
		{"data", l.Data, l.Data.Size},
	}

	end := 0
	for _, entry := range regions {
		if entry.r.Offset%int(layoutAlignment) != 0 {
			return cerrors.Newf("%s region at offset %d is not %d-byte aligned", entry.name, entry.r.Offset, layoutAlignment)
		}
		if entry.r.Offset < end {
			return cerrors.Newf("%s region at offset %d overlaps the previous region ending at %d", entry.name, entry.r.Offset, end)
		}
		if entry.r.Size != entry.want {
			return cerrors.Newf("%s region is %d bytes but should be %d", entry.name, entry.r.Size, entry.want)
		}
		end = entry.r.end()
	}

	if l.Data.Size < l.UsableBytes() {
		return cerrors.Newf("data region is %d bytes but %d pages of %d bytes were laid out", l.Data.Size, l.PageCount, l.PageSize)
	}

	if end != l.Total {
		return cerrors.Newf("layout total is %d bytes but its regions end at %d", l.Total, end)
	}

	return nil
}
