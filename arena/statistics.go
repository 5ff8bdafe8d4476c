package arena

import (
	"strconv"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics summarizes how a pool's memory is being used
type Statistics struct {
	PageSize  int
	PageCount int
	FreePages int

	// SlabCount is the number of live slabs and SlabBytes the bytes in their pages
	SlabCount int
	SlabBytes int
	// ChunkCount is the number of live chunks across all slabs and ChunkBytes the bytes they reserve
	ChunkCount int
	ChunkBytes int
	// FreeChunkCount is the number of chunks in live slabs that are available for allocation
	FreeChunkCount int

	OverflowCount int
	OverflowBytes int
}

// ClassStatistics summarizes the slabs of a single size class
type ClassStatistics struct {
	ChunkSize     int
	SlabCount     int
	ChunkCapacity int
	LiveChunks    int
}

func (s *ClassStatistics) addSlab(slab *slabHeader) {
	s.SlabCount++
	s.ChunkCapacity += int(slab.Capacity)
	s.LiveChunks += int(slab.Capacity - slab.Free)
}

// Stats returns a snapshot of the pool's usage. A destroyed pool reports zero values.
func (p *Pool) Stats() Statistics {
	var stats Statistics
	if p.block == nil {
		return stats
	}

	stats.PageSize = p.PageSize()
	stats.PageCount = p.PageCount()
	stats.FreePages = p.FreePages()

	_ = p.visitSlabs(func(ref pageRef, s *slabHeader) error {
		live := int(s.Capacity - s.Free)

		stats.SlabCount++
		stats.SlabBytes += int(s.PageCount) * stats.PageSize
		stats.ChunkCount += live
		stats.ChunkBytes += live * int(s.ChunkSize)
		stats.FreeChunkCount += int(s.Free)
		return nil
	})

	stats.OverflowCount = p.overflow.count
	stats.OverflowBytes = p.overflow.bytes

	return stats
}

// ClassStats returns statistics for every size class that currently has slabs, ordered by chunk size
func (p *Pool) ClassStats() []ClassStatistics {
	if p.block == nil {
		return nil
	}

	var classes []ClassStatistics
	for class, head := range p.classes {
		if head == noPage {
			continue
		}

		stats := ClassStatistics{ChunkSize: (class + 1) * p.MinChunk()}
		for ref := head; ref != noPage; ref = p.slab(ref).Next {
			stats.addSlab(p.slab(ref))
		}
		classes = append(classes, stats)
	}

	return classes
}

// BuildStatsString returns a JSON document describing the pool's usage. When detailedMap is true, the
// document also lists every live slab and overflow allocation.
func (p *Pool) BuildStatsString(detailedMap bool) string {
	writer := jwriter.NewWriter()
	obj := writer.Object()

	if p.block != nil {
		stats := p.Stats()

		total := obj.Name("Total").Object()
		total.Name("PageSize").Int(stats.PageSize)
		total.Name("Pages").Int(stats.PageCount)
		total.Name("FreePages").Int(stats.FreePages)
		total.Name("Slabs").Int(stats.SlabCount)
		total.Name("SlabBytes").Int(stats.SlabBytes)
		total.Name("Chunks").Int(stats.ChunkCount)
		total.Name("ChunkBytes").Int(stats.ChunkBytes)
		total.Name("FreeChunks").Int(stats.FreeChunkCount)
		total.Name("OverflowAllocations").Int(stats.OverflowCount)
		total.Name("OverflowBytes").Int(stats.OverflowBytes)
		total.End()

		classes := obj.Name("Classes").Object()
		for _, class := range p.ClassStats() {
			classObj := classes.Name(strconv.Itoa(class.ChunkSize)).Object()
			classObj.Name("Slabs").Int(class.SlabCount)
			classObj.Name("ChunkCapacity").Int(class.ChunkCapacity)
			classObj.Name("LiveChunks").Int(class.LiveChunks)
			classObj.End()
		}
		classes.End()

		if detailedMap {
			p.printDetailedMap(&obj)
		}
	}

	obj.End()
	return string(writer.Bytes())
}

func (p *Pool) printDetailedMap(json *jwriter.ObjectState) {
	detailed := json.Name("DetailedMap").Object()
	defer detailed.End()

	slabs := detailed.Name("Slabs").Object()
	_ = p.visitSlabs(func(ref pageRef, s *slabHeader) error {
		slabObj := slabs.Name(strconv.Itoa(ref.page())).Object()
		defer slabObj.End()

		slabObj.Name("Pages").Int(int(s.PageCount))
		slabObj.Name("ChunkSize").Int(int(s.ChunkSize))
		slabObj.Name("Capacity").Int(int(s.Capacity))
		slabObj.Name("Free").Int(int(s.Free))
		return nil
	})
	slabs.End()

	overflow := detailed.Name("Overflow").Array()
	p.overflow.BuildStatsString(&overflow)
	overflow.End()
}
