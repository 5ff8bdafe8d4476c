// Package arena is a fixed-capacity, size-classed memory allocator.
//
// A Pool reserves one contiguous block from its SystemAllocator in Create. The block holds the pool's
// bookkeeping - a page occupancy bitmap, a size-class table and one metadata slot per page - followed by
// the data pages. Requests are rounded up to a multiple of the minimum chunk size and served from a
// slab of that size class: a run of pages split into equal chunks whose occupancy is tracked by a
// per-slab bitmap. Slabs are carved lazily and return their pages to the arena as soon as their last
// chunk is released.
//
// Requests larger than the maximum chunk size, and requests that arrive when no run of pages is free,
// are served by the overflow allocator, which calls the SystemAllocator directly and tracks each
// allocation so Release and Destroy can return it.
//
// Pools never grow, shrink or compact, and are not safe for concurrent use.
package arena
