// Package bitmap provides bit-per-unit occupancy tracking over byte buffers. Bit n lives in byte n/8 at
// position n%8, so a zeroed buffer is an empty bitmap.
package bitmap

import (
	"math/bits"

	cerrors "github.com/cockroachdb/errors"
)

// ErrCapacity is returned when a bitmap is asked to track more units than it has room for
var ErrCapacity = cerrors.New("bitmap capacity exceeded")

// Bytes returns the number of bytes required to hold count bits
func Bytes(count int) int {
	return (count + 7) / 8
}

// Bitmap is a view over a byte buffer. It does not own the buffer, so a Bitmap can be laid over
// memory carved from a larger block.
type Bitmap []byte

// Len returns the number of bits the bitmap can address
func (b Bitmap) Len() int {
	return len(b) * 8
}

func (b Bitmap) Set(n int) {
	b[n/8] |= 1 << (n % 8)
}

func (b Bitmap) Clear(n int) {
	b[n/8] &^= 1 << (n % 8)
}

func (b Bitmap) Test(n int) bool {
	return b[n/8]&(1<<(n%8)) != 0
}

// SetRange sets count bits starting at start
func (b Bitmap) SetRange(start, count int) {
	for n := start; n < start+count; n++ {
		b.Set(n)
	}
}

// ClearRange clears count bits starting at start
func (b Bitmap) ClearRange(start, count int) {
	for n := start; n < start+count; n++ {
		b.Clear(n)
	}
}

// FindClear returns the index of the first clear bit in [from, limit), or -1 if every bit in the
// range is set.
func (b Bitmap) FindClear(from, limit int) int {
	for n := from; n < limit; {
		free := ^b[n/8] >> (n % 8)
		if free == 0 {
			// Rest of this byte is full
			n = (n/8 + 1) * 8
			continue
		}

		n += bits.TrailingZeros8(free)
		if n >= limit {
			return -1
		}
		return n
	}

	return -1
}

// FindClearRun returns the index of the first run of count contiguous clear bits in [0, limit), or -1
// if no such run exists. The scan is first-fit and linear in limit.
func (b Bitmap) FindClearRun(count, limit int) int {
	if count <= 0 {
		return -1
	}

	run := 0
	for n := 0; n < limit; n++ {
		if n%8 == 0 && n+8 <= limit && b[n/8] == 0xFF {
			run = 0
			n += 7
			continue
		}

		if b.Test(n) {
			run = 0
			continue
		}

		run++
		if run == count {
			return n - count + 1
		}
	}

	return -1
}

// Count returns the number of set bits in [0, limit)
func (b Bitmap) Count(limit int) int {
	total := 0
	whole := limit / 8
	for i := 0; i < whole; i++ {
		total += bits.OnesCount8(b[i])
	}

	for n := whole * 8; n < limit; n++ {
		if b.Test(n) {
			total++
		}
	}

	return total
}
