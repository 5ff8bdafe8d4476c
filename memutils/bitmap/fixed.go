package bitmap

import cerrors "github.com/cockroachdb/errors"

// FixedCapacity is the most bits a Fixed bitmap can track
const FixedCapacity = 512

// Fixed is a bitmap with a hard capacity of FixedCapacity bits. It contains no pointers and can be
// stored inside raw memory blocks.
type Fixed [FixedCapacity / 8]byte

// CheckCapacity returns ErrCapacity if a Fixed bitmap cannot track count bits
func CheckCapacity(count int) error {
	if count < 0 || count > FixedCapacity {
		return cerrors.Wrapf(ErrCapacity, "requested %d bits, fixed bitmaps hold at most %d", count, FixedCapacity)
	}
	return nil
}

// Bits returns a Bitmap view over the fixed storage
func (f *Fixed) Bits() Bitmap {
	return f[:]
}

func (f *Fixed) Set(n int) {
	f.Bits().Set(n)
}

func (f *Fixed) Clear(n int) {
	f.Bits().Clear(n)
}

func (f *Fixed) Test(n int) bool {
	return f.Bits().Test(n)
}

