package bitmap_test

import (
	"testing"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/slabarena/memutils/bitmap"
)

func TestBytes(t *testing.T) {
	require.Equal(t, 0, bitmap.Bytes(0))
	require.Equal(t, 1, bitmap.Bytes(1))
	require.Equal(t, 1, bitmap.Bytes(8))
	require.Equal(t, 2, bitmap.Bytes(9))
	require.Equal(t, 512, bitmap.Bytes(4096))
}

func TestSetClearTest(t *testing.T) {
	b := make(bitmap.Bitmap, 4)
	require.Equal(t, 32, b.Len())

	b.Set(0)
	b.Set(9)
	b.Set(31)
	require.Equal(t, bitmap.Bitmap{0x01, 0x02, 0x00, 0x80}, b)
	require.True(t, b.Test(9))
	require.False(t, b.Test(10))

	b.Clear(9)
	require.False(t, b.Test(9))
	require.Equal(t, 2, b.Count(32))
}

func TestRanges(t *testing.T) {
	b := make(bitmap.Bitmap, 3)
	b.SetRange(5, 10)
	require.Equal(t, 10, b.Count(24))
	require.False(t, b.Test(4))
	require.True(t, b.Test(5))
	require.True(t, b.Test(14))
	require.False(t, b.Test(15))

	b.ClearRange(6, 8)
	require.Equal(t, 2, b.Count(24))
	require.True(t, b.Test(5))
	require.True(t, b.Test(14))
}

func TestFindClear(t *testing.T) {
	b := make(bitmap.Bitmap, 4)
	require.Equal(t, 0, b.FindClear(0, 32))

	b.SetRange(0, 19)
	require.Equal(t, 19, b.FindClear(0, 32))
	require.Equal(t, 19, b.FindClear(3, 32))
	require.Equal(t, 20, b.FindClear(20, 32))
	require.Equal(t, -1, b.FindClear(0, 19))

	b.SetRange(19, 13)
	require.Equal(t, -1, b.FindClear(0, 32))

	b.Clear(31)
	require.Equal(t, 31, b.FindClear(0, 32))
	require.Equal(t, -1, b.FindClear(0, 31))
}

func TestFindClearRun(t *testing.T) {
	b := make(bitmap.Bitmap, 4)
	require.Equal(t, 0, b.FindClearRun(32, 32))
	require.Equal(t, -1, b.FindClearRun(33, 32))
	require.Equal(t, -1, b.FindClearRun(0, 32))

	b.Set(2)
	b.SetRange(8, 8)
	require.Equal(t, 0, b.FindClearRun(2, 32))
	require.Equal(t, 3, b.FindClearRun(3, 32))
	require.Equal(t, 3, b.FindClearRun(5, 32))
	require.Equal(t, 16, b.FindClearRun(6, 32))
	require.Equal(t, -1, b.FindClearRun(6, 21))
}

func TestFixed(t *testing.T) {
	var f bitmap.Fixed
	require.Equal(t, bitmap.FixedCapacity, f.Bits().Len())

	f.Set(0)
	f.Set(511)
	require.True(t, f.Test(511))
	require.Equal(t, 2, f.Bits().Count(bitmap.FixedCapacity))

	f.Clear(0)
	require.Equal(t, 1, f.Bits().FindClear(0, bitmap.FixedCapacity))
}

func TestCheckCapacity(t *testing.T) {
	require.NoError(t, bitmap.CheckCapacity(0))
	require.NoError(t, bitmap.CheckCapacity(bitmap.FixedCapacity))

	err := bitmap.CheckCapacity(bitmap.FixedCapacity + 1)
	require.Error(t, err)
	require.True(t, cerrors.Is(err, bitmap.ErrCapacity))
}
