package arena_test

import (
	"math"
	"testing"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/slabarena/arena"
	"github.com/vkngwrapper/slabarena/arena/mocks"
	"go.uber.org/mock/gomock"
)

func heapAlloc(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func TestCreateDefaults(t *testing.T) {
	pool := readyPool(t, 16*mib, arena.CreateOptions{})

	require.Equal(t, arena.DefaultMinChunk, pool.MinChunk())
	require.Equal(t, arena.DefaultMaxChunk, pool.MaxChunk())
	require.Equal(t, arena.DefaultPageSize, pool.PageSize())
	require.Equal(t, arena.DefaultMaxChunk/arena.DefaultMinChunk, pool.ClassCount())
	require.Equal(t, 16*mib, pool.Capacity())
	require.Equal(t, pool.PageCount(), pool.FreePages())
	require.NoError(t, pool.Validate())
}

func TestCreateRounding(t *testing.T) {
	testCases := map[string]struct {
		capacity int
		options  arena.CreateOptions

		minChunk int
		maxChunk int
		pageSize int
		capOut   int
	}{
		"CapacityRoundsToDefaultMax": {
			capacity: 200 * 1024,
			options:  arena.CreateOptions{MaxChunk: 1024},
			minChunk: 8, maxChunk: 1024, pageSize: 4096, capOut: 256 * 1024,
		},
		"CapacityRoundsToLargeMax": {
			capacity: 300 * 1024,
			options:  arena.CreateOptions{MinChunk: 16, MaxChunk: 256 * 1024},
			minChunk: 16, maxChunk: 256 * 1024, pageSize: 4096, capOut: 512 * 1024,
		},
		"MinChunkRaised": {
			capacity: 128 * 1024,
			options:  arena.CreateOptions{MinChunk: 3},
			minChunk: 8, maxChunk: 128 * 1024, pageSize: 4096, capOut: 128 * 1024,
		},
		"MinChunkRoundsToEight": {
			capacity: 128 * 1024,
			options:  arena.CreateOptions{MinChunk: 20, MaxChunk: 1000},
			minChunk: 24, maxChunk: 1008, pageSize: 4096, capOut: 128 * 1024,
		},
		"LargeMinChunkSetsPageSize": {
			capacity: 128 * 1024,
			options:  arena.CreateOptions{MinChunk: 8192, MaxChunk: 64 * 1024},
			minChunk: 8192, maxChunk: 64 * 1024, pageSize: 8192, capOut: 128 * 1024,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			pool := readyPool(t, testCase.capacity, testCase.options)

			require.Equal(t, testCase.minChunk, pool.MinChunk())
			require.Equal(t, testCase.maxChunk, pool.MaxChunk())
			require.Equal(t, testCase.pageSize, pool.PageSize())
			require.Equal(t, testCase.capOut, pool.Capacity())
			require.Equal(t, testCase.capOut/testCase.pageSize, pool.PageCount())
			require.Equal(t, testCase.maxChunk/testCase.minChunk, pool.ClassCount())
			require.NoError(t, pool.Validate())
		})
	}
}

func TestCreateRejectsBadConfig(t *testing.T) {
	testCases := map[string]struct {
		capacity int
		options  arena.CreateOptions
	}{
		"CapacityBelowMaxChunk": {
			capacity: 64 * 1024,
		},
		"MaxBelowMin": {
			capacity: 128 * 1024,
			options:  arena.CreateOptions{MinChunk: 64, MaxChunk: 32},
		},
		"TooManyClasses": {
			capacity: 1024 * 1024,
			options:  arena.CreateOptions{MaxChunk: 256 * 1024},
		},
		"ClassRatioAfterRounding": {
			capacity: 1 << 30,
			options:  arena.CreateOptions{MinChunk: 16, MaxChunk: 16384*16 + 8},
		},
		"CapacityOverflows": {
			capacity: math.MaxInt,
		},
		"MinChunkOverflows": {
			capacity: math.MaxInt,
			options:  arena.CreateOptions{MinChunk: math.MaxInt - 3, MaxChunk: math.MaxInt},
		},
		"MaxChunkOverflows": {
			capacity: math.MaxInt,
			options:  arena.CreateOptions{MinChunk: 1 << 20, MaxChunk: math.MaxInt - 3},
		},
		"NegativeBudget": {
			capacity: 128 * 1024,
			options:  arena.CreateOptions{OverflowBudget: -1},
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			system := mocks.NewMockSystemAllocator(ctrl)
			testCase.options.SystemAllocator = system

			pool, err := arena.Create(nil, testCase.capacity, testCase.options)
			require.Nil(t, pool)
			require.True(t, cerrors.Is(err, arena.ErrConfig))
		})
	}
}

func TestCreateSystemFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	system := mocks.NewMockSystemAllocator(ctrl)

	system.EXPECT().Alloc(gomock.Any()).Return(nil, cerrors.New("mapping failed"))

	pool, err := arena.Create(nil, 128*1024, arena.CreateOptions{SystemAllocator: system})
	require.Nil(t, pool)
	require.True(t, cerrors.Is(err, arena.ErrConfig))
	require.ErrorContains(t, err, "mapping failed")
}

func TestCreateBlockTooLargeForHeap(t *testing.T) {
	pool, err := arena.Create(nil, 1<<60, arena.CreateOptions{MinChunk: 1 << 40, MaxChunk: 1 << 40})
	require.Nil(t, pool)
	require.True(t, cerrors.Is(err, arena.ErrConfig))
}

func TestHeapAllocatorRejectsImpossibleSizes(t *testing.T) {
	buf, err := arena.HeapAllocator{}.Alloc(-1)
	require.Nil(t, buf)
	require.Error(t, err)

	buf, err = arena.HeapAllocator{}.Alloc(math.MaxInt)
	require.Nil(t, buf)
	require.Error(t, err)

	buf, err = arena.HeapAllocator{}.Alloc(16)
	require.NoError(t, err)
	require.Len(t, buf, 16)
}

func TestCreateShortBlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	system := mocks.NewMockSystemAllocator(ctrl)

	short := make([]byte, 64)
	gomock.InOrder(
		system.EXPECT().Alloc(gomock.Any()).Return(short, nil),
		system.EXPECT().Free(short).Return(nil),
	)

	pool, err := arena.Create(nil, 128*1024, arena.CreateOptions{SystemAllocator: system})
	require.Nil(t, pool)
	require.True(t, cerrors.Is(err, arena.ErrConfig))
}

func TestCreateUsesOneSystemAllocation(t *testing.T) {
	ctrl := gomock.NewController(t)
	system := mocks.NewMockSystemAllocator(ctrl)

	var block []byte
	gomock.InOrder(
		system.EXPECT().Alloc(gomock.Any()).DoAndReturn(func(size int) ([]byte, error) {
			block = make([]byte, size)
			return block, nil
		}),
		system.EXPECT().Free(gomock.Any()).DoAndReturn(func(buf []byte) error {
			require.Equal(t, len(block), len(buf))
			require.Same(t, &block[0], &buf[0])
			return nil
		}),
	)

	pool, err := arena.Create(nil, 128*1024, arena.CreateOptions{SystemAllocator: system})
	require.NoError(t, err)
	require.Greater(t, len(block), pool.Capacity())

	// Slab traffic never reaches the system allocator
	var ptrs []unsafe.Pointer
	for size := 0; size <= 2000; size += 100 {
		ptr, err := pool.Allocate(size)
		require.NoError(t, err)
		require.True(t, pool.Contains(ptr))
		ptrs = append(ptrs, ptr)
	}
	require.Equal(t, pool.PageCount()-len(ptrs), pool.FreePages())

	for _, ptr := range ptrs {
		require.NoError(t, pool.Release(ptr))
	}

	require.NoError(t, pool.Destroy())
}

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "None", arena.CreateFlags(0).String())
	require.Equal(t, "PoolCreateDisableOverflow", arena.PoolCreateDisableOverflow.String())
	require.Equal(t, "PoolCreateDisableOverflow|CreateFlags(0x4)", (arena.PoolCreateDisableOverflow | arena.CreateFlags(4)).String())
}

func TestMemoryCallbacks(t *testing.T) {
	allocated := map[arena.MemoryPurpose]int{}
	freed := map[arena.MemoryPurpose]int{}
	userData := "pool-callbacks"

	var pool *arena.Pool
	options := arena.CreateOptions{
		MemoryCallbackOptions: &arena.MemoryCallbackOptions{
			Allocate: func(p *arena.Pool, purpose arena.MemoryPurpose, size int, data interface{}) {
				require.Equal(t, userData, data)
				allocated[purpose] += size
			},
			Free: func(p *arena.Pool, purpose arena.MemoryPurpose, size int, data interface{}) {
				require.Same(t, pool, p)
				require.Equal(t, userData, data)
				freed[purpose] += size
			},
			UserData: userData,
		},
	}

	pool, err := arena.Create(nil, 128*1024, options)
	require.NoError(t, err)
	require.Greater(t, allocated[arena.MemoryPurposeArena], pool.Capacity())
	require.Zero(t, allocated[arena.MemoryPurposeOverflow])

	small, err := pool.Allocate(100)
	require.NoError(t, err)
	require.Zero(t, allocated[arena.MemoryPurposeOverflow])

	big, err := pool.Allocate(pool.MaxChunk() * 2)
	require.NoError(t, err)
	require.GreaterOrEqual(t, allocated[arena.MemoryPurposeOverflow], pool.MaxChunk()*2)

	require.NoError(t, pool.Release(big))
	require.Equal(t, allocated[arena.MemoryPurposeOverflow], freed[arena.MemoryPurposeOverflow])

	require.NoError(t, pool.Release(small))
	require.Zero(t, freed[arena.MemoryPurposeArena])

	require.NoError(t, pool.Destroy())
	require.Equal(t, allocated, freed)

	require.Equal(t, "Arena", arena.MemoryPurposeArena.String())
	require.Equal(t, "Overflow", arena.MemoryPurposeOverflow.String())
}
