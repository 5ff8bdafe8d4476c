package arena_test

import (
	"fmt"

	"github.com/vkngwrapper/slabarena/arena"
)

func ExampleCreate() {
	pool, err := arena.Create(nil, 16*1024*1024, arena.CreateOptions{})
	if err != nil {
		panic(err)
	}
	defer pool.Destroy()

	buf, err := pool.AllocateBytes(100)
	if err != nil {
		panic(err)
	}
	copy(buf, "hello")

	fmt.Println(len(buf), cap(buf), string(buf[:5]))
	fmt.Println(pool.Stats().SlabCount, pool.FreePages())

	if err := pool.ReleaseBytes(buf); err != nil {
		panic(err)
	}
	fmt.Println(pool.Stats().SlabCount, pool.FreePages())

	// Output:
	// 100 104 hello
	// 1 4095
	// 0 4096
}

func ExamplePool_ClassStats() {
	pool, err := arena.Create(nil, 128*1024, arena.CreateOptions{})
	if err != nil {
		panic(err)
	}
	defer pool.Destroy()

	for _, size := range []int{1, 8, 9, 100, 100} {
		if _, err := pool.Allocate(size); err != nil {
			panic(err)
		}
	}

	for _, class := range pool.ClassStats() {
		fmt.Printf("%d: %d/%d\n", class.ChunkSize, class.LiveChunks, class.ChunkCapacity)
	}

	// Output:
	// 8: 2/512
	// 16: 1/256
	// 104: 2/39
}
