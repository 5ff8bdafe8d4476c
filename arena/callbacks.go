package arena

// MemoryPurpose identifies why the pool requested memory from its SystemAllocator
type MemoryPurpose uint32

const (
	// MemoryPurposeArena is the single backing block requested by Create
	MemoryPurposeArena MemoryPurpose = iota
	// MemoryPurposeOverflow is an out-of-band allocation that the slab system could not service
	MemoryPurposeOverflow
)

var memoryPurposeMapping = map[MemoryPurpose]string{
	MemoryPurposeArena:    "Arena",
	MemoryPurposeOverflow: "Overflow",
}

func (p MemoryPurpose) String() string {
	return memoryPurposeMapping[p]
}

type AllocateSystemMemoryCallback func(
	pool *Pool,
	purpose MemoryPurpose,
	size int,
	userData interface{},
)

type FreeSystemMemoryCallback func(
	pool *Pool,
	purpose MemoryPurpose,
	size int,
	userData interface{},
)

// MemoryCallbackOptions is an optional set of callbacks that observe every request the pool makes to
// its SystemAllocator
type MemoryCallbackOptions struct {
	Allocate AllocateSystemMemoryCallback
	Free     FreeSystemMemoryCallback
	UserData interface{}
}

type memoryCallbacks struct {
	Callbacks *MemoryCallbackOptions
	Pool      *Pool
}

func (c *memoryCallbacks) Allocate(purpose MemoryPurpose, size int) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.Pool, purpose, size, c.Callbacks.UserData)
	}
}

func (c *memoryCallbacks) Free(purpose MemoryPurpose, size int) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.Pool, purpose, size, c.Callbacks.UserData)
	}
}
