package msgbuf

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/c2h5oh/datasize"
)

// SlabClass is a backing-buffer size bucket. The allocator hands out and
// recycles Backing Buffers in these fixed sizes, the same power-of-two
// bucketing strategy a hugepage slab allocator would use.
type SlabClass struct {
	Size datasize.ByteSize
}

func (c SlabClass) String() string {
	return c.Size.String()
}

// Standard slab classes for small-RPC-optimized message sizes. Production
// deployments backed by real hugepages would size these to the workload;
// these defaults cover typical control and small-RPC payloads.
var (
	Slab256B = SlabClass{Size: 256 * datasize.B}
	Slab1KB  = SlabClass{Size: 1 * datasize.KB}
	Slab4KB  = SlabClass{Size: 4 * datasize.KB}
	Slab64KB = SlabClass{Size: 64 * datasize.KB}
)

// DefaultClasses is the slab class ladder used when no explicit set is
// provided to NewSlabAllocator.
var DefaultClasses = []SlabClass{Slab256B, Slab1KB, Slab4KB, Slab64KB}

// BackingBuffer is an exclusively-owned handle to a contiguous region of
// registered memory. The zero value is the distinguished "invalid" handle.
type BackingBuffer struct {
	Base  unsafe.Pointer
	Class SlabClass
}

// Invalid is the sentinel BackingBuffer returned by allocators on failure.
var Invalid = BackingBuffer{}

// Valid reports whether b refers to real memory.
func (b BackingBuffer) Valid() bool {
	return b.Base != nil
}

// bytes reconstructs the []byte view of a backing buffer's full class-sized
// region. Used internally when returning a buffer to its slab pool.
func (b BackingBuffer) bytes() []byte {
	return unsafe.Slice((*byte)(b.Base), int(b.Class.Size.Bytes()))
}

// SlabAllocator is a size-bucketed pool of Backing Buffers, grounded on the
// same sync.Pool-per-bucket strategy a zero-copy block allocator uses to
// avoid hot-path allocation. Safe for concurrent Alloc/Free from multiple
// endpoint threads.
type SlabAllocator struct {
	classes []SlabClass
	pools   map[SlabClass]*sync.Pool
}

// NewSlabAllocator builds an allocator over the given slab classes, sorted
// ascending by size. With no classes given, DefaultClasses is used.
func NewSlabAllocator(classes ...SlabClass) *SlabAllocator {
	if len(classes) == 0 {
		classes = DefaultClasses
	}
	a := &SlabAllocator{
		classes: append([]SlabClass(nil), classes...),
		pools:   make(map[SlabClass]*sync.Pool, len(classes)),
	}
	sort.Slice(a.classes, func(i, j int) bool { return a.classes[i].Size < a.classes[j].Size })
	for _, c := range a.classes {
		size := int(c.Size.Bytes())
		a.pools[c] = &sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		}
	}
	return a
}

// Alloc returns a Backing Buffer from the smallest class that can hold
// minSize bytes, or Invalid if minSize exceeds every configured class.
func (a *SlabAllocator) Alloc(minSize int) (BackingBuffer, error) {
	for _, c := range a.classes {
		if int(c.Size.Bytes()) < minSize {
			continue
		}
		bufp := a.pools[c].Get().(*[]byte)
		buf := (*bufp)[:size(c)]
		return BackingBuffer{Base: unsafe.Pointer(&buf[0]), Class: c}, nil
	}
	return Invalid, fmt.Errorf("msgbuf: no slab class large enough for %d bytes", minSize)
}

// Free returns a Backing Buffer to its slab class. Freeing an invalid
// buffer is a no-op, matching the RX-borrowed lifecycle in §3.
func (a *SlabAllocator) Free(b BackingBuffer) {
	if !b.Valid() {
		return
	}
	buf := b.bytes()
	pool, ok := a.pools[b.Class]
	if !ok {
		return
	}
	pool.Put(&buf)
}

func size(c SlabClass) int {
	return int(c.Size.Bytes())
}
