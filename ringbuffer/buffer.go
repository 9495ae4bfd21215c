// Package ringbuffer provides a fixed-capacity, overwrite-oldest ring
// buffer guarded by a kernel mutex semaphore rather than a sync.Mutex —
// it is meant to sit between an interrupt-context or task-context
// producer and a task-context consumer exactly the way the original
// kernel's byte-oriented buffers did, just generic over element type
// instead of operating on raw bytes.
//
// It is explicitly a collaborator of the kernel, not part of it: the
// scheduler and semaphore core have no idea ring buffers exist, and this
// package only ever calls the public Kernel.Wait/Kernel.Signal API a
// task body could call itself.
package ringbuffer

import (
	"golang.org/x/exp/constraints"

	"github.com/gigaika/mrtos/kernel"
)

// Buffer is a fixed-capacity ring of E, identical in shape to
// os_buffers.c's OS_BufferTypeDef: writes beyond remaining capacity
// overwrite the oldest unread elements, advancing the read index to the
// new write index exactly as the original does. Only the part of a
// single write that exceeds the whole capacity is counted in Missed (see
// Write).
type Buffer[E constraints.Ordered] struct {
	k   *kernel.Kernel
	sem *kernel.Semaphore

	data           []E
	writeIndex     int
	readIndex      int
	spaceRemaining int
	missed         uint64
}

// New creates a Buffer of the given capacity, guarded by sem — which
// must be a mutex semaphore created by k.NewMutex, not a flag. capacity
// must be positive.
func New[E constraints.Ordered](k *kernel.Kernel, sem *kernel.Semaphore, capacity int) *Buffer[E] {
	if capacity <= 0 {
		panic("ringbuffer: capacity must be positive")
	}
	return &Buffer[E]{
		k:              k,
		sem:            sem,
		data:           make([]E, capacity),
		spaceRemaining: capacity,
	}
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer[E]) Cap() int { return len(b.data) }

// Missed returns the cumulative count of elements dropped because a
// single Write was longer than the buffer's capacity. Unread elements
// evicted by a later Write are not included.
func (b *Buffer[E]) Missed() uint64 {
	b.k.Wait(b.sem)
	defer b.k.Signal(b.sem)
	return b.missed
}

// Unread returns the number of elements currently available to Read.
func (b *Buffer[E]) Unread() int {
	b.k.Wait(b.sem)
	defer b.k.Signal(b.sem)
	return b.unreadLocked()
}

func (b *Buffer[E]) unreadLocked() int {
	return len(b.data) - b.spaceRemaining
}

// Write copies as many of src as fit into the buffer's capacity, most
// recent elements last. If src itself is larger than the buffer's
// capacity, the excess is overwritten within this same call before ever
// becoming readable, and is counted in Missed; separately, if writing
// would overrun previously-written, still-unread data, the oldest
// unread elements are evicted and the read index advances to match —
// an eviction of this kind is not itself counted in Missed, since that
// count tracks data lost to a single oversized call, not ordinary
// ring-buffer turnover.
func (b *Buffer[E]) Write(src []E) {
	b.k.Wait(b.sem)
	defer b.k.Signal(b.sem)

	n := len(src)
	if n > len(b.data) {
		b.missed += uint64(n - len(b.data))
		src = src[n-len(b.data):]
		n = len(b.data)
	}

	overwrite := false
	if n > b.spaceRemaining {
		b.spaceRemaining = 0
		overwrite = true
	} else {
		b.spaceRemaining -= n
	}

	if n > len(b.data)-b.writeIndex {
		first := len(b.data) - b.writeIndex
		copy(b.data[b.writeIndex:], src[:first])
		copy(b.data[:n-first], src[first:])
		b.writeIndex = n - first
	} else {
		copy(b.data[b.writeIndex:], src)
		b.writeIndex += n
		if b.writeIndex == len(b.data) {
			b.writeIndex = 0
		}
	}

	if overwrite {
		b.readIndex = b.writeIndex
	}
}

// Read copies up to len(dst) elements into dst, starting with the
// oldest unread element, and returns the number actually copied.
func (b *Buffer[E]) Read(dst []E) int {
	b.k.Wait(b.sem)
	defer b.k.Signal(b.sem)

	unread := b.unreadLocked()
	n := len(dst)
	if n > unread {
		n = unread
	}
	if n == 0 {
		return 0
	}

	if n > len(b.data)-b.readIndex {
		first := len(b.data) - b.readIndex
		copy(dst[:first], b.data[b.readIndex:])
		copy(dst[first:n], b.data[:n-first])
		b.readIndex = n - first
	} else {
		copy(dst[:n], b.data[b.readIndex:b.readIndex+n])
		b.readIndex += n
		if b.readIndex == len(b.data) {
			b.readIndex = 0
		}
	}
	b.spaceRemaining += n

	return n
}
