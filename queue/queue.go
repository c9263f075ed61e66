// Package queue implements the lock-free bounded multi-producer
// multi-consumer FIFO from spec.md §4.4: Dmitry Vyukov's per-slot
// sequence-number ring, generalized from the teacher's in-process
// MPMCQueue[T] (internal/runtime/concurrency) to run over raw bytes in a
// table-allocated shared-memory region instead of a Go-owned slice, so
// unrelated processes (not just goroutines in one address space) can
// share it.
package queue

import (
	"runtime"

	"github.com/zeroipc/zeroipc-go/internal/wire"
	"github.com/zeroipc/zeroipc-go/internal/xatomic"
	"github.com/zeroipc/zeroipc-go/table"
	"github.com/zeroipc/zeroipc-go/zerr"
)

// Queue is a typed view over a table-allocated MPMC ring buffer region.
type Queue struct {
	buf      []byte
	elemSize int
	capacity int
}

// Create allocates a queue region named name in t with the given element
// size and capacity, and initializes its header and sequence words.
// capacity need not be a power of two; spec.md §4.4 explicitly allows a
// plain modulo implementation, which this package uses (see
// SPEC_FULL.md's note on why this departs from the teacher's
// power-of-two masking).
func Create(t *table.Table, name string, elemSize, capacity int) (*Queue, error) {
	if elemSize <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "queue.Create", "elemSize must be positive", nil)
	}
	if capacity <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "queue.Create", "capacity must be positive", nil)
	}
	regionSize := int(wire.QueueRegionSize(uint32(capacity), uint32(elemSize)))
	offset, err := t.Add(name, regionSize)
	if err != nil {
		return nil, err
	}
	buf := t.Region(offset, uint32(regionSize))
	for i := range buf {
		buf[i] = 0
	}
	wire.PutQueueHeader(buf, wire.QueueHeader{ElemSize: uint32(elemSize), Capacity: uint32(capacity), Head: 0, Tail: 0})
	for i := 0; i < capacity; i++ {
		xatomic.StoreUint64(buf, wire.QueueSeqOffset(uint32(capacity), uint32(i)), uint64(i))
	}
	return &Queue{buf: buf, elemSize: elemSize, capacity: capacity}, nil
}

// Open attaches to an existing queue named name in t, validating its
// element size.
func Open(t *table.Table, name string, expectedElemSize int) (*Queue, error) {
	offset, size, err := t.Find(name)
	if err != nil {
		return nil, err
	}
	buf := t.Region(offset, size)
	h := wire.QueueHeaderAt(buf)
	if int(h.ElemSize) != expectedElemSize {
		return nil, zerr.New(zerr.InvalidArgument, "queue.Open", "element size mismatch",
			map[string]any{"name": name, "on_disk": h.ElemSize, "expected": expectedElemSize})
	}
	return &Queue{buf: buf, elemSize: int(h.ElemSize), capacity: int(h.Capacity)}, nil
}

// Cap returns the queue's slot capacity.
func (q *Queue) Cap() int { return q.capacity }

// ElemSize returns the configured element stride in bytes.
func (q *Queue) ElemSize() int { return q.elemSize }

// Len returns a racy snapshot of the current occupancy (tail - head).
// Meaningful only as an approximation under concurrent use.
func (q *Queue) Len() int {
	head := xatomic.LoadUint64(q.buf, wire.QueueHeadOffset)
	tail := xatomic.LoadUint64(q.buf, wire.QueueTailOffset)
	return int(tail - head)
}

func (q *Queue) elemOffset(slot uint64) int {
	return wire.QueueElemsOffset(uint32(q.capacity)) + int(slot)*q.elemSize
}

// Push enqueues value (which must be exactly ElemSize() bytes). Returns
// zerr.Full if the queue is at capacity; Full is an expected outcome, not
// an error condition the caller should log or retry internally.
func (q *Queue) Push(value []byte) error {
	if len(value) != q.elemSize {
		return zerr.New(zerr.InvalidArgument, "queue.Push", "value length mismatch",
			map[string]any{"got": len(value), "want": q.elemSize})
	}
	capacity := uint64(q.capacity)
	for {
		pos := xatomic.LoadUint64(q.buf, wire.QueueTailOffset)
		slot := pos % capacity
		seqOff := wire.QueueSeqOffset(uint32(q.capacity), uint32(slot))
		seq := xatomic.LoadUint64(q.buf, seqOff)
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			if xatomic.CASUint64(q.buf, wire.QueueTailOffset, pos, pos+1) {
				off := q.elemOffset(slot)
				copy(q.buf[off:off+q.elemSize], value)
				xatomic.StoreUint64(q.buf, seqOff, pos+1)
				return nil
			}
		case diff < 0:
			return zerr.ErrFull()
		default:
			runtime.Gosched()
		}
	}
}

// Pop dequeues the oldest value into out (which must be exactly
// ElemSize() bytes). Returns zerr.Empty if the queue has no elements.
func (q *Queue) Pop(out []byte) error {
	if len(out) != q.elemSize {
		return zerr.New(zerr.InvalidArgument, "queue.Pop", "output buffer length mismatch",
			map[string]any{"got": len(out), "want": q.elemSize})
	}
	capacity := uint64(q.capacity)
	for {
		pos := xatomic.LoadUint64(q.buf, wire.QueueHeadOffset)
		slot := pos % capacity
		seqOff := wire.QueueSeqOffset(uint32(q.capacity), uint32(slot))
		seq := xatomic.LoadUint64(q.buf, seqOff)
		diff := int64(seq) - int64(pos+1)

		switch {
		case diff == 0:
			if xatomic.CASUint64(q.buf, wire.QueueHeadOffset, pos, pos+1) {
				off := q.elemOffset(slot)
				copy(out, q.buf[off:off+q.elemSize])
				xatomic.StoreUint64(q.buf, seqOff, pos+capacity)
				return nil
			}
		case diff < 0:
			return zerr.ErrEmpty()
		default:
			runtime.Gosched()
		}
	}
}
