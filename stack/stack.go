// Package stack implements the lock-free bounded multi-producer
// multi-consumer LIFO from spec.md §4.5: a packed (top_index, version)
// word as the single CAS linearization point, the version counter
// guarding against ABA the same way the queue's per-slot sequence
// numbers do.
package stack

import (
	"github.com/zeroipc/zeroipc-go/internal/wire"
	"github.com/zeroipc/zeroipc-go/internal/xatomic"
	"github.com/zeroipc/zeroipc-go/table"
	"github.com/zeroipc/zeroipc-go/zerr"
)

// Stack is a typed view over a table-allocated LIFO region.
type Stack struct {
	buf      []byte
	elemSize int
	capacity int
}

// Create allocates a stack region named name in t with the given element
// size and capacity.
func Create(t *table.Table, name string, elemSize, capacity int) (*Stack, error) {
	if elemSize <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "stack.Create", "elemSize must be positive", nil)
	}
	if capacity <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "stack.Create", "capacity must be positive", nil)
	}
	regionSize := wire.StackElemsOffset() + elemSize*capacity
	offset, err := t.Add(name, regionSize)
	if err != nil {
		return nil, err
	}
	buf := t.Region(offset, uint32(regionSize))
	for i := range buf {
		buf[i] = 0
	}
	wire.PutStackHeader(buf, wire.StackHeader{ElemSize: uint32(elemSize), Capacity: uint32(capacity), TopAndVersion: 0})
	return &Stack{buf: buf, elemSize: elemSize, capacity: capacity}, nil
}

// Open attaches to an existing stack named name in t, validating its
// element size.
func Open(t *table.Table, name string, expectedElemSize int) (*Stack, error) {
	offset, size, err := t.Find(name)
	if err != nil {
		return nil, err
	}
	buf := t.Region(offset, size)
	h := wire.StackHeaderAt(buf)
	if int(h.ElemSize) != expectedElemSize {
		return nil, zerr.New(zerr.InvalidArgument, "stack.Open", "element size mismatch",
			map[string]any{"name": name, "on_disk": h.ElemSize, "expected": expectedElemSize})
	}
	return &Stack{buf: buf, elemSize: int(h.ElemSize), capacity: int(h.Capacity)}, nil
}

// Cap returns the stack's slot capacity.
func (s *Stack) Cap() int { return s.capacity }

// ElemSize returns the configured element stride in bytes.
func (s *Stack) ElemSize() int { return s.elemSize }

// Len returns a racy snapshot of the current occupancy (the top index).
func (s *Stack) Len() int {
	top, _ := s.topVersion()
	return int(top)
}

func (s *Stack) topVersion() (top, version uint32) {
	packed := xatomic.LoadUint64(s.buf, wire.StackTopVersionOffset)
	return wire.UnpackTopVersion(packed)
}

func (s *Stack) elemOffset(index uint32) int {
	return wire.StackElemsOffset() + int(index)*s.elemSize
}

// Push pushes value (which must be exactly ElemSize() bytes). Returns
// zerr.Full if the stack is at capacity.
func (s *Stack) Push(value []byte) error {
	if len(value) != s.elemSize {
		return zerr.New(zerr.InvalidArgument, "stack.Push", "value length mismatch",
			map[string]any{"got": len(value), "want": s.elemSize})
	}
	for {
		packed := xatomic.LoadUint64(s.buf, wire.StackTopVersionOffset)
		top, version := wire.UnpackTopVersion(packed)
		if top == uint32(s.capacity) {
			return zerr.ErrFull()
		}

		// The write below lands in a slot that is, by contract, unowned
		// until the following CAS commits (slots at or above top are
		// free); a losing racer's write is harmless because the CAS
		// failure means nobody observes it before it is overwritten by
		// the eventual winner.
		off := s.elemOffset(top)
		copy(s.buf[off:off+s.elemSize], value)

		newPacked := wire.PackTopVersion(top+1, version+1)
		if xatomic.CASUint64(s.buf, wire.StackTopVersionOffset, packed, newPacked) {
			return nil
		}
	}
}

// Pop pops the most recently pushed value into out (which must be
// exactly ElemSize() bytes). Returns zerr.Empty if the stack has no
// elements.
func (s *Stack) Pop(out []byte) error {
	if len(out) != s.elemSize {
		return zerr.New(zerr.InvalidArgument, "stack.Pop", "output buffer length mismatch",
			map[string]any{"got": len(out), "want": s.elemSize})
	}
	for {
		packed := xatomic.LoadUint64(s.buf, wire.StackTopVersionOffset)
		top, version := wire.UnpackTopVersion(packed)
		if top == 0 {
			return zerr.ErrEmpty()
		}

		off := s.elemOffset(top - 1)
		local := make([]byte, s.elemSize)
		copy(local, s.buf[off:off+s.elemSize])

		newPacked := wire.PackTopVersion(top-1, version+1)
		if xatomic.CASUint64(s.buf, wire.StackTopVersionOffset, packed, newPacked) {
			copy(out, local)
			return nil
		}
	}
}
