// Package array implements the flat, fixed-capacity element view: the
// simplest of the three structures, and the building block the queue and
// stack packages' element buffers are modeled on.
package array

import (
	"github.com/zeroipc/zeroipc-go/internal/wire"
	"github.com/zeroipc/zeroipc-go/internal/xatomic"
	"github.com/zeroipc/zeroipc-go/table"
	"github.com/zeroipc/zeroipc-go/zerr"
)

// Array is a typed view over a table-allocated region: elemSize bytes
// per slot, capacity slots, no runtime state beyond the elements
// themselves.
type Array struct {
	buf      []byte
	elemSize int
	capacity int
}

// Create allocates elemSize*capacity+header bytes under name in t and
// writes the array header.
func Create(t *table.Table, name string, elemSize, capacity int) (*Array, error) {
	if elemSize <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "array.Create", "elemSize must be positive", nil)
	}
	if capacity <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "array.Create", "capacity must be positive", nil)
	}
	regionSize := wire.ArrayHeaderSize + elemSize*capacity
	offset, err := t.Add(name, regionSize)
	if err != nil {
		return nil, err
	}
	buf := t.Region(offset, uint32(regionSize))
	wire.PutArrayHeader(buf, wire.ArrayHeader{ElemSize: uint32(elemSize), Capacity: uint32(capacity)})
	return &Array{buf: buf, elemSize: elemSize, capacity: capacity}, nil
}

// Open attaches to an existing array named name in t, validating that
// its element size matches expectedElemSize.
func Open(t *table.Table, name string, expectedElemSize int) (*Array, error) {
	offset, size, err := t.Find(name)
	if err != nil {
		return nil, err
	}
	buf := t.Region(offset, size)
	h := wire.ArrayHeaderAt(buf)
	if int(h.ElemSize) != expectedElemSize {
		return nil, zerr.New(zerr.InvalidArgument, "array.Open", "element size mismatch",
			map[string]any{"name": name, "on_disk": h.ElemSize, "expected": expectedElemSize})
	}
	return &Array{buf: buf, elemSize: int(h.ElemSize), capacity: int(h.Capacity)}, nil
}

// Len returns the array's capacity in elements.
func (a *Array) Len() int { return a.capacity }

// ElemSize returns the configured element stride in bytes.
func (a *Array) ElemSize() int { return a.elemSize }

func (a *Array) slot(i int) (int, error) {
	if i < 0 || i >= a.capacity {
		return 0, zerr.New(zerr.OutOfRange, "array", "index out of range",
			map[string]any{"index": i, "capacity": a.capacity})
	}
	return wire.ArrayElemsOffset() + i*a.elemSize, nil
}

// Get returns a copy of the bytes stored at index i. Racy with
// concurrent Set/CAS by contract; callers needing atomicity use CAS.
func (a *Array) Get(i int) ([]byte, error) {
	off, err := a.slot(i)
	if err != nil {
		return nil, err
	}
	out := make([]byte, a.elemSize)
	copy(out, a.buf[off:off+a.elemSize])
	return out, nil
}

// Set stores value at index i. value must be exactly ElemSize() bytes.
func (a *Array) Set(i int, value []byte) error {
	off, err := a.slot(i)
	if err != nil {
		return err
	}
	if len(value) != a.elemSize {
		return zerr.New(zerr.InvalidArgument, "array.Set", "value length mismatch",
			map[string]any{"got": len(value), "want": a.elemSize})
	}
	copy(a.buf[off:off+a.elemSize], value)
	return nil
}

// CAS atomically compares-and-swaps the element at index i. 1-, 2-, 4-,
// and 8-byte elements are supported (see internal/xatomic); 16-byte
// elements are not, and return zerr.Unsupported.
func (a *Array) CAS(i int, expected, desired []byte) (bool, error) {
	off, err := a.slot(i)
	if err != nil {
		return false, err
	}
	if len(expected) != a.elemSize || len(desired) != a.elemSize {
		return false, zerr.New(zerr.InvalidArgument, "array.CAS", "value length mismatch", nil)
	}
	ok, supported := xatomic.CASBytes(a.buf, off, a.elemSize, expected, desired)
	if !supported {
		return false, zerr.New(zerr.Unsupported, "array.CAS", "unsupported element size for atomic CAS",
			map[string]any{"elem_size": a.elemSize})
	}
	return ok, nil
}
