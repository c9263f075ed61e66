// Package testutil provides a plain-memory stand-in for segment.Segment
// so table/array/queue/stack tests can exercise the wire format and
// concurrency algorithms without a real kernel-backed mapping. Two
// *MemSegment values built over the same backing slice stand in for two
// separate processes attached to the same segment, the same role
// goroutines play for "separate processes" throughout this module's
// concurrency stress tests (see SPEC_FULL.md §3's test-tooling item).
package testutil

// MemSegment implements the table.segBase contract (Base/Capacity) with
// a plain Go byte slice, with no OS mapping involved.
type MemSegment struct {
	Buf []byte
}

// NewMemSegment returns a zeroed MemSegment of the given size.
func NewMemSegment(size int) *MemSegment {
	return &MemSegment{Buf: make([]byte, size)}
}

func (m *MemSegment) Base() []byte  { return m.Buf }
func (m *MemSegment) Capacity() int { return len(m.Buf) }
