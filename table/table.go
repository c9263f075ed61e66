// Package table implements the fixed-capacity name-to-region registry
// that lives at the start of every zeroipc segment, plus the bump
// allocator that hands out space for structures above it.
package table

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/zeroipc/zeroipc-go/internal/wire"
	"github.com/zeroipc/zeroipc-go/internal/xatomic"
	"github.com/zeroipc/zeroipc-go/zerr"
)

// DefaultCapacity is the conventional table capacity (spec §6
// configuration defaults) for callers to pass to Create and Open. Create
// and Open do not substitute it themselves: a capacity <= 0 is rejected
// with zerr.InvalidArgument.
const DefaultCapacity = 64

// FormatVersion is the semver string this package writes; table.Open
// compares a peer's on-disk major version against it to decide
// Unsupported vs. forward-compatible, generalizing the bare version==1
// scalar check spec.md describes into something that can grow a minor
// version without breaking old readers.
const FormatVersion = "1.0.0"

// entryCountLockBit marks the high bit of the on-disk entry_count field
// as "an Add is in progress." Table capacities never approach 2^31, so
// stealing this bit costs nothing observable while giving Add a
// zero-footprint cross-process mutual-exclusion word without widening
// the byte-exact 16-byte header spec.md §6 requires. See DESIGN.md for
// why this, rather than a dedicated lock field, was chosen.
const entryCountLockBit = uint32(1) << 31

const lockSpinLimit = 1 << 20

// Table is a typed view over a segment's table region. The zero value is
// not usable; construct with Create or Open.
type Table struct {
	buf      []byte
	capacity uint32
}

// segBase is satisfied by *segment.Segment; accepting the narrower
// interface here (rather than importing the segment package) keeps
// table decoupled from segment per the layering SPEC_FULL.md §2 draws
// between layers — a structure package only needs bytes, not a live
// Segment handle.
type segBase interface {
	Base() []byte
	Capacity() int
}

// RegionSize returns the byte size of a table region for the given
// capacity, 16 + 40*capacity, matching spec.md §4.2 exactly.
func RegionSize(capacity int) int {
	return wire.TableHeaderSize + capacity*wire.TableEntrySize
}

// Create initializes a new table of the given capacity at the start of
// seg by writing its header (magic, version, entry_count 0, and
// next_free_offset just past the table region, aligned up to 8); the
// entry slots are not cleared. Fails with zerr.InvalidArgument if seg is
// too small to hold the table region.
func Create(seg segBase, capacity int) (*Table, error) {
	if capacity <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "table.Create", "capacity must be positive", nil)
	}
	regionSize := RegionSize(capacity)
	if seg.Capacity() < regionSize {
		return nil, zerr.New(zerr.InvalidArgument, "table.Create",
			"segment too small for table capacity", map[string]any{
				"segment_capacity": seg.Capacity(), "table_region_size": regionSize,
			})
	}
	buf := seg.Base()
	nextFree := wire.AlignUp8(uint32(regionSize))
	wire.PutTableHeader(buf, wire.TableHeader{
		Magic:          wire.TableMagic,
		Version:        wire.TableFormatVersion,
		EntryCount:     0,
		NextFreeOffset: nextFree,
	})
	return &Table{buf: buf, capacity: uint32(capacity)}, nil
}

// Open attaches to an existing table at the start of seg. capacity must
// match the value the creating process used (spec.md does not store
// table_capacity on the wire, the same way array/queue/stack Open takes
// an expected element size; see DESIGN.md).
func Open(seg segBase, capacity int) (*Table, error) {
	if capacity <= 0 {
		return nil, zerr.New(zerr.InvalidArgument, "table.Open", "capacity must be positive", nil)
	}
	buf := seg.Base()
	if len(buf) < wire.TableHeaderSize {
		return nil, zerr.New(zerr.InvalidArgument, "table.Open", "segment too small for a table header", nil)
	}
	h := wire.TableHeaderAt(buf)
	if h.Magic != wire.TableMagic {
		return nil, zerr.New(zerr.InvalidArgument, "table.Open", "bad table magic", map[string]any{
			"got": h.Magic, "want": wire.TableMagic,
		})
	}
	if err := checkVersion(h.Version); err != nil {
		return nil, err
	}
	if h.EntryCount&^entryCountLockBit > uint32(capacity) {
		return nil, zerr.New(zerr.InvalidArgument, "table.Open",
			"entry count exceeds supplied capacity", map[string]any{
				"entry_count": h.EntryCount &^ entryCountLockBit, "capacity": capacity,
			})
	}
	return &Table{buf: buf, capacity: uint32(capacity)}, nil
}

func checkVersion(onDisk uint32) error {
	want, err := semver.NewVersion(FormatVersion)
	if err != nil {
		return zerr.New(zerr.IOError, "table.Open", "invalid embedded format version", nil)
	}
	got, err := semver.NewVersion(fmt.Sprintf("%d.0.0", onDisk))
	if err != nil {
		return zerr.New(zerr.Unsupported, "table.Open", "unparseable on-disk version", map[string]any{"version": onDisk})
	}
	if got.Major() != want.Major() {
		return zerr.New(zerr.Unsupported, "table.Open", "incompatible table format major version",
			map[string]any{"on_disk_major": got.Major(), "supported_major": want.Major()})
	}
	return nil
}

func entryOffset(i uint32) int { return wire.TableHeaderSize + int(i)*wire.TableEntrySize }

// lock acquires the cross-process add lock, spinning with bounded
// retries. It returns the entry count observed at the moment the lock
// was acquired (with the lock bit already cleared from the read).
func (t *Table) lock() (uint32, error) {
	for spins := 0; ; spins++ {
		raw := xatomic.LoadUint32(t.buf, 8) // entry_count is the 3rd u32 field, at byte offset 8
		if raw&entryCountLockBit != 0 {
			if spins > lockSpinLimit {
				return 0, zerr.New(zerr.IOError, "table.Add", "timed out waiting for table lock", nil)
			}
			continue
		}
		if xatomic.CASUint32(t.buf, 8, raw, raw|entryCountLockBit) {
			return raw, nil
		}
	}
}

// unlock commits the new entry count (lock bit cleared), the final step
// of Add's critical section, after next_free_offset has already been
// updated.
func (t *Table) unlock(newCount uint32) {
	xatomic.StoreUint32(t.buf, 8, newCount&^entryCountLockBit)
}

// Add allocates size bytes (aligned up to 8) for a new entry named name
// and returns its offset. Fails with zerr.AlreadyExists on duplicate
// name, zerr.TableFull when entry_count==capacity, zerr.OutOfMemory when
// the bump allocator would exceed the segment, zerr.InvalidArgument when
// name is empty, exceeds 31 bytes, or size==0.
func (t *Table) Add(name string, size int) (uint32, error) {
	if name == "" || len(name) > wire.TableEntryNameMaxLen {
		return 0, zerr.New(zerr.InvalidArgument, "table.Add", "name must be 1-31 bytes", map[string]any{"name": name})
	}
	if size <= 0 {
		return 0, zerr.New(zerr.InvalidArgument, "table.Add", "size must be positive", map[string]any{"size": size})
	}

	count, err := t.lock()
	if err != nil {
		return 0, err
	}

	offset, addErr := t.addLocked(name, uint32(size), count)
	if addErr != nil {
		// No mutation happened yet in any failure path below; release
		// the lock with the count unchanged.
		t.unlock(count)
		return 0, addErr
	}
	return offset, nil
}

func (t *Table) addLocked(name string, size uint32, count uint32) (uint32, error) {
	if count >= t.capacity {
		return 0, zerr.New(zerr.TableFull, "table.Add", "table is at capacity", map[string]any{"capacity": t.capacity})
	}
	for i := uint32(0); i < count; i++ {
		e := wire.TableEntryAt(t.buf[entryOffset(i):])
		if e.Name == name {
			return 0, zerr.New(zerr.AlreadyExists, "table.Add", "duplicate entry name", map[string]any{"name": name})
		}
	}

	h := wire.TableHeaderAt(t.buf)
	alignedSize := wire.AlignUp8(size)
	newFree := h.NextFreeOffset + alignedSize
	if int(newFree) > len(t.buf) {
		return 0, zerr.New(zerr.OutOfMemory, "table.Add", "bump allocation exceeds segment capacity", map[string]any{
			"requested": alignedSize, "segment_capacity": len(t.buf),
		})
	}

	offset := h.NextFreeOffset
	wire.PutTableEntry(t.buf[entryOffset(count):], wire.TableEntry{Name: name, Offset: offset, Size: alignedSize})

	// next_free_offset is updated while still holding the lock, and the
	// lock is released only once both the entry and next_free_offset are
	// committed, so no reader ever observes the new entry_count paired
	// with a stale next_free_offset.
	xatomic.StoreUint32(t.buf, wire.TableHeaderSize-4, newFree)
	t.unlock(count + 1)
	return offset, nil
}

// Find returns the offset and size registered under name. Lock-free:
// entries, once written, are never mutated except for name-erasure in
// Remove.
func (t *Table) Find(name string) (offset uint32, size uint32, err error) {
	count := xatomic.LoadUint32(t.buf, 8) &^ entryCountLockBit
	for i := uint32(0); i < count; i++ {
		e := wire.TableEntryAt(t.buf[entryOffset(i):])
		if e.Name == name {
			return e.Offset, e.Size, nil
		}
	}
	return 0, 0, zerr.New(zerr.NotFound, "table.Find", "no such entry", map[string]any{"name": name})
}

// Remove marks the named entry unused by zeroing its name. Offset and
// size are retained for debugging; the space is never reclaimed, so a
// later Add with the same name is permitted (the scan in Find/Add skips
// unused slots, which have an empty name).
func (t *Table) Remove(name string) error {
	count, err := t.lock()
	if err != nil {
		return err
	}
	defer t.unlock(count)

	for i := uint32(0); i < count; i++ {
		off := entryOffset(i)
		e := wire.TableEntryAt(t.buf[off:])
		if e.Name == name {
			wire.ClearTableEntryName(t.buf[off:])
			return nil
		}
	}
	return zerr.New(zerr.NotFound, "table.Remove", "no such entry", map[string]any{"name": name})
}

// Count returns the number of entries ever created, including any
// removed (name-erased) slots, matching entry_count on the wire.
func (t *Table) Count() int {
	return int(xatomic.LoadUint32(t.buf, 8) &^ entryCountLockBit)
}

// Entry is a decoded table entry handed to Iterate's callback.
type Entry struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Iterate calls fn for every live (non-removed) entry in creation order,
// stopping early if fn returns false.
func (t *Table) Iterate(fn func(Entry) bool) {
	count := xatomic.LoadUint32(t.buf, 8) &^ entryCountLockBit
	for i := uint32(0); i < count; i++ {
		e := wire.TableEntryAt(t.buf[entryOffset(i):])
		if e.Name == "" {
			continue
		}
		if !fn(Entry{Name: e.Name, Offset: e.Offset, Size: e.Size}) {
			return
		}
	}
}

// NextFreeOffset exposes the bump allocator cursor, primarily for tests
// asserting the wire-format scenarios in spec.md §8.
func (t *Table) NextFreeOffset() uint32 {
	return xatomic.LoadUint32(t.buf, wire.TableHeaderSize-4)
}

// Region returns the byte slice allocated at offset/size, for structure
// packages to build their typed view over.
func (t *Table) Region(offset, size uint32) []byte {
	return t.buf[offset : offset+size]
}
