// Package wire defines the byte-exact on-disk layouts shared by every
// zeroipc structure. All integers are little-endian; nothing here uses
// reflection, matching the low-level runtime code this module is modeled
// on, which keeps hot-path (de)serialization to encoding/binary only.
package wire

import "encoding/binary"

// TableMagic identifies a zeroipc table header: ASCII "ZIPM".
const TableMagic uint32 = 0x5A49504D

// TableFormatVersion is the on-disk table format version this package
// writes. Compatibility across versions is judged by table.Open using
// Masterminds/semver (see table package); this constant is the literal
// wire value required byte-exact by spec scenario 1.
const TableFormatVersion uint32 = 1

const (
	// TableHeaderSize is the fixed byte size of the table header.
	TableHeaderSize = 16
	// TableEntrySize is the fixed byte size of one table entry.
	TableEntrySize = 40
	// TableEntryNameSize is the NUL-terminated/padded name field width.
	TableEntryNameSize = 32
	// TableEntryNameMaxLen is the maximum usable characters in a name
	// (one byte reserved for the terminator).
	TableEntryNameMaxLen = TableEntryNameSize - 1
)

// TableHeader mirrors the 16-byte on-disk table header.
type TableHeader struct {
	Magic           uint32
	Version         uint32
	EntryCount      uint32
	NextFreeOffset  uint32
}

// PutTableHeader encodes h into buf[:TableHeaderSize].
func PutTableHeader(buf []byte, h TableHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.EntryCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.NextFreeOffset)
}

// TableHeaderAt decodes the header from buf[:TableHeaderSize].
func TableHeaderAt(buf []byte) TableHeader {
	return TableHeader{
		Magic:          binary.LittleEndian.Uint32(buf[0:4]),
		Version:        binary.LittleEndian.Uint32(buf[4:8]),
		EntryCount:     binary.LittleEndian.Uint32(buf[8:12]),
		NextFreeOffset: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// TableEntry mirrors one 40-byte on-disk table entry.
type TableEntry struct {
	Name   string
	Offset uint32
	Size   uint32
}

// PutTableEntry encodes e into buf[:TableEntrySize].
func PutTableEntry(buf []byte, e TableEntry) {
	var name [TableEntryNameSize]byte
	copy(name[:TableEntryNameMaxLen], e.Name)
	copy(buf[0:TableEntryNameSize], name[:])
	binary.LittleEndian.PutUint32(buf[32:36], e.Offset)
	binary.LittleEndian.PutUint32(buf[36:40], e.Size)
}

// TableEntryAt decodes one entry from buf[:TableEntrySize].
func TableEntryAt(buf []byte) TableEntry {
	nameRaw := buf[0:TableEntryNameSize]
	n := 0
	for n < len(nameRaw) && nameRaw[n] != 0 {
		n++
	}
	return TableEntry{
		Name:   string(nameRaw[:n]),
		Offset: binary.LittleEndian.Uint32(buf[32:36]),
		Size:   binary.LittleEndian.Uint32(buf[36:40]),
	}
}

// ClearTableEntryName zeroes the name field of an entry in place, the
// wire-level implementation of Table.Remove (the slot becomes unused
// without reclaiming its offset/size).
func ClearTableEntryName(buf []byte) {
	for i := 0; i < TableEntryNameSize; i++ {
		buf[i] = 0
	}
}

// AlignUp8 rounds n up to the next multiple of 8.
func AlignUp8(n uint32) uint32 {
	return (n + 7) &^ 7
}

// --- Queue region layout ---
//
// [QueueHeader 24B, padded to 64B][capacity * 8B sequence words][capacity * elemSize element buffer]

const (
	QueueHeaderLogicalSize = 24
	QueueHeaderPaddedSize  = 64
	QueueSeqWordSize       = 8
)

// QueueHeader mirrors the logical (unpadded) 24-byte queue header.
type QueueHeader struct {
	ElemSize uint32
	Capacity uint32
	Head     uint64
	Tail     uint64
}

// PutQueueHeader encodes h into buf[:QueueHeaderLogicalSize] (caller is
// responsible for zeroing the padding out to QueueHeaderPaddedSize).
func PutQueueHeader(buf []byte, h QueueHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.ElemSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.Capacity)
	binary.LittleEndian.PutUint64(buf[8:16], h.Head)
	binary.LittleEndian.PutUint64(buf[16:24], h.Tail)
}

// QueueHeaderAt decodes the logical header fields; Head/Tail are read
// here only for introspection/tests — live access goes through
// internal/xatomic against the same offsets.
func QueueHeaderAt(buf []byte) QueueHeader {
	return QueueHeader{
		ElemSize: binary.LittleEndian.Uint32(buf[0:4]),
		Capacity: binary.LittleEndian.Uint32(buf[4:8]),
		Head:     binary.LittleEndian.Uint64(buf[8:16]),
		Tail:     binary.LittleEndian.Uint64(buf[16:24]),
	}
}

const (
	QueueHeadOffset = 8
	QueueTailOffset = 16
)

// QueueSeqOffset returns the byte offset (from the start of the region)
// of the sequence word for slot i.
func QueueSeqOffset(capacity uint32, i uint32) int {
	return QueueHeaderPaddedSize + int(i)*QueueSeqWordSize
}

// QueueElemsOffset returns the byte offset of the element buffer.
func QueueElemsOffset(capacity uint32) int {
	return QueueHeaderPaddedSize + int(capacity)*QueueSeqWordSize
}

// QueueRegionSize returns the total region size for a queue of the given
// capacity and element size.
func QueueRegionSize(capacity, elemSize uint32) uint32 {
	return uint32(QueueElemsOffset(capacity)) + capacity*elemSize
}

// --- Stack region layout ---
//
// [StackHeader 16B][capacity * elemSize element buffer]

const StackHeaderSize = 16

// StackHeader mirrors the 16-byte stack header.
type StackHeader struct {
	ElemSize       uint32
	Capacity       uint32
	TopAndVersion  uint64
}

func PutStackHeader(buf []byte, h StackHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.ElemSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.Capacity)
	binary.LittleEndian.PutUint64(buf[8:16], h.TopAndVersion)
}

func StackHeaderAt(buf []byte) StackHeader {
	return StackHeader{
		ElemSize:      binary.LittleEndian.Uint32(buf[0:4]),
		Capacity:      binary.LittleEndian.Uint32(buf[4:8]),
		TopAndVersion: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

const StackTopVersionOffset = 8

// StackElemsOffset returns the byte offset of the element buffer.
func StackElemsOffset() int { return StackHeaderSize }

// PackTopVersion packs a (top, version) pair into one uint64 the way the
// stack header stores it: top in the low 32 bits, version in the high 32.
func PackTopVersion(top, version uint32) uint64 {
	return uint64(top) | uint64(version)<<32
}

// UnpackTopVersion is the inverse of PackTopVersion.
func UnpackTopVersion(packed uint64) (top, version uint32) {
	return uint32(packed), uint32(packed >> 32)
}

// --- Array region layout ---
//
// [ArrayHeader 8B][capacity * elemSize element buffer]

const ArrayHeaderSize = 8

type ArrayHeader struct {
	ElemSize uint32
	Capacity uint32
}

func PutArrayHeader(buf []byte, h ArrayHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.ElemSize)
	binary.LittleEndian.PutUint32(buf[4:8], h.Capacity)
}

func ArrayHeaderAt(buf []byte) ArrayHeader {
	return ArrayHeader{
		ElemSize: binary.LittleEndian.Uint32(buf[0:4]),
		Capacity: binary.LittleEndian.Uint32(buf[4:8]),
	}
}

func ArrayElemsOffset() int { return ArrayHeaderSize }
