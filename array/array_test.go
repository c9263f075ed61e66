package array

import (
	"encoding/binary"
	"testing"

	"github.com/zeroipc/zeroipc-go/internal/testutil"
	"github.com/zeroipc/zeroipc-go/table"
	"github.com/zeroipc/zeroipc-go/zerr"
)

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestSetGet_CrossView(t *testing.T) {
	// spec.md §8 scenario 2.
	seg := testutil.NewMemSegment(1 << 16)
	tb, err := table.Create(seg, 8)
	if err != nil {
		t.Fatal(err)
	}
	producer, err := Create(tb, "a", 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := producer.Set(0, u32(1)); err != nil {
		t.Fatal(err)
	}
	if err := producer.Set(1, u32(2)); err != nil {
		t.Fatal(err)
	}
	if err := producer.Set(2, u32(3)); err != nil {
		t.Fatal(err)
	}

	consumer, err := Open(tb, "a", 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []uint32{1, 2, 3} {
		got, err := consumer.Get(i)
		if err != nil {
			t.Fatal(err)
		}
		if binary.LittleEndian.Uint32(got) != want {
			t.Fatalf("Get(%d) = %d, want %d", i, binary.LittleEndian.Uint32(got), want)
		}
	}

	if err := producer.Set(3, u32(4)); !zerr.Is(err, zerr.OutOfRange) {
		t.Fatalf("Set(3,...) err = %v, want OutOfRange", err)
	}
}

func TestOpen_ElemSizeMismatch(t *testing.T) {
	seg := testutil.NewMemSegment(1 << 16)
	tb, _ := table.Create(seg, 8)
	if _, err := Create(tb, "a", 4, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(tb, "a", 8); !zerr.Is(err, zerr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestCAS(t *testing.T) {
	seg := testutil.NewMemSegment(1 << 16)
	tb, _ := table.Create(seg, 8)
	a, err := Create(tb, "a", 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Set(0, u32(10)); err != nil {
		t.Fatal(err)
	}

	ok, err := a.CAS(0, u32(10), u32(20))
	if err != nil || !ok {
		t.Fatalf("CAS = (%v,%v), want (true,nil)", ok, err)
	}
	ok, err = a.CAS(0, u32(10), u32(30))
	if err != nil || ok {
		t.Fatalf("CAS with stale expected = (%v,%v), want (false,nil)", ok, err)
	}
	got, _ := a.Get(0)
	if binary.LittleEndian.Uint32(got) != 20 {
		t.Fatalf("Get(0) = %d, want 20", binary.LittleEndian.Uint32(got))
	}
}

func TestCAS_UnsupportedWidth(t *testing.T) {
	seg := testutil.NewMemSegment(1 << 16)
	tb, _ := table.Create(seg, 8)
	a, err := Create(tb, "a", 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	_, err = a.CAS(0, []byte{1, 2, 3}, []byte{4, 5, 6})
	if !zerr.Is(err, zerr.Unsupported) {
		t.Fatalf("err = %v, want Unsupported", err)
	}
}

func TestCAS_ByteWidth(t *testing.T) {
	seg := testutil.NewMemSegment(1 << 16)
	tb, _ := table.Create(seg, 8)
	a, err := Create(tb, "a", 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := a.Set(i, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}

	ok, err := a.CAS(1, []byte{1}, []byte{0x42})
	if err != nil || !ok {
		t.Fatalf("CAS = (%v,%v), want (true,nil)", ok, err)
	}
	ok, err = a.CAS(1, []byte{1}, []byte{0x43})
	if err != nil || ok {
		t.Fatalf("CAS with stale expected = (%v,%v), want (false,nil)", ok, err)
	}

	// Neighboring bytes packed into the same 4-byte-aligned word must be
	// untouched by a CAS landing on one of them.
	for i, want := range []byte{0, 0x42, 2, 3} {
		got, _ := a.Get(i)
		if got[0] != want {
			t.Fatalf("Get(%d) = %#x, want %#x", i, got[0], want)
		}
	}
}

func TestCAS_HalfWordWidth(t *testing.T) {
	seg := testutil.NewMemSegment(1 << 16)
	tb, _ := table.Create(seg, 8)
	a, err := Create(tb, "a", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Set(0, []byte{0x11, 0x22}); err != nil {
		t.Fatal(err)
	}
	if err := a.Set(1, []byte{0x33, 0x44}); err != nil {
		t.Fatal(err)
	}

	ok, err := a.CAS(1, []byte{0x33, 0x44}, []byte{0x55, 0x66})
	if err != nil || !ok {
		t.Fatalf("CAS = (%v,%v), want (true,nil)", ok, err)
	}

	got0, _ := a.Get(0)
	if got0[0] != 0x11 || got0[1] != 0x22 {
		t.Fatalf("Get(0) = %x, want [11 22] (neighboring element disturbed)", got0)
	}
	got1, _ := a.Get(1)
	if got1[0] != 0x55 || got1[1] != 0x66 {
		t.Fatalf("Get(1) = %x, want [55 66]", got1)
	}
}
