package stack

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zeroipc/zeroipc-go/internal/testutil"
	"github.com/zeroipc/zeroipc-go/table"
	"github.com/zeroipc/zeroipc-go/zerr"
)

func u32b(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func mustStack(t *testing.T, capacity int) *Stack {
	t.Helper()
	seg := testutil.NewMemSegment(1 << 20)
	tb, err := table.Create(seg, 8)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Create(tb, "s", 4, capacity)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLIFO_Scenario4(t *testing.T) {
	s := mustStack(t, 3)
	for _, v := range []uint32{10, 20, 30} {
		if err := s.Push(u32b(v)); err != nil {
			t.Fatalf("Push(%d): %v", v, err)
		}
	}
	if err := s.Push(u32b(40)); !zerr.Is(err, zerr.Full) {
		t.Fatalf("err = %v, want Full", err)
	}

	out := make([]byte, 4)
	pop := func() uint32 {
		t.Helper()
		if err := s.Pop(out); err != nil {
			t.Fatalf("Pop: %v", err)
		}
		return binary.LittleEndian.Uint32(out)
	}
	if v := pop(); v != 30 {
		t.Fatalf("Pop = %d, want 30", v)
	}
	if v := pop(); v != 20 {
		t.Fatalf("Pop = %d, want 20", v)
	}
	if err := s.Push(u32b(40)); err != nil {
		t.Fatal(err)
	}
	if v := pop(); v != 40 {
		t.Fatalf("Pop = %d, want 40", v)
	}
	if v := pop(); v != 10 {
		t.Fatalf("Pop = %d, want 10", v)
	}
	if err := s.Pop(out); !zerr.Is(err, zerr.Empty) {
		t.Fatalf("err = %v, want Empty", err)
	}
}

func TestCapacityOne(t *testing.T) {
	s := mustStack(t, 1)
	if err := s.Push(u32b(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(u32b(2)); !zerr.Is(err, zerr.Full) {
		t.Fatalf("err = %v, want Full", err)
	}
	out := make([]byte, 4)
	if err := s.Pop(out); err != nil || binary.LittleEndian.Uint32(out) != 1 {
		t.Fatalf("Pop = (%v,%d)", err, binary.LittleEndian.Uint32(out))
	}
	if err := s.Pop(out); !zerr.Is(err, zerr.Empty) {
		t.Fatalf("err = %v, want Empty", err)
	}
}

func TestVersionIncreasesMonotonically(t *testing.T) {
	s := mustStack(t, 4)
	_, v0 := s.topVersion()
	if err := s.Push(u32b(1)); err != nil {
		t.Fatal(err)
	}
	_, v1 := s.topVersion()
	if v1 <= v0 {
		t.Fatalf("version did not increase: %d -> %d", v0, v1)
	}
	out := make([]byte, 4)
	if err := s.Pop(out); err != nil {
		t.Fatal(err)
	}
	_, v2 := s.topVersion()
	if v2 <= v1 {
		t.Fatalf("version did not increase on pop: %d -> %d", v1, v2)
	}
}

func TestConcurrentPushPop(t *testing.T) {
	const (
		producers        = 4
		consumers        = 4
		itemsPerProducer = 2000
	)
	s := mustStack(t, 1024)

	var poppedCount [producers * itemsPerProducer]int32
	var wgProd, wgCons sync.WaitGroup
	wgProd.Add(producers)
	for p := 0; p < producers; p++ {
		go func(id int) {
			defer wgProd.Done()
			for i := 0; i < itemsPerProducer; i++ {
				v := uint32(id*itemsPerProducer + i)
				for {
					if err := s.Push(u32b(v)); err == nil {
						break
					}
				}
			}
		}(p)
	}

	var totalPopped int64
	wgCons.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer wgCons.Done()
			out := make([]byte, 4)
			for atomic.LoadInt64(&totalPopped) < producers*itemsPerProducer {
				if err := s.Pop(out); err == nil {
					v := binary.LittleEndian.Uint32(out)
					if atomic.AddInt32(&poppedCount[v], 1) != 1 {
						t.Errorf("value %d popped more than once", v)
					}
					atomic.AddInt64(&totalPopped, 1)
				}
			}
		}()
	}

	wgProd.Wait()
	wgCons.Wait()

	for v, c := range poppedCount {
		if c != 1 {
			t.Errorf("value %d popped %d times, want 1", v, c)
		}
	}
}
