package segment

import (
	"fmt"
	"os"
	"testing"

	"github.com/zeroipc/zeroipc-go/zerr"
)

func uniqueName(t *testing.T) string {
	return fmt.Sprintf("/zeroipc-test-%d-%d", os.Getpid(), t.Name()[0]+uint8(len(t.Name())))
}

func TestCreateOpenUnlink_Scenario1(t *testing.T) {
	name := uniqueName(t)
	_ = Unlink(name) // best-effort cleanup from a prior failed run

	seg, err := Create(name, Options{Capacity: 1 << 20})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer Unlink(name)
	defer seg.Close()

	if seg.Capacity() != 1<<20 {
		t.Fatalf("Capacity() = %d, want %d", seg.Capacity(), 1<<20)
	}
	if !seg.IsCreator() {
		t.Fatal("IsCreator() = false on the creating handle")
	}

	second, err := Open(name, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer second.Close()
	if second.Capacity() != seg.Capacity() {
		t.Fatalf("second.Capacity() = %d, want %d", second.Capacity(), seg.Capacity())
	}

	if err := Unlink(name); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, err := Open(name, Options{}); !zerr.Is(err, zerr.NotFound) {
		t.Fatalf("Open after unlink err = %v, want NotFound", err)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	name := uniqueName(t)
	_ = Unlink(name)

	seg, err := Create(name, Options{Capacity: 4096})
	if err != nil {
		t.Fatal(err)
	}
	defer Unlink(name)
	defer seg.Close()

	if _, err := Create(name, Options{Capacity: 4096}); !zerr.Is(err, zerr.AlreadyExists) {
		t.Fatalf("err = %v, want AlreadyExists", err)
	}
}

func TestCreate_InvalidArgument(t *testing.T) {
	name := uniqueName(t)
	if _, err := Create(name, Options{Capacity: 4}); !zerr.Is(err, zerr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestUnlink_Idempotent(t *testing.T) {
	name := uniqueName(t)
	_ = Unlink(name)
	if err := Unlink(name); err != nil {
		t.Fatalf("Unlink on missing segment: %v", err)
	}
}

func TestUnlinkOnCreatorDrop(t *testing.T) {
	name := uniqueName(t)
	_ = Unlink(name)

	seg, err := Create(name, Options{Capacity: 4096, UnlinkPolicy: UnlinkOnCreatorDrop})
	if err != nil {
		t.Fatal(err)
	}
	if err := seg.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(name, Options{}); !zerr.Is(err, zerr.NotFound) {
		t.Fatalf("Open after creator-drop unlink err = %v, want NotFound", err)
	}
}
