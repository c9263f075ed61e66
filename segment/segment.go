// Package segment owns the mapping of a named kernel-backed shared
// memory object into this process's address space, exposing a base byte
// slice and capacity to the table and structure packages above it. It is
// the only package in this module that talks to the operating system.
package segment

import (
	"log"
	"os"
	"sync/atomic"

	"github.com/zeroipc/zeroipc-go/internal/shmsys"
	"github.com/zeroipc/zeroipc-go/zerr"
)

// UnlinkPolicy controls what (*Segment).Close does to the OS object when
// this handle was the one that created it.
type UnlinkPolicy int

const (
	// UnlinkManual never removes the OS object on Close; the caller must
	// call Unlink explicitly. This is the default.
	UnlinkManual UnlinkPolicy = iota
	// UnlinkOnCreatorDrop removes the OS object on Close, but only for
	// the handle that created it.
	UnlinkOnCreatorDrop
)

// MinCapacity is the smallest segment capacity Create will accept: a
// table header with zero entries (the table package has no exported
// constant for this, and segment must not import table anyway, so the
// floor is stated here as the bare 16-byte table-header size).
const MinCapacity = 16

// Options configures segment creation. Open ignores every field except
// Logger.
type Options struct {
	// Capacity is the total segment size in bytes. Required on Create.
	Capacity int
	// UnlinkPolicy governs Close's cleanup behavior. Defaults to
	// UnlinkManual.
	UnlinkPolicy UnlinkPolicy
	// Logger receives lifecycle diagnostics (create/open). If nil,
	// log.Default() is used, matching this codebase's convention of a
	// bare *log.Logger rather than a third-party logging framework.
	Logger *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// Segment is a mapped, named shared-memory region. The zero value is not
// usable; construct with Create or Open.
type Segment struct {
	name    string
	handle  *shmsys.Handle
	creator bool
	policy  UnlinkPolicy
	logger  *log.Logger
	closed  int32
}

// Create creates a new segment, sizes it to opts.Capacity, and maps it
// read-write shared. Fails with zerr.AlreadyExists if the OS object is
// already present, zerr.InvalidArgument if Capacity is below MinCapacity,
// zerr.IOError on any other OS failure.
func Create(name string, opts Options) (*Segment, error) {
	if opts.Capacity < MinCapacity {
		return nil, zerr.New(zerr.InvalidArgument, "segment.Create",
			"capacity below minimum table overhead", map[string]any{
				"capacity": opts.Capacity, "min": MinCapacity,
			})
	}
	h, err := shmsys.Create(name, opts.Capacity)
	if err != nil {
		if os.IsExist(err) {
			return nil, zerr.New(zerr.AlreadyExists, "segment.Create", "segment already exists",
				map[string]any{"name": name})
		}
		return nil, zerr.New(zerr.IOError, "segment.Create", err.Error(), map[string]any{"name": name})
	}
	for i := range h.Data {
		h.Data[i] = 0
	}
	s := &Segment{
		name:    name,
		handle:  h,
		creator: true,
		policy:  opts.UnlinkPolicy,
		logger:  opts.logger(),
	}
	s.logger.Printf("zeroipc: created segment %s (%d bytes)", name, opts.Capacity)
	return s, nil
}

// Open maps an existing segment read-write shared. Fails with
// zerr.NotFound if absent, zerr.IOError otherwise.
func Open(name string, opts Options) (*Segment, error) {
	h, err := shmsys.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, zerr.New(zerr.NotFound, "segment.Open", "segment does not exist",
				map[string]any{"name": name})
		}
		return nil, zerr.New(zerr.IOError, "segment.Open", err.Error(), map[string]any{"name": name})
	}
	s := &Segment{
		name:   name,
		handle: h,
		policy: opts.UnlinkPolicy,
		logger: opts.logger(),
	}
	s.logger.Printf("zeroipc: opened segment %s (%d bytes)", name, len(h.Data))
	return s, nil
}

// Unlink removes the named OS object so no new opener can find it;
// existing mappings remain valid. Idempotent: a missing object is not an
// error.
func Unlink(name string) error {
	if err := shmsys.Unlink(name); err != nil {
		return zerr.New(zerr.IOError, "segment.Unlink", err.Error(), map[string]any{"name": name})
	}
	return nil
}

// Base returns the mapped region. Callers must not retain it past Close.
func (s *Segment) Base() []byte { return s.handle.Data }

// Capacity returns the segment's byte size.
func (s *Segment) Capacity() int { return len(s.handle.Data) }

// Name returns the segment's OS-global name.
func (s *Segment) Name() string { return s.name }

// IsCreator reports whether this handle created the segment.
func (s *Segment) IsCreator() bool { return s.creator }

// Close unmaps this handle. Per UnlinkOnCreatorDrop, a creator handle
// also removes the OS object; a UnlinkManual handle (the default) never
// does, leaving cleanup to an explicit Unlink call.
func (s *Segment) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	err := s.handle.Close()
	if s.creator && s.policy == UnlinkOnCreatorDrop {
		if uerr := shmsys.Unlink(s.name); uerr != nil && err == nil {
			err = uerr
		}
	}
	if err != nil {
		return zerr.New(zerr.IOError, "segment.Close", err.Error(), map[string]any{"name": s.name})
	}
	return nil
}
