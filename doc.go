// Package zeroipc turns a named POSIX shared-memory segment into a
// self-describing container of lock-free data structures usable
// concurrently by unrelated processes.
//
// A segment (package segment) holds a discovery table (package table) at
// a fixed offset and a bump-allocated region of named structures: arrays
// (package array), lock-free MPMC queues (package queue), and lock-free
// LIFO stacks (package stack). Any process that knows the segment name,
// a structure's name, and its element size can attach and perform
// operations with zero copying and no kernel mediation after the initial
// map.
//
// Typical usage, one process creating a queue and another attaching to
// it:
//
//	seg, _ := segment.Create("/orders", segment.Options{Capacity: 1 << 20})
//	defer seg.Close()
//	tb, _ := table.Create(seg, table.DefaultCapacity)
//	q, _ := queue.Create(tb, "orders", 8, 1024)
//	_ = q.Push(encodeOrder(o))
//
//	// in another process:
//	seg, _ := segment.Open("/orders", segment.Options{})
//	defer seg.Close()
//	tb, _ := table.Open(seg, table.DefaultCapacity)
//	q, _ := queue.Open(tb, "orders", 8)
//	var buf [8]byte
//	_ = q.Pop(buf[:])
//
// This package itself exports nothing; it exists to document how the
// segment/table/array/queue/stack packages compose. CLI inspection
// tools, language-binding ergonomics, and higher-level data structures
// (codata, reactive combinators, maps/sets/bitsets, extra synchronization
// primitives, object pools) are out of scope for this module; they are
// external collaborators of the interfaces documented here.
package zeroipc
