// Package shmsys is the per-OS backend behind the segment package: it
// turns a POSIX-style name ("/foo") into a mapped region of bytes, the
// same narrow surface the teacher's asyncio package carves out per OS
// (zerocopy_unix_file.go vs iocp_poller_windows.go) rather than leaking
// syscall/unix types into the public API.
package shmsys

import "fmt"

// Handle is an open, mapped backing object. Close unmaps but does not
// remove the OS object; Unlink (a package-level function, since it must
// work even when nothing is mapped) removes it.
type Handle struct {
	Data []byte
}

func validateName(name string) error {
	if len(name) == 0 || name[0] != '/' {
		return fmt.Errorf("shmsys: name %q must begin with '/'", name)
	}
	if len(name) > 255 {
		return fmt.Errorf("shmsys: name %q exceeds 255 bytes", name)
	}
	return nil
}
