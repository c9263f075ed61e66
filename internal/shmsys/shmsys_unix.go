//go:build unix

package shmsys

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// shmDir returns the directory backing named shared-memory objects on
// this host: /dev/shm when present (every mainstream Linux distribution
// mounts a tmpfs there, which is exactly what glibc's shm_open uses
// under the hood), falling back to a per-user temp directory on hosts
// without it (Darwin and the BSDs have no standard equivalent reachable
// without cgo). Both are tmpfs-or-disk-backed, mmap-shared, multi-process
// visible regions, which is the only property this module's contract
// (§6 "out-of-scope but required of the host: a POSIX-like shared-memory
// facility") actually depends on.
func shmDir() string {
	if st, err := os.Stat("/dev/shm"); err == nil && st.IsDir() {
		return "/dev/shm"
	}
	dir := filepath.Join(os.TempDir(), "zeroipc")
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func pathFor(name string) string {
	return filepath.Join(shmDir(), name[1:])
}

// Create creates a new named region sized to capacity bytes and maps it
// read-write shared. Fails if the object already exists.
func Create(name string, capacity int) (*Handle, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	path := pathFor(name)
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
		_ = unix.Unlink(path)
		return nil, err
	}
	data, err := unix.Mmap(fd, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Unlink(path)
		return nil, err
	}
	return &Handle{Data: data}, nil
}

// Open maps an existing named region read-write shared. Fails if the
// object does not exist.
func Open(name string) (*Handle, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	path := pathFor(name)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	st, err := unix.Fstat(fd)
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &Handle{Data: data}, nil
}

// Unlink removes the named OS object. Idempotent: a missing object is
// not an error.
func Unlink(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := unix.Unlink(pathFor(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether the named object currently exists, used by the
// optional fsnotify-backed WatchUnlink helper to avoid racing a fresh
// Create against a stale "deleted" notification.
func Exists(name string) bool {
	if err := validateName(name); err != nil {
		return false
	}
	_, err := os.Stat(pathFor(name))
	return err == nil
}

// Dir exposes the backing directory so segment.WatchUnlink can fsnotify it.
func Dir() string { return shmDir() }

// Close unmaps the region. It does not remove the OS object.
func (h *Handle) Close() error {
	if h.Data == nil {
		return nil
	}
	err := unix.Munmap(h.Data)
	h.Data = nil
	return err
}
