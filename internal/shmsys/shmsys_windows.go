//go:build windows

package shmsys

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows has no named-unlink semantics for pagefile-backed file
// mappings: the object disappears when the last HANDLE closes. To give
// Unlink the documented "no new opener can find it" behavior without a
// disk-backed file, this backend keeps one open-but-otherwise-unused
// handle per created segment in a process-local registry and drops it on
// Unlink, exactly mirroring glibc's shm_unlink semantics (existing
// mappings stay valid; new opens fail) for the case where this process
// is the only one still holding a handle. A segment created by one
// process and opened by another on the same machine still works via
// CreateFileMapping/OpenFileMapping's name table; only same-process
// "creator never released its grip" Unlink semantics need this registry.
var (
	registryMu sync.Mutex
	registry   = map[string]windows.Handle{}
)

func mappingName(name string) string {
	// Windows kernel object names may not contain backslashes; the
	// leading '/' from the POSIX convention is translated to "Local\".
	return `Local\zeroipc` + name
}

func Create(name string, capacity int) (*Handle, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	wname := mappingName(name)
	namePtr, err := windows.UTF16PtrFromString(wname)
	if err != nil {
		return nil, err
	}

	hi := uint32(uint64(capacity) >> 32)
	lo := uint32(uint64(capacity) & 0xffffffff)

	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, hi, lo, namePtr)
	if err != nil {
		return nil, err
	}
	if err == nil && h != 0 {
		// CreateFileMapping succeeds but reports ERROR_ALREADY_EXISTS via
		// GetLastError when the name table already has an entry.
		if lastErr := windows.GetLastError(); lastErr == windows.ERROR_ALREADY_EXISTS {
			windows.CloseHandle(h)
			return nil, fmt.Errorf("shmsys: segment %q already exists: %w", name, os.ErrExist)
		}
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_ALL_ACCESS, 0, 0, uintptr(capacity))
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}

	registryMu.Lock()
	registry[name] = h
	registryMu.Unlock()

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), capacity)
	return &Handle{Data: data}, nil
}

func Open(name string) (*Handle, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	wname := mappingName(name)
	namePtr, err := windows.UTF16PtrFromString(wname)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenFileMapping(windows.FILE_MAP_ALL_ACCESS, false, namePtr)
	if err != nil {
		if err == windows.ERROR_FILE_NOT_FOUND {
			return nil, fmt.Errorf("shmsys: segment %q not found: %w", name, os.ErrNotExist)
		}
		return nil, err
	}
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_ALL_ACCESS, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	mbi, err := windows.VirtualQuery(addr)
	if err != nil {
		windows.UnmapViewOfFile(addr)
		windows.CloseHandle(h)
		return nil, err
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(mbi.RegionSize))
	return &Handle{Data: data}, nil
}

func Unlink(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	registryMu.Lock()
	h, ok := registry[name]
	delete(registry, name)
	registryMu.Unlock()
	if ok {
		windows.CloseHandle(h)
	}
	return nil
}

func Exists(name string) bool {
	registryMu.Lock()
	_, ok := registry[name]
	registryMu.Unlock()
	return ok
}

func Dir() string { return `Local\zeroipc` }

func (h *Handle) Close() error {
	if h.Data == nil {
		return nil
	}
	err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&h.Data[0])))
	h.Data = nil
	return err
}
