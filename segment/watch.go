package segment

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/zeroipc/zeroipc-go/internal/shmsys"
	"github.com/zeroipc/zeroipc-go/zerr"
)

// WatchUnlink watches for another process unlinking the named segment
// and invokes fn exactly once when it happens. It is an optional
// convenience on top of the core contract, not on any hot path: the
// watcher goroutine is spawned here, by the caller's explicit opt-in,
// never by Create/Open/Unlink themselves, so it cannot violate the "core
// performs no thread creation in steady state" rule.
//
// The returned stop function stops watching; it is safe to call more
// than once.
func WatchUnlink(name string, fn func()) (stop func(), err error) {
	w, werr := fsnotify.NewWatcher()
	if werr != nil {
		return nil, zerr.New(zerr.IOError, "segment.WatchUnlink", werr.Error(), nil)
	}
	dir := shmsys.Dir()
	if werr := w.Add(dir); werr != nil {
		w.Close()
		return nil, zerr.New(zerr.IOError, "segment.WatchUnlink", werr.Error(), map[string]any{"dir": dir})
	}

	target := filepath.Join(dir, name[1:])
	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Name == target && (ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0) && !shmsys.Exists(name) {
					fn()
					return
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(done)
	}, nil
}
