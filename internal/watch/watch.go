// Package watch reports when the asset root is rebuilt.
//
// A `flutter build web` rewrites dozens of files in a burst; events are
// coalesced so the callback fires once per burst with every path touched.
package watch

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultQuiet is how long the tree must be quiet before the callback fires.
const DefaultQuiet = 300 * time.Millisecond

// Watcher watches a directory tree.
type Watcher struct {
	root     string
	fw       *fsnotify.Watcher
	debounce func(func())
	onChange func(paths []string)
	onError  func(error)

	mu      sync.Mutex
	pending map[string]struct{}

	done    chan struct{}
	stopped bool
}

// New creates a watcher for root. onChange receives the sorted paths that
// changed since the last call.
func New(root string, quiet time.Duration, onChange func(paths []string)) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		fw:       fw,
		debounce: debounce.New(quiet),
		onChange: onChange,
		onError:  func(error) {},
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// OnError sets a handler for watcher errors. Errors are dropped by default.
func (w *Watcher) OnError(f func(error)) {
	w.onError = f
}

// Start adds every directory under root and begins delivering events.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.fw.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			// New directories (e.g. a fresh assets/ after a clean build) need their own watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fw.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = struct{}{}
			w.mu.Unlock()
			w.debounce(w.flush)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.onError(err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.onChange(paths)
}

// Close stops watching. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.done)
	return w.fw.Close()
}
