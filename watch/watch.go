// Package watch turns shader file saves into pass names to recompile.
//
// A [Watcher] maps shader source paths to the names of the passes that load
// them. When a watched file is written, created or renamed into place, the
// names of its passes are sent on [Watcher.Events] once the file has been
// quiet for the debounce interval. Editors that save through a temporary
// file and a rename are covered because the watcher observes the directory,
// not the file.
//
// The watcher only produces names. Recompiling is the render goroutine's
// job:
//
//	for {
//	    for _, name := range watch.Drain(w.Events()) {
//	        eng.Recompile(name)
//	    }
//	    eng.Render(width, height)
//	}
package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet time after the last event on a file before
// its passes are reported.
const DefaultDebounce = 100 * time.Millisecond

// eventBuffer is the capacity of the Events channel.
const eventBuffer = 64

// ErrClosed is returned when adding paths to a closed watcher.
var ErrClosed = errors.New("watch: watcher is closed")

// Watcher reports the passes whose shader files changed.
//
// Add, Remove and Close are safe for concurrent use.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	byPath  map[string][]string
	dirs    map[string]int
	pending map[string]*time.Timer
	closed  bool

	events chan string
	done   chan struct{}
	wg     sync.WaitGroup
}

// New starts a watcher. A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		fs:       fw,
		debounce: debounce,
		byPath:   make(map[string][]string),
		dirs:     make(map[string]int),
		pending:  make(map[string]*time.Timer),
		events:   make(chan string, eventBuffer),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add watches path on behalf of the named passes. Adding a path again adds
// names to it.
func (w *Watcher) Add(path string, names ...string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	if _, known := w.byPath[abs]; !known {
		dir := filepath.Dir(abs)
		if w.dirs[dir] == 0 {
			if err := w.fs.Add(dir); err != nil {
				return fmt.Errorf("watch: add %s: %w", dir, err)
			}
		}
		w.dirs[dir]++
	}
	for _, name := range names {
		if !slices.Contains(w.byPath[abs], name) {
			w.byPath[abs] = append(w.byPath[abs], name)
		}
	}
	if _, ok := w.byPath[abs]; !ok {
		w.byPath[abs] = []string{}
	}
	slogger().Debug("watch: added", "path", abs, "passes", w.byPath[abs])
	return nil
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.byPath[abs]; !ok {
		return nil
	}
	delete(w.byPath, abs)
	if t := w.pending[abs]; t != nil {
		t.Stop()
		delete(w.pending, abs)
	}

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	if w.closed {
		return nil
	}
	if err := w.fs.Remove(dir); err != nil {
		return fmt.Errorf("watch: remove %s: %w", dir, err)
	}
	return nil
}

// Paths returns the watched paths, sorted.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := make([]string, 0, len(w.byPath))
	for p := range w.byPath {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Events returns the channel pass names are sent on. It is closed by Close.
func (w *Watcher) Events() <-chan string { return w.events }

// Close stops the watcher and closes the Events channel. Pending debounced
// reports are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slogger().Warn("watch: file system error", "err", err)
		}
	}
}

// handle schedules a report for a relevant event on a watched path.
func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, watched := w.byPath[path]; !watched {
		return
	}
	if t := w.pending[path]; t != nil {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

// fire sends the pass names of path once its debounce interval expired.
// Sends never block, so they happen under the lock that Close takes before
// closing the channel.
func (w *Watcher) fire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, path)
	if w.closed {
		return
	}

	names := w.byPath[path]
	slogger().Debug("watch: changed", "path", path, "passes", names)
	for _, name := range names {
		select {
		case w.events <- name:
		default:
			slogger().Warn("watch: event buffer full, dropping", "pass", name)
		}
	}
}

// Drain returns the names waiting on ch without blocking, each name once,
// in arrival order.
func Drain(ch <-chan string) []string {
	var names []string
	for {
		select {
		case name, ok := <-ch:
			if !ok {
				return names
			}
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		default:
			return names
		}
	}
}
