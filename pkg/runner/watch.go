package runner

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/specvital/phpunit-runner/pkg/registry"
)

// Watcher maps file changes onto continuous-run subscriptions.
// Each relevant change submits one run; there is no debounce.
type Watcher struct {
	mu     sync.Mutex
	nextID int
	all    map[int]bool
	items  map[int][]string
	submit func(ids []string)
}

// NewWatcher creates a Watcher. submit receives the item ids to run; an empty
// slice means every item.
func NewWatcher(submit func(ids []string)) *Watcher {
	return &Watcher{
		all:    make(map[int]bool),
		items:  make(map[int][]string),
		submit: submit,
	}
}

// WatchAll subscribes to every change. The returned func unsubscribes.
func (w *Watcher) WatchAll() (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.all[id] = true
	return func() { w.unsubscribe(id) }
}

// Watch subscribes to changes of the files behind the given items.
func (w *Watcher) Watch(ids []string) (cancel func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.items[id] = append([]string(nil), ids...)
	return func() { w.unsubscribe(id) }
}

func (w *Watcher) unsubscribe(id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.all, id)
	delete(w.items, id)
}

// Active reports whether any subscription exists.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.all) > 0 || len(w.items) > 0
}

// Notify reacts to a saved file. It returns the ids submitted, nil for a
// run of everything, and whether anything was submitted.
func (w *Watcher) Notify(path string, tree Tree) ([]string, bool) {
	w.mu.Lock()
	all := len(w.all) > 0
	var watched []string
	for _, ids := range w.items {
		watched = append(watched, ids...)
	}
	w.mu.Unlock()

	if all {
		w.submit(nil)
		return nil, true
	}

	path = filepath.Clean(path)
	seen := make(map[string]bool)
	var matched []string
	for _, id := range watched {
		if seen[id] {
			continue
		}
		seen[id] = true
		it, ok := tree.Get(id)
		if !ok || it.Kind == registry.KindDirectory {
			continue
		}
		if filepath.Clean(it.Path) == path {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return nil, false
	}
	sort.Strings(matched)
	w.submit(matched)
	return matched, true
}
