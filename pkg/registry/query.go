package registry

import (
	"errors"

	"github.com/specvital/phpunit-runner/pkg/domain"
)

// ErrUnknownItem is returned for ids that are not in the registry.
var ErrUnknownItem = errors.New("unknown test item")

// Get returns the item with the given id.
func (r *Registry) Get(id string) (Item, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return Item{}, false
	}
	return e.snapshot(), true
}

// Children returns the direct children of id in insertion order.
func (r *Registry) Children(id string) []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	return r.snapshots(e.children)
}

// Roots returns the top-level items.
func (r *Registry) Roots() []Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshots(r.roots)
}

// Len returns the number of items.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Walk calls fn for every item reachable from the roots, parents before
// children. The registry is not locked while fn runs.
func (r *Registry) Walk(fn func(item Item, depth int)) {
	type visit struct {
		item  Item
		depth int
	}

	r.mu.RLock()
	var items []visit
	var collect func(ids []string, depth int)
	collect = func(ids []string, depth int) {
		for _, id := range ids {
			e, ok := r.entries[id]
			if !ok {
				continue
			}
			items = append(items, visit{item: e.snapshot(), depth: depth})
			collect(e.children, depth+1)
		}
	}
	collect(r.roots, 0)
	r.mu.RUnlock()

	for _, v := range items {
		fn(v.item, v.depth)
	}
}

// ItemsForFile returns the file item for path followed by its classes and methods.
func (r *Registry) ItemsForFile(path string) []Item {
	var items []Item
	r.Walk(func(item Item, _ int) {
		if item.Kind != KindDirectory && item.Path == path {
			items = append(items, item)
		}
	})
	return items
}

// SetResult attaches an outcome to an item. It reports false for unknown ids.
func (r *Registry) SetResult(id string, outcome domain.Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	r.results[id] = outcome
	return true
}

// Result returns the outcome last attached to id.
func (r *Registry) Result(id string) (domain.Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.results[id]
	return o, ok
}

// orderedIDs lists ids in walk order. Callers hold mu.
func (r *Registry) orderedIDs() []string {
	var ids []string
	var collect func([]string)
	collect = func(children []string) {
		for _, id := range children {
			ids = append(ids, id)
			if e, ok := r.entries[id]; ok {
				collect(e.children)
			}
		}
	}
	collect(r.roots)
	return ids
}

func (r *Registry) snapshots(ids []string) []Item {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			items = append(items, e.snapshot())
		}
	}
	return items
}
