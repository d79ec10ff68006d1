// Package registry keeps a persistent tree of discovered PHPUnit tests in sync
// with the file system.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/logging"
	"github.com/specvital/phpunit-runner/pkg/parser"
	"github.com/specvital/phpunit-runner/pkg/parser/strategies/phpunit"
)

const subsystem = "registry"

// Observer is told about registry changes. Calls happen outside the registry lock.
type Observer interface {
	// ItemsChanged receives ids that were created or updated.
	ItemsChanged(ids []string)
	// ItemsInvalidated receives ids that were removed; their results are gone.
	ItemsInvalidated(ids []string)
}

// Synchronizer is the set of events a host forwards to the registry.
type Synchronizer interface {
	Initialize(ctx context.Context) error
	OnFileChanged(ctx context.Context, path string) error
	OnFileDeleted(path string) []string
	ResolveChildren(ctx context.Context, id string) error
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithLazy defers parsing of files until ResolveChildren is called for them.
func WithLazy(lazy bool) Option {
	return func(r *Registry) { r.lazy = lazy }
}

// WithScanner replaces the default scanner. It must be built with a parser.
func WithScanner(s *parser.Scanner) Option {
	return func(r *Registry) { r.scanner = s }
}

// Registry is a flat arena of test items keyed by identity. Every item stores
// its parent id; the tree is rebuilt from those links by readers.
type Registry struct {
	root     string
	parser   parser.FileParser
	scanner  *parser.Scanner
	observer Observer
	lazy     bool

	mu       sync.RWMutex
	entries  map[string]*entry
	roots    []string
	results  map[string]domain.Outcome
	ancestor string

	locks pathLocks
}

var _ Synchronizer = (*Registry)(nil)

// New creates an empty registry for the workspace at root.
func New(root string, p parser.FileParser, opts ...Option) *Registry {
	r := &Registry{
		root:    root,
		parser:  p,
		entries: make(map[string]*entry),
		results: make(map[string]domain.Outcome),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.scanner == nil {
		r.scanner = parser.NewScanner(parser.WithParser(p))
	}
	return r
}

// Root returns the workspace root.
func (r *Registry) Root() string { return r.root }

// CommonAncestor returns the directory established by the last bulk scan.
func (r *Registry) CommonAncestor() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ancestor
}

// Initialize runs a bulk scan and rebuilds the tree. Results of items that
// survive the rebuild are kept.
func (r *Registry) Initialize(ctx context.Context) error {
	var (
		files  []string
		parsed map[string][]*domain.TestNode
	)

	if r.lazy {
		found, scanErrs, err := r.scanner.Discover(ctx, r.root)
		if err != nil {
			return fmt.Errorf("discover tests: %w", err)
		}
		logScanErrors(scanErrs)
		files = found
	} else {
		result, err := r.scanner.Scan(ctx, r.root)
		if err != nil {
			return fmt.Errorf("scan tests: %w", err)
		}
		logScanErrors(result.Errors)

		parsed = make(map[string][]*domain.TestNode, len(result.Inventory.Files))
		for _, f := range result.Inventory.Files {
			files = append(files, f.Path)
			parsed[f.Path] = f.Nodes
		}
		// Files that failed to parse keep their scaffold.
		for _, e := range result.Errors {
			if e.Phase == "parsing" && e.Path != "" {
				files = append(files, e.Path)
			}
		}
		sort.Strings(files)
	}

	r.mu.Lock()
	old := make(map[string]bool, len(r.entries))
	for id := range r.entries {
		old[id] = true
	}

	r.entries = make(map[string]*entry)
	r.roots = nil
	r.ancestor = CommonAncestor(files)

	for _, f := range files {
		fe := r.ensureFile(f)
		if nodes, ok := parsed[f]; ok {
			r.applyNodes(fe, nodes)
			fe.item.CanResolveChildren = false
		}
	}

	var removed []string
	for id := range old {
		if _, ok := r.entries[id]; !ok {
			removed = append(removed, id)
			delete(r.results, id)
		}
	}
	changed := r.orderedIDs()
	r.mu.Unlock()

	sort.Strings(removed)
	r.notifyInvalidated(removed)
	r.notifyChanged(changed)

	logging.Info(subsystem, "registered %d test files under %s", len(files), r.ancestor)
	return nil
}

// Matches reports whether path is a test file discovery would pick up.
func (r *Registry) Matches(path string) bool {
	return r.scanner.Matches(r.root, path)
}

// OnFileChanged reconciles one created or modified file. Paths that are not
// test files are ignored. Existing items are updated in place.
func (r *Registry) OnFileChanged(ctx context.Context, path string) error {
	if !r.Matches(path) {
		return nil
	}

	unlock := r.locks.lock(path)
	defer unlock()

	if r.lazy && !r.isResolved(path) {
		r.mu.Lock()
		fe := r.ensureFile(path)
		id := fe.item.ID
		r.mu.Unlock()

		r.notifyChanged([]string{id})
		return nil
	}

	return r.reconcileFile(ctx, path)
}

// OnFileDeleted removes the item for path and everything below it, and
// returns the removed ids. Directory scaffolds left empty are removed too.
func (r *Registry) OnFileDeleted(path string) []string {
	unlock := r.locks.lock(path)
	defer unlock()

	r.mu.Lock()
	e, ok := r.entries[path]
	if !ok {
		r.mu.Unlock()
		return nil
	}

	parentID := e.item.Parent
	removed := r.removeSubtree(path)
	r.detach(path, parentID)
	removed = append(removed, r.pruneEmptyDirs(parentID)...)
	r.mu.Unlock()

	r.notifyInvalidated(removed)
	logging.Debug(subsystem, "removed %d items for %s", len(removed), path)
	return removed
}

// ResolveChildren parses a file item that was registered lazily.
// Other items are already complete.
func (r *Registry) ResolveChildren(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	var kind ItemKind
	var pending bool
	if ok {
		kind = e.item.Kind
		pending = e.item.CanResolveChildren
	}
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("resolve %s: %w", id, ErrUnknownItem)
	}
	if kind != KindFile || !pending {
		return nil
	}

	unlock := r.locks.lock(id)
	defer unlock()
	return r.reconcileFile(ctx, id)
}

func (r *Registry) isResolved(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[path]
	return ok && !e.item.CanResolveChildren
}

// reconcileFile reads and parses path, then merges the result. A read or
// parse failure leaves the registry untouched. Callers hold the path lock.
func (r *Registry) reconcileFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	file, err := r.parser.ParseFile(ctx, content, path)
	if err != nil {
		logging.Warn(subsystem, "failed to parse %s: %v", path, err)
		return fmt.Errorf("parse %s: %w", path, err)
	}

	r.mu.Lock()
	fe := r.ensureFile(path)
	changed, removed := r.applyNodes(fe, file.Nodes)
	fe.item.CanResolveChildren = false
	changed = append([]string{fe.item.ID}, changed...)
	r.mu.Unlock()

	r.notifyInvalidated(removed)
	r.notifyChanged(changed)
	return nil
}

// ensureFile walks or creates the directory scaffold down to path and
// returns the file entry. Existing entries are never replaced. Callers hold mu.
func (r *Registry) ensureFile(path string) *entry {
	if e, ok := r.entries[path]; ok {
		return e
	}

	parentID := ""
	if segs, ok := relativeSegments(r.ancestor, path); ok {
		dir := r.getOrCreate(Item{
			ID:    r.ancestor,
			Kind:  KindDirectory,
			Label: filepath.Base(r.ancestor),
			Path:  r.ancestor,
		})
		for _, seg := range segs {
			dirPath := filepath.Join(dir.item.Path, seg)
			dir = r.getOrCreate(Item{
				ID:     dirPath,
				Kind:   KindDirectory,
				Label:  seg,
				Path:   dirPath,
				Parent: dir.item.ID,
			})
		}
		parentID = dir.item.ID
	}

	return r.getOrCreate(Item{
		ID:                 path,
		Kind:               KindFile,
		Label:              filepath.Base(path),
		Path:               path,
		Parent:             parentID,
		CanResolveChildren: true,
	})
}

// getOrCreate returns the entry for it.ID, creating and linking it if absent.
// Callers hold mu.
func (r *Registry) getOrCreate(it Item) *entry {
	if e, ok := r.entries[it.ID]; ok {
		return e
	}

	e := &entry{item: it}
	r.entries[it.ID] = e
	if it.Parent == "" {
		r.roots = append(r.roots, it.ID)
	} else if p, ok := r.entries[it.Parent]; ok {
		p.addChild(it.ID)
	}
	return e
}

// applyNodes merges a parsed forest into a file entry. Namespaces are folded
// into the identity of their classes. Classes and methods absent from nodes
// are removed. Callers hold mu.
func (r *Registry) applyNodes(fe *entry, nodes []*domain.TestNode) (changed, removed []string) {
	file := fe.item.Path
	seenClasses := make(map[string]bool)

	var visit func(nodes []*domain.TestNode, namespace string)
	visit = func(nodes []*domain.TestNode, namespace string) {
		for _, n := range nodes {
			switch n.Kind {
			case domain.NodeKindNamespace:
				visit(n.Children, n.Name)
			case domain.NodeKindClass:
				ce := r.upsert(Item{
					ID:        phpunit.Key(file, namespace, n.Name),
					Kind:      KindClass,
					Label:     n.Name,
					Parent:    fe.item.ID,
					Path:      file,
					Namespace: namespace,
					Class:     n.Name,
					Range:     rangePtr(n.Range),
					Tags:      n.Tags,
				})
				seenClasses[ce.item.ID] = true
				changed = append(changed, ce.item.ID)

				seenMethods := make(map[string]bool)
				for _, m := range n.Children {
					if m.Kind != domain.NodeKindMethod {
						continue
					}
					me := r.upsert(Item{
						ID:        phpunit.Key(file, namespace, n.Name, m.Name),
						Kind:      KindMethod,
						Label:     m.Name,
						Parent:    ce.item.ID,
						Path:      file,
						Namespace: namespace,
						Class:     n.Name,
						Range:     rangePtr(m.Range),
						Tags:      m.Tags,
					})
					seenMethods[me.item.ID] = true
					changed = append(changed, me.item.ID)
				}
				removed = append(removed, r.pruneChildren(ce, seenMethods)...)
			}
		}
	}
	visit(nodes, "")

	removed = append(removed, r.pruneChildren(fe, seenClasses)...)
	return changed, removed
}

// upsert creates the entry or refreshes the source-derived fields of an
// existing one, keeping its identity and attached result.
func (r *Registry) upsert(it Item) *entry {
	e, ok := r.entries[it.ID]
	if !ok {
		return r.getOrCreate(it)
	}
	e.item.Label = it.Label
	e.item.Range = it.Range
	e.item.Tags = append([]string(nil), it.Tags...)
	return e
}

func (r *Registry) pruneChildren(e *entry, keep map[string]bool) []string {
	var removed []string
	for _, child := range append([]string(nil), e.children...) {
		if keep[child] {
			continue
		}
		removed = append(removed, r.removeSubtree(child)...)
		e.removeChild(child)
	}
	return removed
}

// removeSubtree deletes id and its descendants from the index along with
// their results. It does not unlink id from its parent.
func (r *Registry) removeSubtree(id string) []string {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	removed := []string{id}
	for _, child := range e.children {
		removed = append(removed, r.removeSubtree(child)...)
	}
	delete(r.entries, id)
	delete(r.results, id)
	return removed
}

func (r *Registry) detach(id, parentID string) {
	if parentID == "" {
		for i, root := range r.roots {
			if root == id {
				r.roots = append(r.roots[:i], r.roots[i+1:]...)
				break
			}
		}
		return
	}
	if p, ok := r.entries[parentID]; ok {
		p.removeChild(id)
	}
}

// pruneEmptyDirs removes directory scaffolds without children, walking up from id.
func (r *Registry) pruneEmptyDirs(id string) []string {
	var removed []string
	for id != "" {
		e, ok := r.entries[id]
		if !ok || e.item.Kind != KindDirectory || len(e.children) > 0 {
			break
		}
		parentID := e.item.Parent
		delete(r.entries, id)
		delete(r.results, id)
		r.detach(id, parentID)
		removed = append(removed, id)
		id = parentID
	}
	return removed
}

func (r *Registry) notifyChanged(ids []string) {
	if r.observer != nil && len(ids) > 0 {
		r.observer.ItemsChanged(ids)
	}
}

func (r *Registry) notifyInvalidated(ids []string) {
	if r.observer != nil && len(ids) > 0 {
		r.observer.ItemsInvalidated(ids)
	}
}

func rangePtr(r domain.Range) *domain.Range {
	return &r
}

func logScanErrors(errs []parser.ScanError) {
	for _, e := range errs {
		logging.Warn(subsystem, "%v", e)
	}
}
