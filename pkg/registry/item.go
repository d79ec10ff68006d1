package registry

import (
	"github.com/specvital/phpunit-runner/pkg/domain"
)

// ItemKind classifies a registry item.
type ItemKind string

const (
	KindDirectory ItemKind = "directory"
	KindFile      ItemKind = "file"
	KindClass     ItemKind = "class"
	KindMethod    ItemKind = "method"
)

// Item is a snapshot of one registry entry. Items are values; mutating one
// does not affect the registry.
type Item struct {
	ID     string
	Kind   ItemKind
	Label  string
	Parent string
	// Path is the directory for directory items and the source file otherwise.
	Path      string
	Namespace string
	// Class is the owning class name for class and method items.
	Class string
	// Range is nil for directory and file items.
	Range *domain.Range
	Tags  []string
	// CanResolveChildren is set on file items whose tests have not been parsed yet.
	CanResolveChildren bool
	Children           []string
}

// IsContainer reports whether running the item means running its children.
func (i Item) IsContainer() bool {
	return i.Kind != KindMethod
}

type entry struct {
	item     Item
	children []string
}

func (e *entry) snapshot() Item {
	it := e.item
	it.Children = append([]string(nil), e.children...)
	if e.item.Range != nil {
		r := *e.item.Range
		it.Range = &r
	}
	it.Tags = append([]string(nil), e.item.Tags...)
	return it
}

func (e *entry) addChild(id string) {
	for _, c := range e.children {
		if c == id {
			return
		}
	}
	e.children = append(e.children, id)
}

func (e *entry) removeChild(id string) {
	for i, c := range e.children {
		if c == id {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}
