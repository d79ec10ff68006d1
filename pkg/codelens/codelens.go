// Package codelens produces run lenses for PHP test files and phpunit.xml files.
package codelens

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/logging"
	"github.com/specvital/phpunit-runner/pkg/parser/strategies/phpunit"
	"github.com/specvital/phpunit-runner/pkg/suites"
)

const subsystem = "codelens"

const (
	TitleRunTest  = "Run test"
	TitleRunTests = "Run tests"
)

// Lens is a runnable annotation anchored at a zero-based line.
type Lens struct {
	Line    int
	Title   string
	Builder *argbuilder.Builder
}

type cacheEntry struct {
	text   string
	lenses []Lens
}

// Provider computes lenses and remembers the last result per document.
// A document whose text is unchanged is served from the cache.
type Provider struct {
	enabled bool
	parser  *phpunit.Parser

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewProvider creates a Provider. A disabled provider returns no lenses.
func NewProvider(enabled bool) *Provider {
	return &Provider{
		enabled: enabled,
		parser:  phpunit.NewParser(),
		cache:   make(map[string]cacheEntry),
	}
}

// Lenses returns the lenses of the document at path with the given text.
func (p *Provider) Lenses(ctx context.Context, path string, text []byte) ([]Lens, error) {
	if !p.enabled {
		return nil, nil
	}

	kind := documentKind(path)
	if kind == "" {
		return nil, nil
	}

	p.mu.Lock()
	entry, ok := p.cache[path]
	p.mu.Unlock()
	if ok && entry.text == string(text) {
		return cloneLenses(entry.lenses), nil
	}

	var lenses []Lens
	var err error
	switch kind {
	case "php":
		lenses, err = p.phpLenses(ctx, path, text)
	case "xml":
		lenses, err = xmlLenses(path, text)
	}
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[path] = cacheEntry{text: string(text), lenses: lenses}
	p.mu.Unlock()

	logging.Debug(subsystem, "%d lens(es) for %s", len(lenses), path)
	return cloneLenses(lenses), nil
}

// Forget drops the cached lenses of path.
func (p *Provider) Forget(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, path)
}

func documentKind(path string) string {
	switch {
	case suites.IsConfigFile(path):
		return "xml"
	case strings.EqualFold(filepath.Ext(path), ".php"):
		return "php"
	}
	return ""
}

func (p *Provider) phpLenses(ctx context.Context, path string, text []byte) ([]Lens, error) {
	nodes, err := p.parser.Parse(ctx, text, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var lenses []Lens
	var walk func(nodes []*domain.TestNode)
	walk = func(nodes []*domain.TestNode) {
		for _, n := range nodes {
			switch n.Kind {
			case domain.NodeKindNamespace:
				walk(n.Children)
			case domain.NodeKindClass:
				lenses = append(lenses, classLenses(path, n)...)
			}
		}
	}
	walk(nodes)
	return lenses, nil
}

func classLenses(path string, class *domain.TestNode) []Lens {
	var lenses []Lens
	for _, m := range class.Children {
		if m.Kind != domain.NodeKindMethod {
			continue
		}
		lenses = append(lenses, Lens{
			Line:    m.Range.StartLine,
			Title:   TitleRunTest,
			Builder: argbuilder.New().AddDirectoryOrFile(path).WithFilter(m.Name),
		})
	}
	if len(lenses) > 0 {
		lenses = append(lenses, Lens{
			Line:    class.Range.StartLine,
			Title:   TitleRunTests,
			Builder: argbuilder.New().AddDirectoryOrFile(path),
		})
	}
	return lenses
}

func xmlLenses(path string, text []byte) ([]Lens, error) {
	cfg, err := suites.Parse(bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var lenses []Lens
	for _, s := range cfg.Suites {
		lenses = append(lenses, Lens{
			Line:    s.Line,
			Title:   TitleRunTest,
			Builder: argbuilder.New().WithConfig(path).AddSuite(s.Name),
		})
	}
	if len(lenses) > 0 && cfg.TestSuitesLine >= 0 {
		lenses = append(lenses, Lens{
			Line:    cfg.TestSuitesLine,
			Title:   TitleRunTests,
			Builder: argbuilder.New().WithConfig(path),
		})
	}
	return lenses, nil
}

func cloneLenses(in []Lens) []Lens {
	if in == nil {
		return nil
	}
	out := make([]Lens, len(in))
	for i, l := range in {
		out[i] = Lens{Line: l.Line, Title: l.Title, Builder: l.Builder.Clone()}
	}
	return out
}
