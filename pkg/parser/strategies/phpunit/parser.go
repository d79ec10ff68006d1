// Package phpunit maps PHPUnit test sources into namespace/class/method test trees.
package phpunit

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/parser"
	"github.com/specvital/phpunit-runner/pkg/parser/strategies/shared/phpast"
	"github.com/specvital/phpunit-runner/pkg/parser/tspool"
)

// TestMethodPrefix is the naming convention PHPUnit uses for test methods.
const TestMethodPrefix = "test"

// Parser extracts test trees from PHP PHPUnit files.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses source into a [domain.TestFile] rooted at path.
func (p *Parser) ParseFile(ctx context.Context, source []byte, path string) (*domain.TestFile, error) {
	nodes, err := p.Parse(ctx, source, path)
	if err != nil {
		return nil, err
	}

	return &domain.TestFile{
		Path:     path,
		Language: domain.LanguagePHP,
		Nodes:    nodes,
	}, nil
}

// Parse returns the top-level namespace and class nodes of source in declaration
// order. Syntax errors are tolerated: whatever tree-sitter recovers is walked.
func (p *Parser) Parse(ctx context.Context, source []byte, filename string) ([]*domain.TestNode, error) {
	tree, err := tspool.Parse(ctx, domain.LanguagePHP, source)
	if err != nil {
		return nil, fmt.Errorf("phpunit parser: failed to parse %s: %w", filename, err)
	}
	defer tree.Close()

	return parseProgram(tree.RootNode(), source), nil
}

func parseProgram(root *sitter.Node, source []byte) []*domain.TestNode {
	var (
		nodes   []*domain.TestNode
		open    *domain.TestNode
		emitted bool
	)

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)

		switch child.Type() {
		case phpast.NodeNamespaceDefinition:
			name := phpast.GetNamespaceName(child, source)
			ns := &domain.TestNode{
				Kind:  domain.NodeKindNamespace,
				Name:  name,
				Range: parser.GetRange(child),
			}

			if body := phpast.GetNamespaceBody(child); body != nil {
				open = nil
				classes := parseClasses(body, source)
				if name == "" {
					nodes = append(nodes, classes...)
					continue
				}
				if len(classes) > 0 {
					ns.Children = classes
					nodes = append(nodes, ns)
				}
				continue
			}

			// `namespace Foo;` owns the declarations that follow it.
			open = ns
			emitted = false

		case phpast.NodeClassDeclaration:
			class := parseClass(child, source)
			if class == nil {
				continue
			}
			if open == nil {
				nodes = append(nodes, class)
				continue
			}
			open.Children = append(open.Children, class)
			open.Range.EndLine = class.Range.EndLine
			if !emitted {
				nodes = append(nodes, open)
				emitted = true
			}
		}
	}

	return nodes
}

func parseClasses(body *sitter.Node, source []byte) []*domain.TestNode {
	var classes []*domain.TestNode
	for _, child := range parser.FindChildrenByType(body, phpast.NodeClassDeclaration) {
		if class := parseClass(child, source); class != nil {
			classes = append(classes, class)
		}
	}
	return classes
}

func parseClass(node *sitter.Node, source []byte) *domain.TestNode {
	className := phpast.GetClassName(node, source)
	if className == "" {
		return nil
	}

	body := phpast.GetDeclarationList(node)
	if body == nil {
		return nil
	}

	var (
		methods  []*domain.TestNode
		comments []string
	)

	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)

		switch child.Type() {
		case phpast.NodeComment:
			comments = append(comments, parser.GetNodeText(child, source))

		case phpast.NodeMethodDeclaration:
			if method := parseMethod(child, source, comments); method != nil {
				methods = append(methods, method)
			}
			comments = nil

		default:
			comments = nil
		}
	}

	if len(methods) == 0 {
		return nil
	}

	return &domain.TestNode{
		Kind:     domain.NodeKindClass,
		Name:     className,
		Range:    parser.GetRange(node),
		Children: methods,
	}
}

func parseMethod(node *sitter.Node, source []byte, leadingComments []string) *domain.TestNode {
	methodName := phpast.GetMethodName(node, source)
	if methodName == "" {
		return nil
	}

	annotated := false
	for _, c := range leadingComments {
		if phpast.HasTestAnnotation(c) {
			annotated = true
			break
		}
	}

	if !IsTestable(methodName, annotated) {
		return nil
	}

	method := &domain.TestNode{
		Kind:  domain.NodeKindMethod,
		Name:  methodName,
		Range: parser.GetRange(node),
	}
	if annotated {
		method.Tags = []string{domain.TagTestAnnotation}
	}
	return method
}

// IsTestable reports whether a method is a PHPUnit test case: its name starts
// with "test" (case-sensitive) or it carries a @test docblock annotation.
func IsTestable(methodName string, annotated bool) bool {
	return annotated || strings.HasPrefix(methodName, TestMethodPrefix)
}

// Key builds the stable identity of a test entity:
// filePath[/namespace][/class][/method]. Empty segments are omitted.
func Key(filePath string, segments ...string) string {
	var b strings.Builder
	b.WriteString(filePath)
	for _, s := range segments {
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(s)
	}
	return b.String()
}
