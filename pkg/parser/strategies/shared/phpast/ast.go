// Package phpast provides shared PHP AST traversal utilities for test tree parsing.
package phpast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// PHP AST node types.
const (
	NodeProgram             = "program"
	NodeNamespaceDefinition = "namespace_definition"
	NodeNamespaceName       = "namespace_name"
	NodeCompoundStatement   = "compound_statement"
	NodeClassDeclaration    = "class_declaration"
	NodeMethodDeclaration   = "method_declaration"
	NodeDeclarationList     = "declaration_list"
	NodeComment             = "comment"
	NodeName                = "name"
)

// GetClassName extracts the class name from a class_declaration node.
func GetClassName(node *sitter.Node, source []byte) string {
	return firstNameChild(node, source)
}

// GetMethodName extracts the method name from a method_declaration node.
func GetMethodName(node *sitter.Node, source []byte) string {
	return firstNameChild(node, source)
}

func firstNameChild(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == NodeName {
			return child.Content(source)
		}
	}
	return ""
}

// GetNamespaceName extracts the namespace path (e.g. `App\Tests`) from a
// namespace_definition node. Global namespace blocks (`namespace { }`) yield "".
func GetNamespaceName(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == NodeNamespaceName {
			return strings.TrimPrefix(child.Content(source), `\`)
		}
	}
	return ""
}

// GetNamespaceBody returns the braced body of a namespace_definition, or nil
// for the `namespace Foo;` form whose declarations follow as siblings.
func GetNamespaceBody(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == NodeCompoundStatement {
			return child
		}
	}
	return nil
}

// GetDeclarationList returns the declaration_list (class body) from a class_declaration.
func GetDeclarationList(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == NodeDeclarationList {
			return child
		}
	}
	return nil
}

// testAnnotationMarker is the docblock marker for test methods.
const testAnnotationMarker = "@test"

// IsBlockComment reports whether a comment is a /* */ or /** */ block.
func IsBlockComment(comment string) bool {
	return strings.HasPrefix(strings.TrimSpace(comment), "/*")
}

// HasTestAnnotation checks if a block comment contains the @test marker.
// The match is literal, so longer tags such as @testdox count too.
func HasTestAnnotation(comment string) bool {
	return IsBlockComment(comment) && strings.Contains(comment, testAnnotationMarker)
}
