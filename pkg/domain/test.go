package domain

// NodeKind classifies a node of the parsed test hierarchy.
type NodeKind string

const (
	NodeKindNamespace NodeKind = "namespace"
	NodeKindClass     NodeKind = "class"
	NodeKindMethod    NodeKind = "method"
)

// TagTestAnnotation marks a method detected through a @test docblock annotation.
const TagTestAnnotation = "@test"

// Range is a zero-based, inclusive line span in a source file.
type Range struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Contains reports whether line falls inside the range.
func (r Range) Contains(line int) bool {
	return line >= r.StartLine && line <= r.EndLine
}

// TestNode is a namespace, class or method discovered in a PHP source file.
// Children are in source order. Nodes hold no parent reference; ancestry is
// passed explicitly by whoever walks the tree.
type TestNode struct {
	Kind     NodeKind    `json:"kind"`
	Name     string      `json:"name"`
	Range    Range       `json:"range"`
	Tags     []string    `json:"tags,omitempty"`
	Children []*TestNode `json:"children,omitempty"`
}

// HasTag reports whether the node carries the given tag.
func (n *TestNode) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CountTests returns the number of method nodes at or below n.
func (n *TestNode) CountTests() int {
	if n.Kind == NodeKindMethod {
		return 1
	}
	count := 0
	for _, c := range n.Children {
		count += c.CountTests()
	}
	return count
}
