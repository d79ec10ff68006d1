package runner

import (
	"regexp"
	"strings"
)

// SymbolKind distinguishes the declarations the line scanner recognises.
type SymbolKind string

const (
	SymbolMethod SymbolKind = "method"
	SymbolClass  SymbolKind = "class"
)

// Symbol is a declaration found by a line scan.
type Symbol struct {
	Kind SymbolKind
	Name string
	// Line is zero-based.
	Line int
}

var (
	methodDeclaration = regexp.MustCompile(`(?i)\s*public*\s+function\s+(\w*)\s*\(`)
	classDeclaration  = regexp.MustCompile(`(?i)class\s+(\w*)\s*{?`)
)

// SplitLines splits source text into lines, accepting both line endings.
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

// MethodOnLine returns the method declared on line, if any.
func MethodOnLine(line string) (string, bool) {
	if m := methodDeclaration.FindStringSubmatch(line); m != nil && m[1] != "" {
		return m[1], true
	}
	return "", false
}

// ClassOnLine returns the class declared on line, if any.
func ClassOnLine(line string) (string, bool) {
	if m := classDeclaration.FindStringSubmatch(line); m != nil && m[1] != "" {
		return m[1], true
	}
	return "", false
}

// NearestSymbol scans upward from cursor, inclusive, and returns the first
// method or class declaration. A method wins over a class on the same line.
func NearestSymbol(lines []string, cursor int) (Symbol, bool) {
	if cursor >= len(lines) {
		cursor = len(lines) - 1
	}
	for i := cursor; i >= 0; i-- {
		if name, ok := MethodOnLine(lines[i]); ok {
			return Symbol{Kind: SymbolMethod, Name: name, Line: i}, true
		}
		if name, ok := ClassOnLine(lines[i]); ok {
			return Symbol{Kind: SymbolClass, Name: name, Line: i}, true
		}
	}
	return Symbol{}, false
}

// ClosestMethodAbove scans upward from cursor, inclusive, for a method only.
func ClosestMethodAbove(lines []string, cursor int) (string, bool) {
	if cursor >= len(lines) {
		cursor = len(lines) - 1
	}
	for i := cursor; i >= 0; i-- {
		if name, ok := MethodOnLine(lines[i]); ok {
			return name, true
		}
	}
	return "", false
}
