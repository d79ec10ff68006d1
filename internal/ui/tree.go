package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/specvital/phpunit-runner/pkg/codelens"
	"github.com/specvital/phpunit-runner/pkg/registry"
)

// Tree is the read side of the test registry.
type Tree interface {
	Walk(fn func(item registry.Item, depth int))
}

// PrintTree prints the registry hierarchy and returns the number of methods.
func PrintTree(w io.Writer, tree Tree) int {
	methods := 0
	tree.Walk(func(it registry.Item, depth int) {
		indent := strings.Repeat("  ", depth)
		switch it.Kind {
		case registry.KindDirectory:
			fmt.Fprintf(w, "%s%s/\n", indent, color.BlueString(it.Label))
		case registry.KindFile:
			suffix := ""
			if it.CanResolveChildren {
				suffix = color.HiBlackString(" (not parsed)")
			}
			fmt.Fprintf(w, "%s%s%s\n", indent, it.Label, suffix)
		case registry.KindClass:
			fmt.Fprintf(w, "%s%s\n", indent, color.CyanString(it.Label))
		case registry.KindMethod:
			methods++
			tags := ""
			if len(it.Tags) > 0 {
				tags = color.HiBlackString(" [%s]", strings.Join(it.Tags, ", "))
			}
			fmt.Fprintf(w, "%s%s%s\n", indent, it.Label, tags)
		}
	})
	return methods
}

// PrintLenses prints one line per lens.
func PrintLenses(w io.Writer, lenses []codelens.Lens) {
	for _, l := range lenses {
		fmt.Fprintf(w, "%s %s  %s\n",
			color.HiBlackString("%4d", l.Line+1),
			color.CyanString("%-9s", l.Title),
			l.Builder.String(),
		)
	}
}
