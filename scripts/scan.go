//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/parser"
	"github.com/specvital/phpunit-runner/pkg/parser/strategies/phpunit"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/scan.go <path>\n")
		os.Exit(1)
	}

	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := parser.Scan(ctx, path, parser.WithParser(phpunit.NewParser()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan error: %v\n", err)
		os.Exit(1)
	}

	output := map[string]interface{}{
		"filesScanned": result.Stats.FilesScanned,
		"filesMatched": result.Stats.FilesMatched,
		"filesFailed":  result.Stats.FilesFailed,
		"testCount":    result.Inventory.CountTests(),
		"classCount":   countClasses(result.Inventory),
		"annotated":    countAnnotated(result.Inventory),
		"duration":     result.Stats.Duration.String(),
	}
	json.NewEncoder(os.Stdout).Encode(output)
}

func countClasses(inv *domain.Inventory) int {
	count := 0
	walk(inv, func(n *domain.TestNode) {
		if n.Kind == domain.NodeKindClass {
			count++
		}
	})
	return count
}

func countAnnotated(inv *domain.Inventory) int {
	count := 0
	walk(inv, func(n *domain.TestNode) {
		if n.HasTag(domain.TagTestAnnotation) {
			count++
		}
	})
	return count
}

func walk(inv *domain.Inventory, fn func(*domain.TestNode)) {
	var visit func(nodes []*domain.TestNode)
	visit = func(nodes []*domain.TestNode) {
		for _, n := range nodes {
			fn(n)
			visit(n.Children)
		}
	}
	for _, f := range inv.Files {
		visit(f.Nodes)
	}
}
