package tspool_test

import (
	"context"
	"sync"
	"testing"

	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/parser/tspool"
)

func TestParse_RaceFree(t *testing.T) {
	t.Parallel()

	const goroutines = 50
	source := []byte("<?php\nclass AdditionTest { public function testAdd() {} }\n")

	var wg sync.WaitGroup
	wg.Add(goroutines)

	errCh := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			tree, err := tspool.Parse(context.Background(), domain.LanguagePHP, source)
			if err != nil {
				errCh <- err
				return
			}
			defer tree.Close()
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Parse failed: %v", err)
	}
}

func TestParse_ProducesProgram(t *testing.T) {
	t.Parallel()

	tree, err := tspool.Parse(context.Background(), domain.LanguagePHP, []byte("<?php\necho 1;\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	defer tree.Close()

	if got := tree.RootNode().Type(); got != "program" {
		t.Errorf("expected root node 'program', got %q", got)
	}
}

func TestParse_ContextCancellation(t *testing.T) {
	t.Parallel()

	// tree-sitter's ParseCtx may not honor cancellation for small inputs.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := tspool.Parse(ctx, domain.LanguagePHP, []byte("<?php\n"))

	if err == nil && tree != nil {
		tree.Close()
	}
}

func TestGetLanguage_PHP(t *testing.T) {
	t.Parallel()

	if tspool.GetLanguage(domain.LanguagePHP) == nil {
		t.Error("expected PHP language")
	}
}
