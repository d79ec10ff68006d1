package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/driver"
	"github.com/specvital/phpunit-runner/pkg/logging"
	"github.com/specvital/phpunit-runner/pkg/registry"
)

// Tree is the part of the test registry a queue run needs.
type Tree interface {
	Get(id string) (registry.Item, bool)
	Children(id string) []registry.Item
	Roots() []registry.Item
	ResolveChildren(ctx context.Context, id string) error
	SetResult(id string, outcome domain.Outcome) bool
}

// TestRun receives per-item state changes of a queue run.
type TestRun interface {
	Enqueued(item registry.Item)
	Started(item registry.Item)
	Passed(item registry.Item, duration time.Duration)
	Failed(item registry.Item, outcome domain.Outcome)
	Skipped(item registry.Item)
	AppendOutput(text string)
	End()
}

// RunItems runs the given registry items, or every root when ids is empty.
// All items are enqueued first, then started one at a time. Once ctx is
// cancelled the remaining items are reported skipped.
func (o *Orchestrator) RunItems(ctx context.Context, tree Tree, ids []string, run TestRun) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	defer run.End()

	items := selectItems(tree, ids)
	for _, it := range items {
		run.Enqueued(it)
	}

	d, err := o.resolver.Resolve(ctx)
	if err != nil {
		for _, it := range items {
			run.Skipped(it)
		}
		return err
	}

	runID := uuid.NewString()
	logging.Info(subsystem, "queue run %s: %d item(s) with driver %s", runID, len(items), d.Name())

	for _, it := range items {
		if ctx.Err() != nil {
			run.Skipped(it)
			continue
		}
		run.Started(it)
		o.runItem(ctx, tree, d, it, run)
	}
	return nil
}

func selectItems(tree Tree, ids []string) []registry.Item {
	if len(ids) == 0 {
		return tree.Roots()
	}
	items := make([]registry.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := tree.Get(id); ok {
			items = append(items, it)
		}
	}
	return items
}

// runItem executes a started item and reports its outcome. It returns whether
// the item passed. Containers pass iff every child passes.
func (o *Orchestrator) runItem(ctx context.Context, tree Tree, d driver.Driver, it registry.Item, run TestRun) bool {
	if !it.IsContainer() {
		return o.runMethod(ctx, tree, d, it, run)
	}

	if it.CanResolveChildren {
		if err := tree.ResolveChildren(ctx, it.ID); err != nil {
			logging.Warn(subsystem, "resolve %s: %v", it.ID, err)
		}
	}

	start := time.Now()
	passed := true
	children := tree.Children(it.ID)
	for i, child := range children {
		if ctx.Err() != nil {
			for _, rest := range children[i:] {
				run.Skipped(rest)
			}
			run.Skipped(it)
			return false
		}
		run.Started(child)
		if !o.runItem(ctx, tree, d, child, run) {
			passed = false
		}
	}

	outcome := domain.Outcome{Status: domain.RunStatusPassed, Duration: time.Since(start)}
	if !passed {
		outcome.Status = domain.RunStatusFailed
		outcome.ExitCode = 1
		outcome.Message = fmt.Sprintf("%s has failing tests", it.Label)
	}
	tree.SetResult(it.ID, outcome)
	report(run, it, outcome)
	return passed
}

func (o *Orchestrator) runMethod(ctx context.Context, tree Tree, d driver.Driver, it registry.Item, run TestRun) bool {
	b := argbuilder.New().AddDirectoryOrFile(it.Path).WithFilter(it.Label)

	// A started item runs to completion; cancellation only stops the queue.
	res, err := o.execute(context.WithoutCancel(ctx), d, b)
	if err != nil {
		outcome := domain.Outcome{Status: domain.RunStatusFailed, Message: err.Error()}
		tree.SetResult(it.ID, outcome)
		run.Failed(it, outcome)
		return false
	}

	if res.Outcome.Output != "" {
		run.AppendOutput(res.Outcome.Output)
	}
	tree.SetResult(it.ID, res.Outcome)
	report(run, it, res.Outcome)
	return res.Outcome.Status == domain.RunStatusPassed
}

func report(run TestRun, it registry.Item, outcome domain.Outcome) {
	if outcome.Status == domain.RunStatusPassed {
		run.Passed(it, outcome.Duration)
		return
	}
	run.Failed(it, outcome)
}
