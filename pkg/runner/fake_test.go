package runner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/driver"
	"github.com/specvital/phpunit-runner/pkg/registry"
)

type stubDriver struct {
	name string
}

func (d *stubDriver) Name() string { return d.name }

func (d *stubDriver) Probe(ctx context.Context) driver.Probe { return driver.Available() }

func (d *stubDriver) PHPUnitPath(ctx context.Context) (string, error) {
	return "vendor/bin/phpunit", nil
}

func (d *stubDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	return domain.RunConfig{Command: strings.TrimSpace("phpunit " + strings.Join(args, " "))}, nil
}

// sleepDriver runs a shell command that takes delay seconds and passes.
type sleepDriver struct {
	delay string
}

func (d *sleepDriver) Name() string { return "sleep" }

func (d *sleepDriver) Probe(ctx context.Context) driver.Probe { return driver.Available() }

func (d *sleepDriver) PHPUnitPath(ctx context.Context) (string, error) { return "sleep", nil }

func (d *sleepDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	return domain.RunConfig{Command: "sleep " + d.delay + "; echo OK"}, nil
}

type fakeResolver struct {
	driver driver.Driver
	err    error
}

func (r *fakeResolver) Resolve(ctx context.Context) (driver.Driver, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.driver, nil
}

type fakeExecutor struct {
	mu       sync.Mutex
	commands []string
	respond  func(cfg domain.RunConfig) ExecResult
	onRun    func()
}

func (e *fakeExecutor) Execute(ctx context.Context, cfg domain.RunConfig) (ExecResult, error) {
	e.mu.Lock()
	e.commands = append(e.commands, cfg.Command)
	e.mu.Unlock()
	if e.onRun != nil {
		e.onRun()
	}
	if err := ctx.Err(); err != nil {
		return ExecResult{ExitCode: -1}, err
	}
	if e.respond != nil {
		return e.respond(cfg), nil
	}
	return ExecResult{Output: "OK (1 test, 1 assertion)", Duration: time.Millisecond}, nil
}

func (e *fakeExecutor) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

type fakePicker struct {
	choice  string
	err     error
	prompt  string
	options []string
}

func (p *fakePicker) Pick(ctx context.Context, prompt string, options []string) (string, error) {
	p.prompt = prompt
	p.options = append([]string(nil), options...)
	if p.err != nil {
		return "", p.err
	}
	return p.choice, nil
}

type recordingChannel struct {
	cleared int
	lines   []string
}

func (c *recordingChannel) Clear() {
	c.cleared++
	c.lines = nil
}

func (c *recordingChannel) AppendLine(line string) { c.lines = append(c.lines, line) }

type event struct {
	status domain.RunStatus
	id     string
}

type recordingRun struct {
	mu     sync.Mutex
	events []event
	output []string
	ended  bool
}

func (r *recordingRun) add(status domain.RunStatus, it registry.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{status: status, id: it.ID})
}

func (r *recordingRun) Enqueued(it registry.Item) { r.add(domain.RunStatusEnqueued, it) }
func (r *recordingRun) Started(it registry.Item)  { r.add(domain.RunStatusStarted, it) }
func (r *recordingRun) Passed(it registry.Item, d time.Duration) {
	r.add(domain.RunStatusPassed, it)
}
func (r *recordingRun) Failed(it registry.Item, o domain.Outcome) { r.add(domain.RunStatusFailed, it) }
func (r *recordingRun) Skipped(it registry.Item)                  { r.add(domain.RunStatusSkipped, it) }

func (r *recordingRun) AppendOutput(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output = append(r.output, text)
}

func (r *recordingRun) End() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
}

func (r *recordingRun) statusOf(id string) []domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RunStatus
	for _, e := range r.events {
		if e.id == id {
			out = append(out, e.status)
		}
	}
	return out
}
