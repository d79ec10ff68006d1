package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/registry"
)

// Channel writes run output to a terminal.
type Channel struct {
	mu  sync.Mutex
	out io.Writer
}

// NewChannel creates a Channel writing to out.
func NewChannel(out io.Writer) *Channel {
	return &Channel{out: out}
}

// Clear prints a separator; terminal scrollback is left alone.
func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, color.HiBlackString(strings.Repeat("─", 60)))
}

func (c *Channel) AppendLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Reporter prints per-item progress of a queue run.
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	bar     *ProgressBar

	passed  int
	failed  int
	skipped int

	failures []failure
}

type failure struct {
	item    registry.Item
	outcome domain.Outcome
}

// NewReporter creates a Reporter. Verbose reporters print every state change.
func NewReporter(out io.Writer, verbose bool) *Reporter {
	return &Reporter{out: out, verbose: verbose}
}

// WithProgress attaches a progress bar sized for total methods.
func (r *Reporter) WithProgress(total int, w io.Writer) *Reporter {
	r.bar = NewProgressBar(total, w)
	return r
}

func (r *Reporter) Enqueued(item registry.Item) {}

func (r *Reporter) Started(item registry.Item) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s\n", color.CyanString("▶"), item.ID)
}

func (r *Reporter) Passed(item registry.Item, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.Kind != registry.KindMethod {
		return
	}
	r.passed++
	if r.verbose {
		fmt.Fprintf(r.out, "%s %s %s\n", color.GreenString("✔"), item.ID, color.HiBlackString("(%s)", duration.Round(time.Millisecond)))
	}
	r.progress()
}

func (r *Reporter) Failed(item registry.Item, outcome domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.Kind != registry.KindMethod {
		return
	}
	r.failed++
	r.failures = append(r.failures, failure{item: item, outcome: outcome})
	if r.verbose {
		fmt.Fprintf(r.out, "%s %s\n", color.RedString("✘"), item.ID)
	}
	r.progress()
}

func (r *Reporter) Skipped(item registry.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.Kind != registry.KindMethod {
		return
	}
	r.skipped++
	if r.verbose {
		fmt.Fprintf(r.out, "%s %s\n", color.YellowString("○"), item.ID)
	}
	r.progress()
}

func (r *Reporter) AppendOutput(text string) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, strings.TrimRight(text, "\n"))
}

func (r *Reporter) End() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		r.bar.Finish()
	}

	for _, f := range r.failures {
		fmt.Fprintf(r.out, "\n%s %s\n", color.RedString("FAIL"), f.item.ID)
		PrintOutcome(r.out, f.outcome)
	}

	fmt.Fprintf(r.out, "\n%s  %s  %s\n",
		color.GreenString("%d passed", r.passed),
		color.RedString("%d failed", r.failed),
		color.YellowString("%d skipped", r.skipped),
	)
}

// AnyFailed reports whether any method failed.
func (r *Reporter) AnyFailed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed > 0
}

func (r *Reporter) progress() {
	if r.bar != nil {
		r.bar.Update(r.passed, r.failed, r.skipped)
	}
}

// PrintOutcome prints a classified failure.
func PrintOutcome(w io.Writer, o domain.Outcome) {
	if o.Status == domain.RunStatusPassed {
		fmt.Fprintln(w, color.GreenString("PASSED"))
		return
	}
	fmt.Fprintln(w, color.RedString("  %s", o.Message))
	if o.HasDiff() {
		fmt.Fprintf(w, "  %s %s\n", color.GreenString("expected:"), o.Expected)
		fmt.Fprintf(w, "  %s %s\n", color.RedString("actual:  "), o.Actual)
	}
}
