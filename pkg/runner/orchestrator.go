// Package runner turns editor requests into PHPUnit runs and reports outcomes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/driver"
	"github.com/specvital/phpunit-runner/pkg/logging"
	"github.com/specvital/phpunit-runner/pkg/parser/strategies/phpunit"
	"github.com/specvital/phpunit-runner/pkg/suites"
)

const subsystem = "runner"

// AllSuitesOption is the synthetic picker entry that runs every suite.
const AllSuitesOption = "All test suites"

var (
	ErrNoPreviousRun    = errors.New("no previous run to repeat")
	ErrNoTestNearCursor = errors.New("no test found near the cursor")
	ErrNoSuites         = errors.New("no test suites found")
	ErrNoActiveFile     = errors.New("no active file")
	ErrUnknownRequest   = errors.New("unknown request type")
)

// ErrSelectionRequired means several suites exist and no picker can ask.
var ErrSelectionRequired = errors.New("several test suites found; choose one")

// ErrSelectionCancelled is returned when the user dismisses a pick list.
var ErrSelectionCancelled = domain.ErrSelectionCancelled

// RequestType names what the user asked to run.
type RequestType string

const (
	RequestTest        RequestType = "test"
	RequestNearestTest RequestType = "nearest-test"
	RequestClass       RequestType = "class"
	RequestDirectory   RequestType = "directory"
	RequestSuite       RequestType = "suite"
	RequestRerunLast   RequestType = "rerun-last-test"
	RequestArgs        RequestType = "args"
)

// ParseRequestType accepts the request names used by the CLI.
func ParseRequestType(s string) (RequestType, error) {
	switch t := RequestType(strings.ToLower(strings.TrimSpace(s))); t {
	case RequestTest, RequestNearestTest, RequestClass, RequestDirectory, RequestSuite, RequestRerunLast, RequestArgs:
		return t, nil
	case "rerun-last":
		return RequestRerunLast, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRequest, s)
}

// Request describes one run. File is the active document; Line is the
// zero-based cursor line. Source is read from File when empty.
type Request struct {
	Type    RequestType
	File    string
	Line    int
	Source  string
	Builder *argbuilder.Builder
}

// Settings carries the run-related configuration.
type Settings struct {
	Args                                  []string
	Colors                                argbuilder.ColorMode
	PathMappings                          []argbuilder.PathMapping
	WorkspaceRoot                         string
	PreferRunClassTestOverQuickPickWindow bool
	ClearOutputOnRun                      bool
}

// DriverResolver picks the driver for a run.
type DriverResolver interface {
	Resolve(ctx context.Context) (driver.Driver, error)
}

// Channel is the host output pane.
type Channel interface {
	Clear()
	AppendLine(line string)
}

// Result is what a single run produced.
type Result struct {
	RunID   string
	Driver  string
	Config  domain.RunConfig
	Outcome domain.Outcome
}

// Orchestrator resolves requests into PHPUnit invocations. Runs are serialized.
type Orchestrator struct {
	resolver DriverResolver
	executor Executor
	picker   domain.Picker
	channel  Channel
	settings Settings
	parser   *phpunit.Parser

	runMu sync.Mutex

	mu   sync.Mutex
	last *argbuilder.Builder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPicker sets the pick-list collaborator.
func WithPicker(p domain.Picker) Option {
	return func(o *Orchestrator) { o.picker = p }
}

// WithChannel sets the output pane.
func WithChannel(c Channel) Option {
	return func(o *Orchestrator) { o.channel = c }
}

// WithSettings sets run configuration.
func WithSettings(s Settings) Option {
	return func(o *Orchestrator) { o.settings = s }
}

// New creates an Orchestrator.
func New(resolver DriverResolver, executor Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		executor: executor,
		parser:   phpunit.NewParser(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Last returns a copy of the last remembered context, or nil.
func (o *Orchestrator) Last() *argbuilder.Builder {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil
	}
	return o.last.Clone()
}

// Remember seeds the context that rerun-last repeats.
func (o *Orchestrator) Remember(b *argbuilder.Builder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if b == nil {
		o.last = nil
		return
	}
	o.last = b.Clone()
}

// Run resolves the request, executes it and classifies the outcome.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	b, err := o.ResolveContext(ctx, req)
	if err != nil {
		return nil, err
	}

	d, err := o.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.last = b.Clone()
	o.mu.Unlock()

	return o.execute(ctx, d, b)
}

func (o *Orchestrator) execute(ctx context.Context, d driver.Driver, contextArgs *argbuilder.Builder) (*Result, error) {
	b := o.finalize(contextArgs)

	cfg, err := d.Command(ctx, b.Args())
	if err != nil {
		return nil, fmt.Errorf("build command with %s: %w", d.Name(), err)
	}

	runID := uuid.NewString()
	if o.channel != nil {
		if o.settings.ClearOutputOnRun {
			o.channel.Clear()
		}
		o.channel.AppendLine("Running phpunit with driver: " + d.Name())
		o.channel.AppendLine(cfg.Command)
	}
	logging.Info(subsystem, "run %s with driver %s: %s", runID, d.Name(), cfg.Command)

	res, err := o.executor.Execute(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if o.channel != nil && res.Output != "" {
		o.channel.AppendLine(strings.TrimRight(res.Output, "\n"))
	}

	outcome := Classify(res.ExitCode, res.Output)
	outcome.Duration = res.Duration
	logging.Debug(subsystem, "run %s finished with status %s (exit %d)", runID, outcome.Status, res.ExitCode)

	return &Result{RunID: runID, Driver: d.Name(), Config: cfg, Outcome: outcome}, nil
}

// finalize layers configuration onto a context builder without touching it.
func (o *Orchestrator) finalize(contextArgs *argbuilder.Builder) *argbuilder.Builder {
	b := contextArgs.Clone().AddArgs(o.settings.Args)
	if o.settings.Colors != "" {
		b.WithColors(o.settings.Colors)
	}
	if len(o.settings.PathMappings) > 0 {
		b.WithPathMappings(o.settings.PathMappings, o.settings.WorkspaceRoot)
	}
	return b
}

// ResolveContext turns a request into context arguments without running them.
func (o *Orchestrator) ResolveContext(ctx context.Context, req Request) (*argbuilder.Builder, error) {
	switch req.Type {
	case RequestRerunLast:
		last := o.Last()
		if last == nil {
			return nil, ErrNoPreviousRun
		}
		return last, nil
	case RequestArgs:
		if req.Builder == nil {
			return argbuilder.New(), nil
		}
		return req.Builder.Clone(), nil
	case RequestSuite:
		return o.suiteContext(ctx, req)
	}

	if req.File == "" {
		return nil, ErrNoActiveFile
	}

	switch req.Type {
	case RequestTest:
		return o.testContext(ctx, req)
	case RequestNearestTest:
		return o.nearestContext(req)
	case RequestClass:
		return argbuilder.New().AddDirectoryOrFile(req.File), nil
	case RequestDirectory:
		return argbuilder.New().AddDirectoryOrFile(directoryOf(req.File)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, req.Type)
}

func (o *Orchestrator) testContext(ctx context.Context, req Request) (*argbuilder.Builder, error) {
	lines, err := req.lines()
	if err != nil {
		return nil, err
	}

	if req.Line >= 0 && req.Line < len(lines) {
		current := lines[req.Line]
		if strings.Contains(current, "function") {
			if name, ok := MethodOnLine(current); ok {
				return argbuilder.New().AddDirectoryOrFile(req.File).WithFilter(name), nil
			}
		}
		if strings.Contains(current, "class") {
			if _, ok := ClassOnLine(current); ok {
				return argbuilder.New().AddDirectoryOrFile(req.File), nil
			}
		}
	}

	if o.settings.PreferRunClassTestOverQuickPickWindow || o.picker == nil {
		return o.nearestContext(req)
	}

	options := o.testOptions(ctx, req, lines)
	if len(options) == 0 {
		return nil, ErrNoTestNearCursor
	}
	labels := make([]string, 0, len(options))
	for _, opt := range options {
		labels = append(labels, opt.label)
	}

	choice, err := o.picker.Pick(ctx, "Select a test to run", labels)
	if err != nil {
		return nil, err
	}
	for _, opt := range options {
		if opt.label == choice {
			b := argbuilder.New().AddDirectoryOrFile(req.File)
			if opt.method != "" {
				b.WithFilter(opt.method)
			}
			return b, nil
		}
	}
	return nil, ErrSelectionCancelled
}

type testOption struct {
	label  string
	method string
}

// testOptions lists the closest method, the class and every test method of the file.
func (o *Orchestrator) testOptions(ctx context.Context, req Request, lines []string) []testOption {
	var options []testOption
	seen := make(map[string]bool)
	add := func(opt testOption) {
		if !seen[opt.label] {
			seen[opt.label] = true
			options = append(options, opt)
		}
	}

	if name, ok := ClosestMethodAbove(lines, req.Line); ok {
		add(testOption{label: "function - " + name, method: name})
	}

	nodes, err := o.parser.Parse(ctx, []byte(strings.Join(lines, "\n")), req.File)
	if err != nil {
		logging.Debug(subsystem, "parse %s for pick list: %v", req.File, err)
	}

	var classes, methods []string
	var collect func(nodes []*domain.TestNode)
	collect = func(nodes []*domain.TestNode) {
		for _, n := range nodes {
			switch n.Kind {
			case domain.NodeKindClass:
				classes = append(classes, n.Name)
			case domain.NodeKindMethod:
				methods = append(methods, n.Name)
			}
			collect(n.Children)
		}
	}
	collect(nodes)

	if len(classes) == 0 {
		for _, line := range lines {
			if name, ok := ClassOnLine(line); ok {
				classes = append(classes, name)
				break
			}
		}
	}
	for _, c := range classes {
		add(testOption{label: "class - " + c})
	}
	for _, m := range methods {
		add(testOption{label: "function - " + m, method: m})
	}
	return options
}

func (o *Orchestrator) nearestContext(req Request) (*argbuilder.Builder, error) {
	lines, err := req.lines()
	if err != nil {
		return nil, err
	}
	sym, ok := NearestSymbol(lines, req.Line)
	if !ok {
		return nil, ErrNoTestNearCursor
	}
	b := argbuilder.New().AddDirectoryOrFile(req.File)
	if sym.Kind == SymbolMethod {
		b.WithFilter(sym.Name)
	}
	return b, nil
}

func (o *Orchestrator) suiteContext(ctx context.Context, req Request) (*argbuilder.Builder, error) {
	if req.File == "" {
		return nil, ErrNoActiveFile
	}
	text := req.Source
	if text == "" {
		data, err := os.ReadFile(req.File)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", req.File, err)
		}
		text = string(data)
	}

	var names []string
	if cfg, err := suites.Parse(strings.NewReader(text)); err == nil {
		names = cfg.Names()
	} else {
		logging.Debug(subsystem, "parse %s: %v; falling back to name scan", req.File, err)
		names = suites.ScanNames(text)
	}

	b := argbuilder.New().WithConfig(req.File)
	switch len(names) {
	case 0:
		return nil, ErrNoSuites
	case 1:
		return b.AddSuite(names[0]), nil
	}

	if o.picker == nil {
		return nil, ErrSelectionRequired
	}
	choice, err := o.picker.Pick(ctx, "Select a test suite", append([]string{AllSuitesOption}, names...))
	if err != nil {
		return nil, err
	}
	if choice == AllSuitesOption {
		return b, nil
	}
	for _, name := range names {
		if name == choice {
			return b.AddSuite(choice), nil
		}
	}
	return nil, ErrSelectionCancelled
}

func (r Request) lines() ([]string, error) {
	if r.Source != "" {
		return SplitLines(r.Source), nil
	}
	data, err := os.ReadFile(r.File)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.File, err)
	}
	return SplitLines(string(data)), nil
}

var trailingPHPFile = regexp.MustCompile(`[/\\]\w*\.php$`)

func directoryOf(file string) string {
	return trailingPHPFile.ReplaceAllString(file, "")
}
