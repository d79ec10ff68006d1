package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/specvital/phpunit-runner/internal/ui"
	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/config"
	"github.com/specvital/phpunit-runner/pkg/driver"
	"github.com/specvital/phpunit-runner/pkg/logging"
	"github.com/specvital/phpunit-runner/pkg/parser"
	"github.com/specvital/phpunit-runner/pkg/parser/strategies/phpunit"
	"github.com/specvital/phpunit-runner/pkg/registry"
	"github.com/specvital/phpunit-runner/pkg/runner"
)

const subsystem = "cli"

// stateDir holds files the CLI keeps between invocations.
const stateDir = ".phpunit-runner"

const lastRunFile = "last-run.json"

// Flags holds global command-line flags.
type Flags struct {
	Workspace string
	LogLevel  string
	Verbose   bool
}

// App wires configuration to the components each command needs.
type App struct {
	Flags     Flags
	Workspace string
	Config    config.Config

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewApp creates an App bound to the given streams.
func NewApp(in io.Reader, out, errOut io.Writer) *App {
	return &App{In: in, Out: out, Err: errOut}
}

// Load resolves the workspace, loads configuration and starts logging.
func (a *App) Load() error {
	ws := a.Flags.Workspace
	if ws == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		ws = wd
	}
	abs, err := filepath.Abs(ws)
	if err != nil {
		return err
	}
	a.Workspace = abs

	cfg, err := config.Load(abs)
	if err != nil {
		return err
	}
	a.Config = cfg

	levelName := cfg.LogLevel
	if a.Flags.LogLevel != "" {
		levelName = a.Flags.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logging.InitForCLI(level, a.Err)
	logging.Debug(subsystem, "workspace %s", abs)
	return nil
}

func (a *App) picker() *ui.PromptPicker {
	return ui.NewPromptPicker(a.In, a.Out)
}

func (a *App) resolver() *driver.Resolver {
	settings := a.Config.DriverSettings(a.Workspace)
	return driver.NewResolver(settings.Priority, driver.Catalog(settings, driver.OSSystem{}, a.picker()))
}

// orchestrator builds a run orchestrator. With echo set, the command line and
// its output are printed.
func (a *App) orchestrator(echo bool) *runner.Orchestrator {
	exec := &runner.ShellExecutor{Dir: a.Workspace}
	opts := []runner.Option{
		runner.WithPicker(a.picker()),
		runner.WithSettings(a.Config.RunSettings(a.Workspace)),
	}
	if echo {
		opts = append(opts, runner.WithChannel(ui.NewChannel(a.Out)))
	}
	o := runner.New(a.resolver(), exec, opts...)

	if last, err := a.loadLastRun(); err != nil {
		logging.Warn(subsystem, "ignoring saved run: %v", err)
	} else if last != nil {
		o.Remember(last)
	}
	return o
}

func (a *App) registry(lazy bool, observer registry.Observer) *registry.Registry {
	p := phpunit.NewParser()
	scanner := parser.NewScanner(
		parser.WithParser(p),
		parser.WithPatterns(a.Config.TestExplorer.Include),
		parser.WithExcludePatterns(a.Config.TestExplorer.Exclude),
	)
	opts := []registry.Option{registry.WithLazy(lazy), registry.WithScanner(scanner)}
	if observer != nil {
		opts = append(opts, registry.WithObserver(observer))
	}
	return registry.New(a.Workspace, p, opts...)
}

func (a *App) lastRunPath() string {
	return filepath.Join(a.Workspace, stateDir, lastRunFile)
}

func (a *App) loadLastRun() (*argbuilder.Builder, error) {
	data, err := os.ReadFile(a.lastRunPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var b argbuilder.Builder
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse %s: %w", a.lastRunPath(), err)
	}
	return &b, nil
}

func (a *App) saveLastRun(b *argbuilder.Builder) error {
	if b == nil {
		return nil
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal last run: %w", err)
	}
	path := a.lastRunPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
