package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/specvital/phpunit-runner/internal/ui"
	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/codelens"
	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/driver"
	"github.com/specvital/phpunit-runner/pkg/registry"
	"github.com/specvital/phpunit-runner/pkg/runner"
	"github.com/specvital/phpunit-runner/pkg/suites"
)

// ErrTestsFailed is returned when a run finished with failures. The failure
// details have already been printed.
var ErrTestsFailed = errors.New("tests failed")

// NewRootCommand builds the command tree.
func NewRootCommand(app *App, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "phpunit-runner",
		Short:         "Discover and run PHPUnit tests",
		Long:          `phpunit-runner discovers PHPUnit tests in a workspace, resolves how PHPUnit can be invoked there (locally, through Composer, a phar, Docker or SSH) and runs single tests, classes, directories or suites.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Load()
		},
	}
	rootCmd.SetIn(app.In)
	rootCmd.SetOut(app.Out)
	rootCmd.SetErr(app.Err)

	rootCmd.PersistentFlags().StringVarP(&app.Flags.Workspace, "workspace", "w", "", "Workspace root (default is the current directory)")
	rootCmd.PersistentFlags().StringVar(&app.Flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVarP(&app.Flags.Verbose, "verbose", "v", false, "Print every state change and the PHPUnit output")

	rootCmd.AddCommand(
		newDiscoverCmd(app),
		newRunCmd(app),
		newSuitesCmd(app),
		newDriversCmd(app),
		newLensesCmd(app),
		newWatchCmd(app),
	)
	return rootCmd
}

func newDiscoverCmd(app *App) *cobra.Command {
	var lazy bool
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the tests found in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Config.TestExplorer.Enabled {
				color.New(color.FgYellow).Fprintln(app.Out, "Test discovery is disabled (testExplorer.enabled)")
				return nil
			}
			if !cmd.Flags().Changed("lazy") {
				lazy = app.Config.TestExplorer.Lazy
			}

			reg := app.registry(lazy, nil)
			if err := reg.Initialize(cmd.Context()); err != nil {
				return err
			}

			methods := ui.PrintTree(app.Out, reg)
			files := 0
			reg.Walk(func(it registry.Item, depth int) {
				if it.Kind == registry.KindFile {
					files++
				}
			})
			if files == 0 {
				color.New(color.FgYellow).Fprintln(app.Out, "No tests found")
				return nil
			}
			fmt.Fprintf(app.Out, "\n%d test(s) in %d file(s)\n", methods, files)
			return nil
		},
	}
	cmd.Flags().BoolVar(&lazy, "lazy", false, "Register files without parsing them")
	return cmd
}

type runFlags struct {
	kind   string
	line   int
	filter string
	suites []string
	groups []string
	config string
	all    bool
}

func (f runFlags) hasBuilderFlags() bool {
	return f.filter != "" || len(f.suites) > 0 || len(f.groups) > 0 || f.config != ""
}

func newRunCmd(app *App) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [path] [-- phpunit args...]",
		Short: "Run PHPUnit",
		Long: `Run PHPUnit for a test, the test nearest a line, a class file, a directory,
a suite of a phpunit.xml file, or the last run again.

Without a path or --type, every discovered test is run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			var passthrough []string
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				passthrough = args[dash:]
				args = args[:dash]
			}
			if len(args) > 1 {
				return fmt.Errorf("expected at most one path, got %d", len(args))
			}
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				path = abs
			}

			if flags.all || (path == "" && flags.kind == "" && !flags.hasBuilderFlags() && len(passthrough) == 0) {
				return runAll(cmd.Context(), app)
			}

			req, err := buildRequest(flags, path, passthrough)
			if err != nil {
				return err
			}
			return runOnce(cmd.Context(), app, req)
		},
	}
	cmd.Flags().StringVarP(&flags.kind, "type", "t", "", "Request type: test, nearest-test, class, directory, suite, rerun-last-test")
	cmd.Flags().IntVarP(&flags.line, "line", "l", 0, "Cursor line (1-based) for test and nearest-test")
	cmd.Flags().StringVarP(&flags.filter, "filter", "f", "", "PHPUnit --filter value")
	cmd.Flags().StringSliceVarP(&flags.suites, "suite", "s", nil, "Test suite(s) to run")
	cmd.Flags().StringSliceVarP(&flags.groups, "group", "g", nil, "Group(s) to run")
	cmd.Flags().StringVarP(&flags.config, "configuration", "c", "", "PHPUnit configuration file")
	cmd.Flags().BoolVarP(&flags.all, "all", "a", false, "Run every discovered test")
	return cmd
}

// buildRequest maps CLI flags onto a run request. Explicit PHPUnit options win
// over request types.
func buildRequest(flags runFlags, path string, passthrough []string) (runner.Request, error) {
	if flags.hasBuilderFlags() || len(passthrough) > 0 {
		b := argbuilder.New().
			WithConfig(flags.config).
			AddSuites(flags.suites).
			AddGroups(flags.groups).
			WithFilter(flags.filter).
			AddArgs(passthrough)
		if path != "" {
			b.AddDirectoryOrFile(path)
		}
		return runner.Request{Type: runner.RequestArgs, Builder: b}, nil
	}

	kind := flags.kind
	if kind == "" {
		switch {
		case suites.IsConfigFile(path):
			kind = string(runner.RequestSuite)
		case flags.line > 0:
			kind = string(runner.RequestTest)
		default:
			kind = string(runner.RequestClass)
		}
	}
	t, err := runner.ParseRequestType(kind)
	if err != nil {
		return runner.Request{}, err
	}
	return runner.Request{Type: t, File: path, Line: flags.line - 1}, nil
}

func runOnce(ctx context.Context, app *App, req runner.Request) error {
	o := app.orchestrator(true)

	res, err := o.Run(ctx, req)
	switch {
	case errors.Is(err, domain.ErrSelectionCancelled):
		return nil
	case errors.Is(err, runner.ErrNoPreviousRun), errors.Is(err, runner.ErrNoTestNearCursor), errors.Is(err, runner.ErrNoSuites),
		errors.Is(err, runner.ErrSelectionRequired):
		color.New(color.FgYellow).Fprintln(app.Out, capitalize(err.Error()))
		return nil
	case errors.Is(err, driver.ErrNoDriver):
		return fmt.Errorf("%w: check the php, phpunit and driverPriority settings", err)
	case err != nil:
		return err
	}

	if err := app.saveLastRun(o.Last()); err != nil {
		color.New(color.FgYellow).Fprintf(app.Err, "Could not save the run for rerun-last-test: %v\n", err)
	}

	ui.PrintOutcome(app.Out, res.Outcome)
	if res.Outcome.Status != domain.RunStatusPassed {
		return ErrTestsFailed
	}
	return nil
}

func runAll(ctx context.Context, app *App) error {
	reg := app.registry(false, nil)
	if err := reg.Initialize(ctx); err != nil {
		return err
	}

	methods := 0
	reg.Walk(func(it registry.Item, depth int) {
		if it.Kind == registry.KindMethod {
			methods++
		}
	})
	if methods == 0 {
		color.New(color.FgYellow).Fprintln(app.Out, "No tests found")
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	reporter := ui.NewReporter(app.Out, app.Flags.Verbose)
	if !app.Flags.Verbose {
		reporter.WithProgress(methods, app.Err)
	}
	if err := app.orchestrator(false).RunItems(ctx, reg, nil, reporter); err != nil {
		return err
	}
	if reporter.AnyFailed() {
		return ErrTestsFailed
	}
	return nil
}

func newSuitesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "suites <phpunit.xml>",
		Short: "List the test suites of a PHPUnit configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := suites.Parse(strings.NewReader(string(data)))
			if err != nil {
				for _, name := range suites.ScanNames(string(data)) {
					fmt.Fprintln(app.Out, name)
				}
				return nil
			}
			if len(cfg.Suites) == 0 {
				color.New(color.FgYellow).Fprintln(app.Out, "No test suites found")
				return nil
			}
			for _, s := range cfg.Suites {
				fmt.Fprintf(app.Out, "%s %s\n", color.HiBlackString("%4d", s.Line+1), s.Name)
			}
			return nil
		},
	}
}

func newDriversCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "Show the driver resolution order and which drivers are available",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := app.resolver()
			var selected string
			for _, r := range resolver.ProbeAll(cmd.Context()) {
				mark := color.RedString("✘")
				if r.Probe.OK() {
					mark = color.GreenString("✔")
					if selected == "" {
						selected = r.Driver.Name()
					}
				}
				line := fmt.Sprintf("%s %-16s", mark, r.Driver.Name())
				if reason := r.Probe.Reason(); reason != "" {
					line += color.HiBlackString(" %s", reason)
				}
				fmt.Fprintln(app.Out, line)
			}
			if selected == "" {
				color.New(color.FgYellow).Fprintln(app.Out, "\nNo driver available")
				return nil
			}
			fmt.Fprintf(app.Out, "\nUsing %s\n", color.CyanString(selected))
			return nil
		},
	}
}

func newLensesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "lenses <file>",
		Short: "Show the run lenses of a test file or phpunit.xml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			text, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			lenses, err := codelens.NewProvider(app.Config.CodeLens.Enabled).Lenses(cmd.Context(), path, text)
			if err != nil {
				return err
			}
			ui.PrintLenses(app.Out, lenses)
			return nil
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
