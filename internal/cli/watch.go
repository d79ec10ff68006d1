package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/specvital/phpunit-runner/internal/ui"
	"github.com/specvital/phpunit-runner/pkg/logging"
	"github.com/specvital/phpunit-runner/pkg/parser"
	"github.com/specvital/phpunit-runner/pkg/registry"
	"github.com/specvital/phpunit-runner/pkg/runner"
)

func newWatchCmd(app *App) *cobra.Command {
	var files []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run tests whenever a test file is saved",
		Long: `Watch the workspace and keep the test tree in sync. Every save runs
all tests, or with --file only the tests of the given files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Config.TestExplorer.Enabled {
				color.New(color.FgYellow).Fprintln(app.Out, "Test discovery is disabled (testExplorer.enabled)")
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watch(ctx, app, files)
		},
	}
	cmd.Flags().StringSliceVar(&files, "file", nil, "Only re-run the tests of these files")
	return cmd
}

func watch(ctx context.Context, app *App, files []string) error {
	reg := app.registry(false, nil)
	if err := reg.Initialize(ctx); err != nil {
		return err
	}
	o := app.orchestrator(false)

	runs := make(chan []string, 16)
	w := runner.NewWatcher(func(ids []string) {
		select {
		case runs <- ids:
		default:
			logging.Warn(subsystem, "run queue full, dropping change")
		}
	})

	if len(files) == 0 {
		defer w.WatchAll()()
	} else {
		var ids []string
		for _, f := range files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return err
			}
			for _, it := range reg.ItemsForFile(abs) {
				ids = append(ids, it.ID)
			}
		}
		if len(ids) == 0 {
			color.New(color.FgYellow).Fprintln(app.Out, "No tests found in the given files")
			return nil
		}
		defer w.Watch(ids)()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := addTree(fsw, app.Workspace); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ids := <-runs:
				reporter := ui.NewReporter(app.Out, app.Flags.Verbose)
				if err := o.RunItems(ctx, reg, ids, reporter); err != nil {
					logging.Error(subsystem, err, "watch run failed")
				}
			}
		}
	}()

	color.New(color.FgCyan).Fprintf(app.Out, "Watching %s (Ctrl+C to stop)\n", app.Workspace)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn(subsystem, "watch error: %v", err)
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			handleEvent(ctx, fsw, reg, w, ev)
		}
	}
}

func handleEvent(ctx context.Context, fsw *fsnotify.Watcher, reg *registry.Registry, w *runner.Watcher, ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if removed := reg.OnFileDeleted(path); len(removed) > 0 {
			logging.Info(subsystem, "removed %d item(s) for %s", len(removed), path)
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := addTree(fsw, path); err != nil {
				logging.Warn(subsystem, "watch %s: %v", path, err)
			}
			return
		}
		if !reg.Matches(path) {
			return
		}
		if err := reg.OnFileChanged(ctx, path); err != nil {
			logging.Warn(subsystem, "reconcile %s: %v", path, err)
			return
		}
		w.Notify(path, reg)
	}
}

// addTree watches root and every directory below it that discovery would enter.
func addTree(fsw *fsnotify.Watcher, root string) error {
	skip := make(map[string]bool, len(parser.DefaultSkipPatterns))
	for _, name := range parser.DefaultSkipPatterns {
		skip[name] = true
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return fs.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (skip[d.Name()] || d.Name() == stateDir) {
			return fs.SkipDir
		}
		return fsw.Add(path)
	})
}
