package driver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSearchExclude keeps workspace searches out of JavaScript dependencies.
const DefaultSearchExclude = "**/node_modules/**"

// System is the environment the drivers probe.
type System interface {
	FileExists(path string) bool
	// LookPath resolves an executable on PATH.
	LookPath(name string) (string, error)
	// FindFile returns the first file under root matching pattern and not exclude.
	FindFile(ctx context.Context, root, pattern, exclude string) (string, error)
	// Output runs a command and returns its trimmed standard output.
	Output(ctx context.Context, name string, args ...string) (string, error)
	// Platform returns the GOOS-style platform name.
	Platform() string
}

// OSSystem implements System against the real machine.
type OSSystem struct{}

var errFound = errors.New("found")

func (OSSystem) FileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (OSSystem) LookPath(name string) (string, error) {
	if name == "" {
		return "", exec.ErrNotFound
	}
	return exec.LookPath(name)
}

func (OSSystem) FindFile(ctx context.Context, root, pattern, exclude string) (string, error) {
	if root == "" {
		return "", fs.ErrNotExist
	}

	var match string
	err := doublestar.GlobWalk(os.DirFS(root), pattern, func(path string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if exclude != "" {
			if skip, _ := doublestar.Match(exclude, path); skip {
				return nil
			}
		}
		match = filepath.Join(root, filepath.FromSlash(path))
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", err
	}
	if match == "" {
		return "", fs.ErrNotExist
	}
	return match, nil
}

func (OSSystem) Output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

func (OSSystem) Platform() string {
	return runtime.GOOS
}
