package driver

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"sync"

	"github.com/specvital/phpunit-runner/pkg/domain"
)

type fakeSystem struct {
	mu       sync.Mutex
	files    map[string]bool
	paths    map[string]string
	found    map[string]string
	outputs  map[string]string
	platform string
	calls    map[string]int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		files:    map[string]bool{},
		paths:    map[string]string{},
		found:    map[string]string{},
		outputs:  map[string]string{},
		platform: "linux",
		calls:    map[string]int{},
	}
}

func (f *fakeSystem) record(key string) {
	f.mu.Lock()
	f.calls[key]++
	f.mu.Unlock()
}

func (f *fakeSystem) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeSystem) FileExists(path string) bool {
	f.record("exists:" + path)
	return f.files[path]
}

func (f *fakeSystem) LookPath(name string) (string, error) {
	f.record("look:" + name)
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", exec.ErrNotFound
}

func (f *fakeSystem) FindFile(ctx context.Context, root, pattern, exclude string) (string, error) {
	f.record("find:" + pattern)
	if p, ok := f.found[pattern]; ok {
		return p, nil
	}
	return "", fs.ErrNotExist
}

func (f *fakeSystem) Output(ctx context.Context, name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.record("output:" + key)
	if out, ok := f.outputs[key]; ok {
		return out, nil
	}
	return "", errors.New("command failed")
}

func (f *fakeSystem) Platform() string { return f.platform }

type fakePicker struct {
	choice  string
	err     error
	prompts []string
	options [][]string
}

func (p *fakePicker) Pick(ctx context.Context, prompt string, options []string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	p.options = append(p.options, options)
	return p.choice, p.err
}

var _ domain.Picker = (*fakePicker)(nil)

// stubDriver has a fixed probe result and counts probes.
type stubDriver struct {
	name   string
	ok     bool
	path   string
	probes int
}

func (s *stubDriver) Name() string { return s.name }

func (s *stubDriver) Probe(ctx context.Context) Probe {
	s.probes++
	if s.ok {
		return Available()
	}
	return Unavailable("stub")
}

func (s *stubDriver) PHPUnitPath(ctx context.Context) (string, error) {
	if s.path == "" {
		return "", ErrPHPUnitNotFound
	}
	return s.path, nil
}

func (s *stubDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	return domain.RunConfig{Command: s.name + " " + strings.Join(args, " ")}, nil
}
