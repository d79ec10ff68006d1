package driver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/specvital/phpunit-runner/pkg/domain"
	"github.com/specvital/phpunit-runner/pkg/logging"
)

const (
	// DefaultDockerImage is used when no image is configured.
	DefaultDockerImage = "php"
	// DockerWorkdir is where the Docker driver mounts the workspace.
	DockerWorkdir = "/app"
	// SSHCommandPlaceholder is replaced by the PHPUnit command in the ssh template.
	SSHCommandPlaceholder = "<command>"
)

func toSlash(s string) string {
	return strings.ReplaceAll(s, `\`, "/")
}

// CommandDriver prefixes the PHPUnit invocation with a configured command,
// such as a docker-compose exec line.
type CommandDriver struct {
	settings Settings
	locals   *subChain
	phpunit  memo
}

func (d *CommandDriver) Name() string { return NameCommand }

func (d *CommandDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		if d.settings.PHPUnit != "" {
			return d.settings.PHPUnit, true
		}
		p, err := d.locals.PHPUnitPath(ctx)
		return p, err == nil
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

func (d *CommandDriver) Probe(ctx context.Context) Probe {
	if d.settings.Command == "" {
		return Unavailable("no command configured")
	}
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("phpunit not found")
	}
	return Available()
}

func (d *CommandDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	return domain.RunConfig{
		Command:        shellCommand(d.settings.Command, phpunit, strings.Join(args, " ")),
		ProblemMatcher: ProblemMatcherApp,
	}, nil
}

// DockerContainerDriver runs PHPUnit inside an already running container.
type DockerContainerDriver struct {
	settings Settings
	sys      System
	picker   domain.Picker
	locals   *subChain
	phpunit  memo

	mu        sync.Mutex
	container string
}

func (d *DockerContainerDriver) Name() string { return NameDockerContainer }

func (d *DockerContainerDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		p, err := d.locals.PHPUnitPath(ctx)
		return p, err == nil
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

// selectContainer returns the configured container or asks the picker to
// choose among running ones when path mappings are configured.
func (d *DockerContainerDriver) selectContainer(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.container != "" {
		return d.container, nil
	}
	if d.settings.DockerContainer != "" {
		d.container = d.settings.DockerContainer
		return d.container, nil
	}
	if len(d.settings.PathMappings) == 0 {
		return "", errors.New("no container configured")
	}

	out, err := d.sys.Output(ctx, "docker", "container", "ls")
	if err != nil {
		return "", fmt.Errorf("list containers: %w", err)
	}
	containers := ParseContainerList(out)
	if len(containers) == 0 {
		return "", errors.New("no running containers")
	}
	if d.picker == nil {
		return "", errors.New("no container configured")
	}

	names := make([]string, len(containers))
	for i, c := range containers {
		names[i] = c.Name()
	}
	chosen, err := d.picker.Pick(ctx, "Pick a running docker container to run phpunit test in...", names)
	if err != nil {
		return "", err
	}
	if chosen == "" {
		return "", domain.ErrSelectionCancelled
	}
	d.container = chosen
	return chosen, nil
}

func (d *DockerContainerDriver) Probe(ctx context.Context) Probe {
	container, err := d.selectContainer(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSelectionCancelled) {
			logging.Info(subsystem, "No docker container selected. Skipping %s driver.", d.Name())
		}
		return Unavailable("%v", err)
	}
	if container == "" || len(d.settings.PathMappings) == 0 {
		return Unavailable("path mappings are required")
	}
	if _, err := d.sys.LookPath("docker"); err != nil {
		return Unavailable("docker not on PATH")
	}
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("phpunit not found")
	}
	return Available()
}

func (d *DockerContainerDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	container, err := d.selectContainer(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	parts := append([]string{"exec", "-t", container, "php", phpunit}, args...)
	return domain.RunConfig{
		Command:        "docker " + toSlash(shellCommand(parts...)),
		ProblemMatcher: ProblemMatcherApp,
	}, nil
}

// DockerDriver runs PHPUnit in a throwaway container with the workspace
// mounted at /app.
type DockerDriver struct {
	settings Settings
	sys      System
	locals   *subChain
	phpunit  memo
}

func (d *DockerDriver) Name() string { return NameDocker }

func (d *DockerDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		p, err := d.locals.PHPUnitPath(ctx)
		return p, err == nil
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

func (d *DockerDriver) Probe(ctx context.Context) Probe {
	if _, err := d.sys.LookPath("docker"); err != nil {
		return Unavailable("docker not on PATH")
	}
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("phpunit not found")
	}
	return Available()
}

func (d *DockerDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	image := d.settings.DockerImage
	if image == "" {
		image = DefaultDockerImage
	}

	parts := append([]string{
		"run", "--rm", "-t",
		"-v", "${pwd}:" + DockerWorkdir,
		"-w", DockerWorkdir,
		image, "php", phpunit,
	}, args...)
	line := shellCommand(parts...)
	if root := d.settings.WorkspaceRoot; root != "" {
		line = regexp.MustCompile("(?i)"+regexp.QuoteMeta(root)).ReplaceAllLiteralString(line, DockerWorkdir)
	}

	return domain.RunConfig{
		Command:        "docker " + toSlash(line),
		ProblemMatcher: ProblemMatcherApp,
	}, nil
}

// SshDriver runs PHPUnit on a remote host through a configured ssh template
// containing the <command> placeholder.
type SshDriver struct {
	settings Settings
	locals   *subChain
	phpunit  memo
}

func (d *SshDriver) Name() string { return NameSsh }

func (d *SshDriver) phpPath() string {
	if d.settings.PHP != "" {
		return d.settings.PHP
	}
	return "php"
}

func (d *SshDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		if d.settings.PHPUnit != "" {
			return d.settings.PHPUnit, true
		}
		p, err := d.locals.PHPUnitPath(ctx)
		return p, err == nil
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

func (d *SshDriver) Probe(ctx context.Context) Probe {
	if d.settings.SSH == "" {
		return Unavailable("no ssh template configured")
	}
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("phpunit not found")
	}
	return Available()
}

func (d *SshDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	remote := shellCommand(d.phpPath(), phpunit, strings.Join(args, " "))
	return domain.RunConfig{
		Command: strings.Replace(d.settings.SSH, SSHCommandPlaceholder, remote, 1),
		Exec:    d.settings.SSH,
		Args:    append([]string(nil), args...),
	}, nil
}

// LegacyDriver runs a configured executable directly with the arguments.
type LegacyDriver struct {
	settings Settings
}

func (d *LegacyDriver) Name() string { return NameLegacy }

func (d *LegacyDriver) PHPUnitPath(ctx context.Context) (string, error) {
	return "", fmt.Errorf("%s: %w", d.Name(), ErrNotSupported)
}

func (d *LegacyDriver) Probe(ctx context.Context) Probe {
	if d.settings.ExecPath == "" {
		return Unavailable("no execPath configured")
	}
	return Available()
}

func (d *LegacyDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	if d.settings.ExecPath == "" {
		return domain.RunConfig{}, fmt.Errorf("%s: no execPath configured", d.Name())
	}
	return domain.RunConfig{
		Command: shellCommand(d.settings.ExecPath, strings.Join(args, " ")),
		Exec:    d.settings.ExecPath,
		Args:    append([]string(nil), args...),
	}, nil
}
