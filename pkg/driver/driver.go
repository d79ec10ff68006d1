// Package driver locates a working PHPUnit executable across local, containerized
// and remote environments and turns an argument vector into a RunConfig.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/domain"
)

// Driver names, in catalog order.
const (
	NamePath            = "Path"
	NameComposer        = "Composer"
	NamePhar            = "Phar"
	NameGlobalPhpUnit   = "GlobalPhpUnit"
	NameCommand         = "Command"
	NameDockerContainer = "DockerContainer"
	NameDocker          = "Docker"
	NameSsh             = "Ssh"
	NameLegacy          = "Legacy"
)

// ProblemMatcherApp is reported by drivers whose output paths are remote.
const ProblemMatcherApp = "$phpunit-app"

var (
	// ErrNoDriver is returned when every driver in the chain is unavailable.
	ErrNoDriver = errors.New("no usable phpunit driver")
	// ErrPHPUnitNotFound is returned when no PHPUnit entry point can be located.
	ErrPHPUnitNotFound = errors.New("phpunit not found")
	// ErrNotSupported is returned by drivers that cannot answer a question.
	ErrNotSupported = errors.New("not supported by driver")
)

// Driver is one strategy for running PHPUnit in a given environment.
type Driver interface {
	Name() string
	// Probe checks availability. It never fails; subsidiary errors become Unavailable.
	Probe(ctx context.Context) Probe
	// PHPUnitPath resolves the PHPUnit entry point this driver would run.
	PHPUnitPath(ctx context.Context) (string, error)
	// Command builds the invocation for args. Call only after a successful Probe.
	Command(ctx context.Context, args []string) (domain.RunConfig, error)
}

// Probe is the result of a driver availability check.
type Probe struct {
	ok     bool
	reason string
}

// Available is a successful probe.
func Available() Probe {
	return Probe{ok: true}
}

// Unavailable is a failed probe with a human readable reason.
func Unavailable(format string, args ...interface{}) Probe {
	return Probe{reason: fmt.Sprintf(format, args...)}
}

func (p Probe) OK() bool { return p.ok }

func (p Probe) Reason() string { return p.reason }

func (p Probe) String() string {
	if p.ok {
		return "available"
	}
	return "unavailable: " + p.reason
}

// Settings is the configuration the drivers read.
type Settings struct {
	PHP             string
	PHPUnit         string
	Command         string
	ExecPath        string
	DockerImage     string
	DockerContainer string
	SSH             string
	Priority        []string
	PathMappings    []argbuilder.PathMapping
	WorkspaceRoot   string
}

// Catalog builds the nine drivers in catalog order. Composite drivers resolve
// PHPUnit through the local drivers of the same catalog.
func Catalog(settings Settings, sys System, picker domain.Picker) []Driver {
	path := &PathDriver{settings: settings, sys: sys}
	composer := &ComposerDriver{settings: settings, sys: sys}
	phar := &PharDriver{settings: settings, sys: sys}
	global := &GlobalPhpUnitDriver{sys: sys}

	locals := &subChain{priority: settings.Priority, drivers: []Driver{path, composer, phar, global}}

	return []Driver{
		path,
		composer,
		phar,
		global,
		&CommandDriver{settings: settings, locals: locals},
		&DockerContainerDriver{settings: settings, sys: sys, picker: picker, locals: locals},
		&DockerDriver{settings: settings, sys: sys, locals: locals},
		&SshDriver{settings: settings, locals: locals},
		&LegacyDriver{settings: settings},
	}
}
