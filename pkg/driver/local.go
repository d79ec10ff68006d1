package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specvital/phpunit-runner/pkg/domain"
)

const (
	composerBinPattern        = "**/vendor/bin/phpunit"
	composerWindowsBinPattern = "**/vendor/phpunit/phpunit/phpunit"
	pharPattern               = "**/phpunit*.phar"
	pharExtensionCheck        = "echo extension_loaded('phar');"
)

func quote(path string) string {
	return "'" + path + "'"
}

func shellCommand(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// lookupPHP resolves the configured PHP binary on PATH, then plain "php".
func lookupPHP(sys System, configured string) (string, bool) {
	if configured != "" {
		if p, err := sys.LookPath(configured); err == nil {
			return p, true
		}
	}
	if p, err := sys.LookPath("php"); err == nil {
		return p, true
	}
	return "", false
}

func pathErr(name string) error {
	return fmt.Errorf("%s: %w", name, ErrPHPUnitNotFound)
}

// PathDriver runs a PHPUnit script at a configured path with PHP.
type PathDriver struct {
	settings Settings
	sys      System
	php      memo
	phpunit  memo
}

func (d *PathDriver) Name() string { return NamePath }

func (d *PathDriver) phpPath() (string, bool) {
	return d.php.get(func() (string, bool) {
		if d.sys.FileExists(d.settings.PHP) {
			return d.settings.PHP, true
		}
		if p, err := d.sys.LookPath("php"); err == nil {
			return p, true
		}
		return "", false
	})
}

func (d *PathDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		configured := d.settings.PHPUnit
		if configured == "" {
			return "", false
		}
		if d.sys.FileExists(configured) {
			return quote(configured), true
		}
		if d.settings.WorkspaceRoot != "" {
			abs := filepath.Join(d.settings.WorkspaceRoot, configured)
			if d.sys.FileExists(abs) {
				return quote(abs), true
			}
		}
		return "", false
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

func (d *PathDriver) Probe(ctx context.Context) Probe {
	if _, ok := d.phpPath(); !ok {
		return Unavailable("php not found")
	}
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("configured phpunit path does not exist")
	}
	return Available()
}

func (d *PathDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	php, ok := d.phpPath()
	if !ok {
		return domain.RunConfig{}, fmt.Errorf("%s: php not found", d.Name())
	}
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	return domain.RunConfig{Command: shellCommand(php, phpunit, strings.Join(args, " "))}, nil
}

// ComposerDriver runs PHPUnit installed under vendor/ by Composer.
type ComposerDriver struct {
	settings Settings
	sys      System
	php      memo
	phpunit  memo
}

func (d *ComposerDriver) Name() string { return NameComposer }

func (d *ComposerDriver) phpPath() (string, bool) {
	return d.php.get(func() (string, bool) { return lookupPHP(d.sys, d.settings.PHP) })
}

func (d *ComposerDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		if configured := d.settings.PHPUnit; configured != "" && d.sys.FileExists(configured) {
			return quote(configured), true
		}
		pattern := composerBinPattern
		if d.sys.Platform() == "windows" {
			pattern = composerWindowsBinPattern
		}
		found, err := d.sys.FindFile(ctx, d.settings.WorkspaceRoot, pattern, DefaultSearchExclude)
		if err != nil {
			return "", false
		}
		return quote(found), true
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

func (d *ComposerDriver) Probe(ctx context.Context) Probe {
	if _, ok := d.phpPath(); !ok {
		return Unavailable("php not found")
	}
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("no vendor phpunit in workspace")
	}
	return Available()
}

func (d *ComposerDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	joined := strings.Join(args, " ")

	// The vendor script is not executable on Windows.
	if d.sys.Platform() == "windows" {
		php, ok := d.phpPath()
		if !ok {
			return domain.RunConfig{}, fmt.Errorf("%s: php not found", d.Name())
		}
		return domain.RunConfig{Command: shellCommand(php, phpunit, joined)}, nil
	}
	return domain.RunConfig{Command: shellCommand(phpunit, joined)}, nil
}

// PharDriver runs a phpunit*.phar archive with PHP.
type PharDriver struct {
	settings Settings
	sys      System
	php      memo
	phpunit  memo
	hasPhar  flag
}

func (d *PharDriver) Name() string { return NamePhar }

func (d *PharDriver) phpPath() (string, bool) {
	return d.php.get(func() (string, bool) { return lookupPHP(d.sys, d.settings.PHP) })
}

func (d *PharDriver) hasPharExtension(ctx context.Context) bool {
	return d.hasPhar.get(func() bool {
		php, ok := d.phpPath()
		if !ok {
			return false
		}
		out, err := d.sys.Output(ctx, php, "-r", pharExtensionCheck)
		return err == nil && out == "1"
	})
}

func (d *PharDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		configured := d.settings.PHPUnit
		if strings.HasSuffix(configured, ".phar") && d.sys.FileExists(configured) {
			return quote(configured), true
		}
		found, err := d.sys.FindFile(ctx, d.settings.WorkspaceRoot, pharPattern, DefaultSearchExclude)
		if err != nil {
			return "", false
		}
		return quote(found), true
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

func (d *PharDriver) Probe(ctx context.Context) Probe {
	if _, ok := d.phpPath(); !ok {
		return Unavailable("php not found")
	}
	if !d.hasPharExtension(ctx) {
		return Unavailable("php phar extension not loaded")
	}
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("no phpunit phar in workspace")
	}
	return Available()
}

func (d *PharDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	php, ok := d.phpPath()
	if !ok {
		return domain.RunConfig{}, fmt.Errorf("%s: php not found", d.Name())
	}
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	return domain.RunConfig{Command: shellCommand(php, phpunit, strings.Join(args, " "))}, nil
}

// GlobalPhpUnitDriver runs a phpunit executable found on PATH.
type GlobalPhpUnitDriver struct {
	sys     System
	phpunit memo
}

func (d *GlobalPhpUnitDriver) Name() string { return NameGlobalPhpUnit }

func (d *GlobalPhpUnitDriver) PHPUnitPath(ctx context.Context) (string, error) {
	p, ok := d.phpunit.get(func() (string, bool) {
		name := "phpunit"
		if d.sys.Platform() == "windows" {
			name = "phpunit.bat"
		}
		p, err := d.sys.LookPath(name)
		return p, err == nil
	})
	if !ok {
		return "", pathErr(d.Name())
	}
	return p, nil
}

func (d *GlobalPhpUnitDriver) Probe(ctx context.Context) Probe {
	if _, err := d.PHPUnitPath(ctx); err != nil {
		return Unavailable("phpunit not on PATH")
	}
	return Available()
}

func (d *GlobalPhpUnitDriver) Command(ctx context.Context, args []string) (domain.RunConfig, error) {
	phpunit, err := d.PHPUnitPath(ctx)
	if err != nil {
		return domain.RunConfig{}, err
	}
	return domain.RunConfig{Command: shellCommand(phpunit, strings.Join(args, " "))}, nil
}
