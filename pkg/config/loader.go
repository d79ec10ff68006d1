package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/driver"
	"github.com/specvital/phpunit-runner/pkg/logging"
	"github.com/specvital/phpunit-runner/pkg/runner"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osLookupEnv = os.LookupEnv

const (
	userConfigDir     = ".config/phpunit-runner"
	configFileName    = "config.yaml"
	projectConfigFile = ".phpunit-runner.yaml"
	dotEnvFile        = ".env"
	envPrefix         = "PHPUNIT_"
	pathMappingSep    = ";"
	pathMappingAssign = "="
)

const subsystem = "config"

// Load layers defaults, the user file, the project file, the workspace .env
// and the process environment.
func Load(workspace string) (Config, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		logging.Warn(subsystem, "could not determine user config path: %v", err)
	} else if err := loadConfigFromFile(userConfigPath, &config); err != nil {
		return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	projectConfigPath := filepath.Join(workspace, projectConfigFile)
	if err := loadConfigFromFile(projectConfigPath, &config); err != nil {
		return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	dotenv, err := readDotEnv(filepath.Join(workspace, dotEnvFile))
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := osLookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&config, lookup); err != nil {
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

// loadConfigFromFile decodes a YAML file over config. Keys absent from the
// file keep their current value. A missing file is not an error.
func loadConfigFromFile(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	logging.Debug(subsystem, "loading %s", filePath)
	return yaml.Unmarshal(data, config)
}

func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return values, nil
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PHP":              &config.PHP,
		"PHPUNIT":          &config.PHPUnit,
		"COMMAND":          &config.Command,
		"EXEC_PATH":        &config.ExecPath,
		"COLORS":           &config.Colors,
		"DOCKER_IMAGE":     &config.Docker.Image,
		"DOCKER_CONTAINER": &config.Docker.Container,
		"SSH":              &config.SSH,
		"LOG_LEVEL":        &config.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"CLEAR_OUTPUT_ON_RUN":                          &config.ClearOutputOnRun,
		"PREFER_RUN_CLASS_TEST_OVER_QUICK_PICK_WINDOW": &config.PreferRunClassTestOverQuickPickWindow,
		"CODELENS_ENABLED":                             &config.CodeLens.Enabled,
		"TEST_EXPLORER_ENABLED":                        &config.TestExplorer.Enabled,
		"TEST_EXPLORER_LAZY":                           &config.TestExplorer.Lazy,
	}
	for key, dst := range bools {
		v, ok := lookup(envPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = b
	}

	if v, ok := lookup(envPrefix + "DRIVER_PRIORITY"); ok {
		config.DriverPriority = splitList(v, ",")
	}
	if v, ok := lookup(envPrefix + "ARGS"); ok {
		config.Args = strings.Fields(v)
	}
	if v, ok := lookup(envPrefix + "PATHS"); ok {
		paths, err := parsePathMappings(v)
		if err != nil {
			return fmt.Errorf("%sPATHS: %w", envPrefix, err)
		}
		config.Paths = paths
	}
	return nil
}

// parsePathMappings reads "local=remote;local2=remote2".
func parsePathMappings(s string) (PathMappings, error) {
	var out PathMappings
	for _, pair := range splitList(s, pathMappingSep) {
		local, remote, ok := strings.Cut(pair, pathMappingAssign)
		if !ok {
			return nil, fmt.Errorf("invalid mapping %q", pair)
		}
		out = append(out, argbuilder.PathMapping{Local: strings.TrimSpace(local), Remote: strings.TrimSpace(remote)})
	}
	return out, nil
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects values no component can use.
func (c Config) Validate() error {
	if _, err := argbuilder.ParseColorMode(c.Colors); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// DriverSettings returns what the driver catalog reads.
func (c Config) DriverSettings(workspaceRoot string) driver.Settings {
	return driver.Settings{
		PHP:             c.PHP,
		PHPUnit:         c.PHPUnit,
		Command:         c.Command,
		ExecPath:        c.ExecPath,
		DockerImage:     c.Docker.Image,
		DockerContainer: c.Docker.Container,
		SSH:             c.SSH,
		Priority:        append([]string(nil), c.DriverPriority...),
		PathMappings:    append([]argbuilder.PathMapping(nil), c.Paths...),
		WorkspaceRoot:   workspaceRoot,
	}
}

// RunSettings returns what the orchestrator reads. Colors are assumed valid.
func (c Config) RunSettings(workspaceRoot string) runner.Settings {
	colors, _ := argbuilder.ParseColorMode(c.Colors)
	return runner.Settings{
		Args:                                  append([]string(nil), c.Args...),
		Colors:                                colors,
		PathMappings:                          append([]argbuilder.PathMapping(nil), c.Paths...),
		WorkspaceRoot:                         workspaceRoot,
		PreferRunClassTestOverQuickPickWindow: c.PreferRunClassTestOverQuickPickWindow,
		ClearOutputOnRun:                      c.ClearOutputOnRun,
	}
}
