package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/specvital/phpunit-runner/pkg/argbuilder"
	"github.com/specvital/phpunit-runner/pkg/driver"
)

// isolate points the user layer and the process environment at test fixtures.
func isolate(t *testing.T, env map[string]string) (home string) {
	t.Helper()
	home = t.TempDir()

	originalHome := osUserHomeDir
	originalLookup := osLookupEnv
	t.Cleanup(func() {
		osUserHomeDir = originalHome
		osLookupEnv = originalLookup
	})

	osUserHomeDir = func() (string, error) { return home, nil }
	osLookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_DefaultOnly(t *testing.T) {
	isolate(t, nil)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), cfg)
	assert.True(t, cfg.CodeLens.Enabled)
	assert.Equal(t, driver.NamePath, cfg.DriverPriority[0])
}

func TestLoad_Layers(t *testing.T) {
	t.Run("should let the project file override the user file", func(t *testing.T) {
		// Given
		home := isolate(t, nil)
		workspace := t.TempDir()
		writeFile(t, filepath.Join(home, userConfigDir, configFileName), "php: /usr/bin/php8.1\nphpunit: user-phpunit\ncolors: never\n")
		writeFile(t, filepath.Join(workspace, projectConfigFile), "phpunit: vendor/bin/phpunit\ncodeLens:\n  enabled: false\n")

		// When
		cfg, err := Load(workspace)

		// Then
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/php8.1", cfg.PHP)
		assert.Equal(t, "vendor/bin/phpunit", cfg.PHPUnit)
		assert.Equal(t, "never", cfg.Colors)
		assert.False(t, cfg.CodeLens.Enabled)
		assert.Equal(t, GetDefaultConfig().TestExplorer.Include, cfg.TestExplorer.Include)
	})

	t.Run("should let the process environment override .env", func(t *testing.T) {
		// Given
		isolate(t, map[string]string{"PHPUNIT_COMMAND": "docker compose exec app"})
		workspace := t.TempDir()
		writeFile(t, filepath.Join(workspace, dotEnvFile), "PHPUNIT_COMMAND=from-dotenv\nPHPUNIT_DRIVER_PRIORITY=Docker, Composer\nPHPUNIT_CLEAR_OUTPUT_ON_RUN=true\n")

		// When
		cfg, err := Load(workspace)

		// Then
		require.NoError(t, err)
		assert.Equal(t, "docker compose exec app", cfg.Command)
		assert.Equal(t, []string{"Docker", "Composer"}, cfg.DriverPriority)
		assert.True(t, cfg.ClearOutputOnRun)
	})

	t.Run("should reject an invalid boolean", func(t *testing.T) {
		isolate(t, map[string]string{"PHPUNIT_CODELENS_ENABLED": "maybe"})

		_, err := Load(t.TempDir())

		assert.ErrorContains(t, err, "PHPUNIT_CODELENS_ENABLED")
	})

	t.Run("should reject an unknown color mode", func(t *testing.T) {
		isolate(t, map[string]string{"PHPUNIT_COLORS": "rainbow"})

		_, err := Load(t.TempDir())

		assert.Error(t, err)
	})

	t.Run("should report malformed yaml", func(t *testing.T) {
		isolate(t, nil)
		workspace := t.TempDir()
		writeFile(t, filepath.Join(workspace, projectConfigFile), "args: [unterminated\n")

		_, err := Load(workspace)

		assert.ErrorContains(t, err, projectConfigFile)
	})
}

func TestPathMappings(t *testing.T) {
	t.Run("should keep mapping order", func(t *testing.T) {
		var cfg Config
		src := "paths:\n  ${workspaceFolder}/src: /app/src\n  ${workspaceFolder}: /app\n  /tmp: /var/tmp\n"

		require.NoError(t, yaml.Unmarshal([]byte(src), &cfg))

		assert.Equal(t, PathMappings{
			{Local: "${workspaceFolder}/src", Remote: "/app/src"},
			{Local: "${workspaceFolder}", Remote: "/app"},
			{Local: "/tmp", Remote: "/var/tmp"},
		}, cfg.Paths)
	})

	t.Run("should accept a list of entries", func(t *testing.T) {
		var cfg Config
		src := "paths:\n  - local: /ws\n    remote: /app\n"

		require.NoError(t, yaml.Unmarshal([]byte(src), &cfg))

		assert.Equal(t, PathMappings{{Local: "/ws", Remote: "/app"}}, cfg.Paths)
	})

	t.Run("should reject a scalar", func(t *testing.T) {
		var cfg Config

		err := yaml.Unmarshal([]byte("paths: /app\n"), &cfg)

		assert.Error(t, err)
	})

	t.Run("should round trip as a mapping", func(t *testing.T) {
		in := Config{Paths: PathMappings{{Local: "b", Remote: "2"}, {Local: "a", Remote: "1"}}}

		data, err := yaml.Marshal(in)
		require.NoError(t, err)
		var out Config
		require.NoError(t, yaml.Unmarshal(data, &out))

		assert.Equal(t, in.Paths, out.Paths)
	})

	t.Run("should parse the environment form", func(t *testing.T) {
		got, err := parsePathMappings("/ws=/app; /tmp = /var/tmp")

		require.NoError(t, err)
		assert.Equal(t, PathMappings{{Local: "/ws", Remote: "/app"}, {Local: "/tmp", Remote: "/var/tmp"}}, got)
	})
}

func TestConfig_Settings(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Colors = "always"
	cfg.Docker.Image = "php:8.3"
	cfg.Paths = PathMappings{{Local: "${workspaceFolder}", Remote: "/app"}}

	ds := cfg.DriverSettings("/ws")
	rs := cfg.RunSettings("/ws")

	assert.Equal(t, "php:8.3", ds.DockerImage)
	assert.Equal(t, "/ws", ds.WorkspaceRoot)
	assert.Equal(t, []argbuilder.PathMapping{{Local: "${workspaceFolder}", Remote: "/app"}}, ds.PathMappings)
	assert.Equal(t, argbuilder.ColorsAlways, rs.Colors)
	assert.Equal(t, "/ws", rs.WorkspaceRoot)
}
