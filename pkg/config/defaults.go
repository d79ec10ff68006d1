package config

import (
	"github.com/specvital/phpunit-runner/pkg/driver"
	"github.com/specvital/phpunit-runner/pkg/parser"
)

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() Config {
	return Config{
		DriverPriority: []string{
			driver.NamePath,
			driver.NameComposer,
			driver.NamePhar,
			driver.NameGlobalPhpUnit,
			driver.NameCommand,
			driver.NameDockerContainer,
			driver.NameDocker,
			driver.NameSsh,
			driver.NameLegacy,
		},
		CodeLens: CodeLensConfig{Enabled: true},
		TestExplorer: TestExplorerConfig{
			Enabled: true,
			Include: []string{parser.DefaultIncludePattern},
			Exclude: []string{parser.DefaultExcludePattern},
		},
		LogLevel: "info",
	}
}
