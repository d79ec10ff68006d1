// Package config loads phpunit-runner settings.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults
//  2. user file ~/.config/phpunit-runner/config.yaml
//  3. project file <workspace>/.phpunit-runner.yaml
//  4. PHPUNIT_* variables from <workspace>/.env
//  5. PHPUNIT_* variables from the process environment
//
// A YAML layer only overrides the keys it sets. Path mappings keep the order
// in which they are written.
package config
