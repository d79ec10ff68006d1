// Package domain defines the core types for discovered PHPUnit tests and runs.
package domain

// Language represents a programming language.
type Language string

// Supported languages for test file parsing.
const (
	LanguagePHP Language = "php"
)
