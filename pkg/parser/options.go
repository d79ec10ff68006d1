package parser

import (
	"io/fs"
	"time"
)

// ScanOptions configures scanner behavior.
type ScanOptions struct {
	// ExcludePatterns are doublestar globs, relative to the root, of files to skip.
	// Nil uses DefaultExcludePattern.
	ExcludePatterns []string

	// FS overrides the file system rooted at the scan root. Nil means os.DirFS(root).
	FS fs.FS

	// MaxFileSize is the maximum file size in bytes to process.
	// Files larger than this are skipped.
	MaxFileSize int64

	// Parser turns file content into a TestFile. Required.
	Parser FileParser

	// Patterns are doublestar globs, relative to the root, of files to include.
	// Nil uses DefaultIncludePattern; an empty slice falls back to
	// file name conventions (*Test.php, Test*.php, tests/ directories).
	Patterns []string

	// Timeout is the maximum duration for the entire scan operation.
	// Zero or negative values use DefaultTimeout.
	Timeout time.Duration

	// Workers specifies the number of concurrent file parsers.
	// Zero or negative values use runtime.GOMAXPROCS(0).
	Workers int
}

// ScanOption is a functional option for configuring Scanner.
type ScanOption func(*ScanOptions)

// WithWorkers sets the number of concurrent file parsers.
// Negative values are ignored.
func WithWorkers(n int) ScanOption {
	return func(o *ScanOptions) {
		if n >= 0 {
			o.Workers = n
		}
	}
}

// WithTimeout sets the scan timeout duration.
// Negative values are ignored.
func WithTimeout(d time.Duration) ScanOption {
	return func(o *ScanOptions) {
		if d >= 0 {
			o.Timeout = d
		}
	}
}

// WithExcludePatterns sets the glob patterns of files to skip.
func WithExcludePatterns(patterns []string) ScanOption {
	return func(o *ScanOptions) {
		o.ExcludePatterns = patterns
	}
}

// WithMaxFileSize sets the maximum file size to process.
func WithMaxFileSize(size int64) ScanOption {
	return func(o *ScanOptions) {
		o.MaxFileSize = size
	}
}

// WithPatterns sets glob patterns to filter test files.
func WithPatterns(patterns []string) ScanOption {
	return func(o *ScanOptions) {
		o.Patterns = patterns
	}
}

// WithParser sets the parser applied to each discovered file.
func WithParser(p FileParser) ScanOption {
	return func(o *ScanOptions) {
		o.Parser = p
	}
}

// WithFS scans fsys instead of the operating system file system.
func WithFS(fsys fs.FS) ScanOption {
	return func(o *ScanOptions) {
		o.FS = fsys
	}
}

func applyDefaults(opts *ScanOptions) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Patterns == nil {
		opts.Patterns = []string{DefaultIncludePattern}
	}
	if opts.ExcludePatterns == nil {
		opts.ExcludePatterns = []string{DefaultExcludePattern}
	}
}
