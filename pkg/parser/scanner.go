package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specvital/phpunit-runner/pkg/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultWorkers indicates that the scanner should use GOMAXPROCS as the worker count.
	DefaultWorkers = 0
	// DefaultTimeout is the default scan timeout duration.
	DefaultTimeout = 5 * time.Minute
	// MaxWorkers is the maximum number of concurrent workers allowed.
	MaxWorkers = 1024
	// DefaultMaxFileSize is the default maximum file size for scanning (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024
)

// DefaultIncludePattern matches PHPUnit test files under a tests directory.
const DefaultIncludePattern = "**/tests/**/*Test.php"

// DefaultExcludePattern matches version control and dependency directories.
const DefaultExcludePattern = "**/{.git,node_modules,vendor}/**"

// DefaultSkipPatterns contains directory names that are never descended into.
var DefaultSkipPatterns = []string{
	".git",
	"node_modules",
	"vendor",
}

var (
	// ErrScanCancelled is returned when scanning is cancelled via context.
	ErrScanCancelled = errors.New("scanner: scan cancelled")
	// ErrScanTimeout is returned when scanning exceeds the timeout duration.
	ErrScanTimeout = errors.New("scanner: scan timeout")
	// ErrNoFileParser is returned when the scanner was built without a parser.
	ErrNoFileParser = errors.New("scanner: no file parser configured")
)

// FileParser turns the content of one file into a TestFile.
type FileParser interface {
	ParseFile(ctx context.Context, source []byte, path string) (*domain.TestFile, error)
}

// Scanner discovers test files under a root and parses them in parallel.
type Scanner struct {
	options *ScanOptions
}

// ScanResult contains the outcome of a scan operation.
type ScanResult struct {
	// Inventory contains all parsed test files.
	Inventory *domain.Inventory

	// Errors contains non-fatal errors encountered during scanning.
	Errors []ScanError

	// Stats provides scan statistics.
	Stats ScanStats
}

// ScanError represents an error that occurred during a specific phase of scanning.
type ScanError struct {
	// Err is the underlying error.
	Err error

	// Path is the file path where the error occurred (may be empty for non-file errors).
	Path string

	// Phase indicates which phase the error occurred in.
	// Values: "discovery", "parsing"
	Phase string
}

// Error implements the error interface.
func (e ScanError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Phase, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e ScanError) Unwrap() error {
	return e.Err
}

// ScanStats provides statistics about the scan operation.
type ScanStats struct {
	// FilesScanned is the total number of test file candidates discovered.
	FilesScanned int

	// FilesMatched is the number of files that were successfully parsed.
	FilesMatched int

	// FilesFailed is the number of files that failed to parse.
	FilesFailed int

	// Duration is the total scan duration.
	Duration time.Duration
}

// NewScanner creates a new scanner with the given options.
func NewScanner(opts ...ScanOption) *Scanner {
	options := &ScanOptions{}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)

	return &Scanner{options: options}
}

// Scan discovers test files under rootPath and parses them in parallel.
// Paths in the returned inventory are absolute.
func (s *Scanner) Scan(ctx context.Context, rootPath string) (*ScanResult, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.options.Timeout)
	defer cancel()

	result := newScanResult(rootPath)
	if s.options.Parser == nil {
		return result, ErrNoFileParser
	}

	fsys := s.fileSystem(rootPath)

	testFiles, errs := s.discoverTestFiles(ctx, fsys)
	for _, err := range errs {
		result.Errors = append(result.Errors, ScanError{
			Err:   err,
			Phase: "discovery",
		})
	}
	result.Stats.FilesScanned = len(testFiles)

	if len(testFiles) > 0 {
		files, scanErrors := s.parseFilesParallel(ctx, fsys, rootPath, testFiles)
		result.Inventory.Files = files
		result.Errors = append(result.Errors, scanErrors...)
		result.Stats.FilesMatched = len(files)
		result.Stats.FilesFailed = len(scanErrors)
	}
	result.Stats.Duration = time.Since(startTime)

	return result, scanContextErr(ctx)
}

// ScanFiles parses specific files (for incremental/watch mode), bypassing
// discovery. files may be absolute or relative to rootPath.
func (s *Scanner) ScanFiles(ctx context.Context, rootPath string, files []string) (*ScanResult, error) {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.options.Timeout)
	defer cancel()

	result := newScanResult(rootPath)
	result.Stats.FilesScanned = len(files)
	if s.options.Parser == nil {
		return result, ErrNoFileParser
	}

	if len(files) == 0 {
		result.Stats.Duration = time.Since(startTime)
		return result, nil
	}

	rel := make([]string, 0, len(files))
	for _, f := range files {
		r, err := relativeTo(rootPath, f)
		if err != nil {
			result.Errors = append(result.Errors, ScanError{Err: err, Path: f, Phase: "discovery"})
			continue
		}
		rel = append(rel, r)
	}

	parsed, scanErrors := s.parseFilesParallel(ctx, s.fileSystem(rootPath), rootPath, rel)
	result.Inventory.Files = parsed
	result.Errors = append(result.Errors, scanErrors...)

	result.Stats.FilesMatched = len(parsed)
	result.Stats.FilesFailed = len(result.Errors)
	result.Stats.Duration = time.Since(startTime)

	return result, scanContextErr(ctx)
}

// Discover lists the test files under rootPath without parsing them.
// Returned paths are absolute and sorted.
func (s *Scanner) Discover(ctx context.Context, rootPath string) ([]string, []ScanError, error) {
	ctx, cancel := context.WithTimeout(ctx, s.options.Timeout)
	defer cancel()

	rel, errs := s.discoverTestFiles(ctx, s.fileSystem(rootPath))

	scanErrors := make([]ScanError, 0, len(errs))
	for _, err := range errs {
		scanErrors = append(scanErrors, ScanError{Err: err, Phase: "discovery"})
	}

	files := make([]string, len(rel))
	for i, r := range rel {
		files[i] = filepath.Join(rootPath, filepath.FromSlash(r))
	}
	sort.Strings(files)

	return files, scanErrors, scanContextErr(ctx)
}

// Matches reports whether path (absolute or relative to rootPath) is a file
// this scanner would discover.
func (s *Scanner) Matches(rootPath, path string) bool {
	rel, err := relativeTo(rootPath, path)
	if err != nil {
		return false
	}
	return s.accepts(rel)
}

func newScanResult(rootPath string) *ScanResult {
	return &ScanResult{
		Inventory: &domain.Inventory{
			RootPath: rootPath,
			Files:    []domain.TestFile{},
		},
		Errors: []ScanError{},
	}
}

func scanContextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrScanTimeout
		}
		if errors.Is(err, context.Canceled) {
			return ErrScanCancelled
		}
	}
	return nil
}

func (s *Scanner) fileSystem(rootPath string) fs.FS {
	if s.options.FS != nil {
		return s.options.FS
	}
	return os.DirFS(rootPath)
}

// relativeTo returns path relative to root in slash form.
func relativeTo(root, p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("compute relative path for %s: %w", p, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", p, root)
	}
	return rel, nil
}

// accepts applies the include and exclude patterns to a slash-separated relative path.
func (s *Scanner) accepts(rel string) bool {
	if path.Ext(rel) != ".php" {
		return false
	}
	if matchesAnyPattern(rel, s.options.ExcludePatterns) {
		return false
	}
	if len(s.options.Patterns) > 0 {
		return matchesAnyPattern(rel, s.options.Patterns)
	}
	return isPHPTestFile(rel)
}

// discoverTestFiles walks the file system to find test file candidates.
// Returns slash-separated paths relative to the root.
func (s *Scanner) discoverTestFiles(ctx context.Context, fsys fs.FS) ([]string, []error) {
	skipSet := buildSkipSet(DefaultSkipPatterns)

	var (
		files []string
		errs  []error
	)

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if walkErr != nil {
			errs = append(errs, fmt.Errorf("access error at %s: %w", p, walkErr))
			return nil
		}

		if d.IsDir() {
			if p != "." && skipSet[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		if !s.accepts(p) {
			return nil
		}

		if s.options.MaxFileSize > 0 {
			info, err := d.Info()
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to get file info for %s: %w", p, err))
				return nil
			}
			if info.Size() > s.options.MaxFileSize {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})

	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			errs = append(errs, err)
		}
	}

	return files, errs
}

func (s *Scanner) parseFilesParallel(ctx context.Context, fsys fs.FS, rootPath string, files []string) ([]domain.TestFile, []ScanError) {
	workers := s.options.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gCtx := errgroup.WithContext(ctx)

	var (
		mu         sync.Mutex
		testFiles  = make([]domain.TestFile, 0, len(files))
		scanErrors = make([]ScanError, 0)
	)

	for _, file := range files {
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			testFile, scanErr := s.parseFile(gCtx, fsys, rootPath, file)

			mu.Lock()
			defer mu.Unlock()

			if scanErr != nil {
				scanErrors = append(scanErrors, *scanErr)
				return nil
			}
			if testFile != nil {
				testFiles = append(testFiles, *testFile)
			}
			return nil
		})
	}

	_ = g.Wait()

	// Parallel goroutines complete in variable order.
	sort.Slice(testFiles, func(i, j int) bool {
		return testFiles[i].Path < testFiles[j].Path
	})

	return testFiles, scanErrors
}

func (s *Scanner) parseFile(ctx context.Context, fsys fs.FS, rootPath, rel string) (*domain.TestFile, *ScanError) {
	absPath := filepath.Join(rootPath, filepath.FromSlash(rel))

	if err := ctx.Err(); err != nil {
		return nil, &ScanError{Err: err, Path: absPath, Phase: "parsing"}
	}

	content, err := fs.ReadFile(fsys, rel)
	if err != nil {
		return nil, &ScanError{Err: err, Path: absPath, Phase: "parsing"}
	}

	testFile, err := s.options.Parser.ParseFile(ctx, content, absPath)
	if err != nil {
		return nil, &ScanError{Err: fmt.Errorf("parse: %w", err), Path: absPath, Phase: "parsing"}
	}

	return testFile, nil
}

func buildSkipSet(patterns []string) map[string]bool {
	skipSet := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		skipSet[p] = true
	}
	return skipSet
}

func isPHPTestFile(p string) bool {
	name := strings.TrimSuffix(path.Base(p), ".php")

	if strings.HasSuffix(name, "Test") || strings.HasSuffix(name, "Tests") {
		return true
	}
	if strings.HasPrefix(name, "Test") {
		return true
	}

	if strings.Contains(p, "/test/") || strings.Contains(p, "/tests/") {
		return true
	}
	if strings.HasPrefix(p, "test/") || strings.HasPrefix(p, "tests/") {
		return true
	}

	return false
}

func matchesAnyPattern(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, relPath)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Scan is a convenience wrapper around NewScanner(opts...).Scan.
func Scan(ctx context.Context, rootPath string, opts ...ScanOption) (*ScanResult, error) {
	return NewScanner(opts...).Scan(ctx, rootPath)
}
