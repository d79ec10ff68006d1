// Package suites extracts test suite declarations from PHPUnit XML configuration files.
package suites

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
)

// ConfigFileNames are the file names PHPUnit reads its configuration from.
var ConfigFileNames = []string{"phpunit.xml", "phpunit.xml.dist", "phpunit.dist.xml"}

// IsConfigFile reports whether path names a PHPUnit configuration file.
func IsConfigFile(path string) bool {
	base := filepath.Base(filepath.ToSlash(path))
	for _, name := range ConfigFileNames {
		if base == name {
			return true
		}
	}
	return false
}

// Suite is one <testsuite> declaration.
type Suite struct {
	Name string
	// Line is the zero-based line of the opening tag.
	Line int
}

// Config is the suite structure of one configuration file.
type Config struct {
	Suites []Suite
	// TestSuitesLine is the zero-based line of <testsuites>, or -1 when absent.
	TestSuitesLine int
}

// Names returns the suite names in declaration order.
func (c *Config) Names() []string {
	names := make([]string, len(c.Suites))
	for i, s := range c.Suites {
		names[i] = s.Name
	}
	return names
}

// Parse walks the document structurally: only <testsuite> elements that are
// direct children of a <testsuites> element under the root are reported.
func Parse(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{TestSuitesLine: -1}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	depth := 0
	inSuites := false
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch {
			case depth == 2 && t.Name.Local == "testsuites":
				inSuites = true
				if cfg.TestSuitesLine < 0 {
					cfg.TestSuitesLine = lineAt(data, offset)
				}
			case depth == 3 && inSuites && t.Name.Local == "testsuite":
				if name, ok := attr(t, "name"); ok {
					cfg.Suites = append(cfg.Suites, Suite{Name: name, Line: lineAt(data, offset)})
				}
			}
		case xml.EndElement:
			if depth == 2 && t.Name.Local == "testsuites" {
				inSuites = false
			}
			depth--
		}
	}

	return cfg, nil
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n"))
}

var suiteNamePattern = regexp.MustCompile(`<testsuite\s[^>]*?\bname\s*=\s*"([^"]*)"`)

// ScanNames extracts suite names with a regular expression instead of a full
// parse. It tolerates documents the XML decoder rejects.
func ScanNames(text string) []string {
	var names []string
	for _, m := range suiteNamePattern.FindAllStringSubmatch(text, -1) {
		names = append(names, m[1])
	}
	return names
}
