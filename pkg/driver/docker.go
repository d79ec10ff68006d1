package driver

import (
	"regexp"
	"strings"
)

var columnSeparator = regexp.MustCompile(`\s{2,}`)

// Container is one row of `docker container ls`, keyed by column header.
type Container map[string]string

// Name returns the NAMES column.
func (c Container) Name() string {
	return c["NAMES"]
}

// ParseContainerList parses the table printed by `docker container ls`.
// Columns are separated by two or more spaces; short rows repeat their last value.
func ParseContainerList(output string) []Container {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil
	}

	headers := columnSeparator.Split(strings.TrimSpace(lines[0]), -1)
	containers := make([]Container, 0, len(lines)-1)
	for _, line := range lines[1:] {
		values := columnSeparator.Split(strings.TrimSpace(line), -1)
		c := make(Container, len(headers))
		for i, h := range headers {
			c[h] = values[min(i, len(values)-1)]
		}
		containers = append(containers, c)
	}
	return containers
}
