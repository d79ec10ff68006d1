package domain

import "time"

// RunConfig is one ready-to-execute PHPUnit invocation produced by a driver.
type RunConfig struct {
	// Command is the full shell command line.
	Command string `json:"command"`
	// ProblemMatcher tells the host how to turn output into diagnostics.
	ProblemMatcher string `json:"problemMatcher,omitempty"`
	// Exec and Args describe the invocation without a shell, when the driver knows them.
	Exec string   `json:"exec,omitempty"`
	Args []string `json:"args,omitempty"`
}

// Outcome is the classified result of executing one test item.
type Outcome struct {
	Status   RunStatus     `json:"status"`
	Message  string        `json:"message,omitempty"`
	Expected string        `json:"expected,omitempty"`
	Actual   string        `json:"actual,omitempty"`
	ExitCode int           `json:"exitCode"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
}

// HasDiff reports whether the outcome carries an expected/actual pair.
func (o Outcome) HasDiff() bool {
	return o.Expected != "" || o.Actual != ""
}
