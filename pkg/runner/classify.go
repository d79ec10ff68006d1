package runner

import (
	"regexp"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/specvital/phpunit-runner/pkg/domain"
)

// GenericFailureMessage is reported when a failing run has no output.
const GenericFailureMessage = "Failed"

var (
	failedAssertionLine = regexp.MustCompile(`(?im)^Failed asserting that .*$`)
	expectedDiffMarker  = regexp.MustCompile(`(?i)--- Expected`)
	expectedDiffLine    = regexp.MustCompile(`(?im)^- .*$`)
	actualDiffLine      = regexp.MustCompile(`(?im)^\+ .*$`)
	comparisonSentence  = regexp.MustCompile(`(?im)^Failed asserting that (.*) (is|are|matches expected) (.*)\.$`)
)

// Classify turns an exit status and PHPUnit output into an Outcome.
// Exit status zero passes. Otherwise the failure message and, when present,
// the expected and actual values are extracted from the output.
func Classify(exitCode int, output string) domain.Outcome {
	clean := strings.ReplaceAll(stripansi.Strip(output), "\r\n", "\n")

	outcome := domain.Outcome{
		ExitCode: exitCode,
		Output:   output,
	}
	if exitCode == 0 {
		outcome.Status = domain.RunStatusPassed
		return outcome
	}
	outcome.Status = domain.RunStatusFailed

	message := failedAssertionLine.FindString(clean)
	if message == "" {
		outcome.Message = genericMessage(clean)
		return outcome
	}
	outcome.Message = strings.TrimSpace(message)

	if expectedDiffMarker.MatchString(clean) {
		outcome.Expected = strings.Join(expectedDiffLine.FindAllString(clean, -1), "\n")
		outcome.Actual = strings.Join(actualDiffLine.FindAllString(clean, -1), "\n")
		return outcome
	}

	if m := comparisonSentence.FindStringSubmatch(clean); m != nil {
		outcome.Actual = m[1]
		outcome.Expected = m[3]
	}
	return outcome
}

func genericMessage(output string) string {
	if trimmed := strings.TrimSpace(output); trimmed != "" {
		return trimmed
	}
	return GenericFailureMessage
}
