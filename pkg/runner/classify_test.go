package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/specvital/phpunit-runner/pkg/domain"
)

func TestClassify(t *testing.T) {
	t.Run("should pass on exit status zero", func(t *testing.T) {
		outcome := Classify(0, "OK (3 tests, 3 assertions)")

		assert.Equal(t, domain.RunStatusPassed, outcome.Status)
		assert.Empty(t, outcome.Message)
	})

	t.Run("should extract expected and actual from a comparison sentence", func(t *testing.T) {
		// Given
		output := "There was 1 failure:\n\n1) AdditionTest::testAdd\nFailed asserting that 8 matches expected 10.\n\n/app/tests/AdditionTest.php:12\n"

		// When
		outcome := Classify(1, output)

		// Then
		assert.Equal(t, domain.RunStatusFailed, outcome.Status)
		assert.Equal(t, "Failed asserting that 8 matches expected 10.", outcome.Message)
		assert.Equal(t, "10", outcome.Expected)
		assert.Equal(t, "8", outcome.Actual)
		assert.Equal(t, 1, outcome.ExitCode)
	})

	t.Run("should collect diff blocks when an expected marker is present", func(t *testing.T) {
		// Given
		output := "1) UserTest::testName\n" +
			"Failed asserting that two strings are equal.\n" +
			"--- Expected\n" +
			"+++ Actual\n" +
			"@@ @@\n" +
			"- 'alice'\n" +
			"+ 'bob'\n"

		// When
		outcome := Classify(1, output)

		// Then
		assert.Equal(t, "Failed asserting that two strings are equal.", outcome.Message)
		assert.Equal(t, "- 'alice'", outcome.Expected)
		assert.Equal(t, "+ 'bob'", outcome.Actual)
	})

	t.Run("should strip ansi codes before matching", func(t *testing.T) {
		output := "\x1b[37;41mFailed asserting that false is true.\x1b[0m\n"

		outcome := Classify(1, output)

		assert.Equal(t, "Failed asserting that false is true.", outcome.Message)
		assert.Equal(t, "true", outcome.Expected)
		assert.Equal(t, "false", outcome.Actual)
		assert.Equal(t, output, outcome.Output)
	})

	t.Run("should fall back to the raw text when nothing matches", func(t *testing.T) {
		outcome := Classify(255, "PHP Fatal error:  Uncaught Error\n")

		assert.Equal(t, domain.RunStatusFailed, outcome.Status)
		assert.Equal(t, "PHP Fatal error:  Uncaught Error", outcome.Message)
		assert.False(t, outcome.HasDiff())
	})

	t.Run("should report a generic failure for empty output", func(t *testing.T) {
		outcome := Classify(2, "")

		assert.Equal(t, GenericFailureMessage, outcome.Message)
	})
}
