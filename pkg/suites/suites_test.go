package suites

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSuites = `<?xml version="1.0" encoding="UTF-8"?>
<phpunit bootstrap="vendor/autoload.php">
    <testsuites>
        <testsuite name="Math">
            <directory>tests/Math</directory>
        </testsuite>
        <testsuite name="Science">
            <directory>tests/Science</directory>
        </testsuite>
    </testsuites>
</phpunit>
`

func TestIsConfigFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/ws/phpunit.xml", true},
		{"/ws/phpunit.xml.dist", true},
		{"/ws/phpunit.dist.xml", true},
		{`C:\ws\phpunit.xml`, true},
		{"/ws/phpunit.yaml", false},
		{"/ws/tests/AdditionTest.php", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConfigFile(tt.path))
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("should list suites with zero-based lines", func(t *testing.T) {
		// When
		cfg, err := Parse(strings.NewReader(twoSuites))

		// Then
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.TestSuitesLine)
		require.Len(t, cfg.Suites, 2)
		assert.Equal(t, Suite{Name: "Math", Line: 3}, cfg.Suites[0])
		assert.Equal(t, Suite{Name: "Science", Line: 6}, cfg.Suites[1])
		assert.Equal(t, []string{"Math", "Science"}, cfg.Names())
	})

	t.Run("should ignore testsuite elements outside testsuites", func(t *testing.T) {
		doc := `<phpunit>
  <testsuite name="Stray"/>
  <groups><testsuites><testsuite name="Nested"/></testsuites></groups>
  <testsuites><testsuite name="Unit"/></testsuites>
</phpunit>`

		cfg, err := Parse(strings.NewReader(doc))

		require.NoError(t, err)
		assert.Equal(t, []string{"Unit"}, cfg.Names())
		assert.Equal(t, 3, cfg.TestSuitesLine)
	})

	t.Run("should report missing testsuites", func(t *testing.T) {
		cfg, err := Parse(strings.NewReader(`<phpunit></phpunit>`))

		require.NoError(t, err)
		assert.Empty(t, cfg.Suites)
		assert.Equal(t, -1, cfg.TestSuitesLine)
	})

	t.Run("should fail on malformed documents", func(t *testing.T) {
		_, err := Parse(strings.NewReader(`<phpunit><testsuites name="`))

		assert.Error(t, err)
	})
}

func TestScanNames(t *testing.T) {
	assert.Equal(t, []string{"Math", "Science"}, ScanNames(twoSuites))
	assert.Equal(t, []string{"Unit"}, ScanNames(`<testsuites><testsuite  id="1" name = "Unit">`))
	assert.Empty(t, ScanNames(`<testsuites name="NotASuite">`))
}
