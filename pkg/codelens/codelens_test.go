package codelens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calculatorSource = `<?php
namespace App\Tests;

class CalculatorTest
{
    public function testAdd() {}

    /** @test */
    public function subtracts() {}

    private function helper() {}
}
`

const phpunitXML = `<?xml version="1.0"?>
<phpunit>
    <testsuites>
        <testsuite name="Unit">
            <directory>tests/Unit</directory>
        </testsuite>
        <testsuite name="Feature">
            <directory>tests/Feature</directory>
        </testsuite>
    </testsuites>
</phpunit>
`

type lensView struct {
	Line  int
	Title string
	Args  string
}

func view(lenses []Lens) []lensView {
	out := make([]lensView, len(lenses))
	for i, l := range lenses {
		out[i] = lensView{Line: l.Line, Title: l.Title, Args: l.Builder.String()}
	}
	return out
}

func TestProvider_PHP(t *testing.T) {
	t.Run("should add a lens per test method and one per class", func(t *testing.T) {
		// Given
		p := NewProvider(true)
		file := "/ws/tests/CalculatorTest.php"

		// When
		lenses, err := p.Lenses(context.Background(), file, []byte(calculatorSource))

		// Then
		require.NoError(t, err)
		assert.Equal(t, []lensView{
			{Line: 5, Title: TitleRunTest, Args: "--filter 'testAdd' /ws/tests/CalculatorTest.php"},
			{Line: 8, Title: TitleRunTest, Args: "--filter 'subtracts' /ws/tests/CalculatorTest.php"},
			{Line: 3, Title: TitleRunTests, Args: "/ws/tests/CalculatorTest.php"},
		}, view(lenses))
	})

	t.Run("should add nothing for a class without tests", func(t *testing.T) {
		p := NewProvider(true)

		lenses, err := p.Lenses(context.Background(), "/ws/tests/Helper.php", []byte("<?php\nclass Helper { public function help() {} }\n"))

		require.NoError(t, err)
		assert.Empty(t, lenses)
	})
}

func TestProvider_XML(t *testing.T) {
	p := NewProvider(true)

	lenses, err := p.Lenses(context.Background(), "/ws/phpunit.xml", []byte(phpunitXML))

	require.NoError(t, err)
	assert.Equal(t, []lensView{
		{Line: 3, Title: TitleRunTest, Args: "--configuration /ws/phpunit.xml --testsuite Unit"},
		{Line: 6, Title: TitleRunTest, Args: "--configuration /ws/phpunit.xml --testsuite Feature"},
		{Line: 2, Title: TitleRunTests, Args: "--configuration /ws/phpunit.xml"},
	}, view(lenses))
}

func TestProvider_Cache(t *testing.T) {
	t.Run("should serve unchanged text from the cache", func(t *testing.T) {
		// Given
		p := NewProvider(true)
		file := "/ws/phpunit.xml"
		first, err := p.Lenses(context.Background(), file, []byte(phpunitXML))
		require.NoError(t, err)

		// When
		first[0].Builder.AddGroup("mutated")
		second, err := p.Lenses(context.Background(), file, []byte(phpunitXML))

		// Then
		require.NoError(t, err)
		assert.Equal(t, "--configuration /ws/phpunit.xml --testsuite Unit", second[0].Builder.String())
	})

	t.Run("should recompute when the text changes", func(t *testing.T) {
		p := NewProvider(true)
		file := "/ws/phpunit.xml"
		_, err := p.Lenses(context.Background(), file, []byte(phpunitXML))
		require.NoError(t, err)

		lenses, err := p.Lenses(context.Background(), file, []byte(`<phpunit><testsuites><testsuite name="Only"/></testsuites></phpunit>`))

		require.NoError(t, err)
		require.Len(t, lenses, 2)
		assert.Equal(t, "--configuration /ws/phpunit.xml --testsuite Only", lenses[0].Builder.String())
	})
}

func TestProvider_Disabled(t *testing.T) {
	p := NewProvider(false)

	lenses, err := p.Lenses(context.Background(), "/ws/phpunit.xml", []byte(phpunitXML))

	require.NoError(t, err)
	assert.Nil(t, lenses)
}

func TestProvider_IgnoresOtherDocuments(t *testing.T) {
	p := NewProvider(true)

	lenses, err := p.Lenses(context.Background(), "/ws/README.md", []byte("# hi"))

	require.NoError(t, err)
	assert.Nil(t, lenses)
}
