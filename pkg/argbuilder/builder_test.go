package argbuilder

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Args(t *testing.T) {
	t.Run("should serialize fragments in fixed order", func(t *testing.T) {
		// Given: mutators called out of serialization order
		b := New().
			AddDirectoryOrFile("tests/AdditionTest.php").
			AddArgs([]string{"--stop-on-failure"}).
			AddGroup("slow").
			WithFilter("^.*::testAdd$").
			AddSuites([]string{"Math", "Science"}).
			WithColors(ColorsAlways).
			WithConfig("phpunit.xml")

		// When
		got := b.Args()

		// Then
		want := []string{
			"--configuration", "phpunit.xml",
			"--colors=always",
			"--testsuite", "Math,Science",
			"--filter", "'^.*::testAdd$'",
			"--group", "slow",
			"--stop-on-failure",
			"tests/AdditionTest.php",
		}
		assert.Equal(t, want, got)
	})

	t.Run("should drop empty fragments", func(t *testing.T) {
		b := New().AddArgs([]string{"", "--debug", ""})

		assert.Equal(t, []string{"--debug"}, b.Args())
	})

	t.Run("should return nothing for an empty builder", func(t *testing.T) {
		assert.Empty(t, New().Args())
		assert.Equal(t, "", New().String())
	})

	t.Run("should be idempotent", func(t *testing.T) {
		b := New().
			WithConfig(`C:\project\phpunit.xml`).
			AddSuite("Unit").
			AddDirectoryOrFile(`C:\project\tests`).
			WithPathMappings([]PathMapping{{Local: "C:/project", Remote: "/app"}}, "")

		first := b.Args()
		second := b.Args()

		assert.Equal(t, first, second)
		assert.Equal(t, b.String(), b.String())
	})

	t.Run("should normalize backslashes in paths", func(t *testing.T) {
		b := New().
			WithConfig(`C:\project\phpunit.xml`).
			AddDirectoryOrFile(`C:\project\tests\UserTest.php`)

		assert.Equal(t, "--configuration C:/project/phpunit.xml C:/project/tests/UserTest.php", b.String())
	})
}

func TestBuilder_PathMappings(t *testing.T) {
	t.Run("should replace workspace placeholder and map case-insensitively", func(t *testing.T) {
		// Given
		b := New().
			WithConfig("/Home/Dev/Project/phpunit.xml").
			AddDirectoryOrFile("/home/dev/project/tests/UserTest.php").
			WithPathMappings([]PathMapping{{Local: WorkspaceFolderVar, Remote: "/app"}}, "/home/dev/project")

		// When
		got := b.String()

		// Then
		assert.Equal(t, "--configuration /app/phpunit.xml /app/tests/UserTest.php", got)
	})

	t.Run("should apply mappings in insertion order on substituted strings", func(t *testing.T) {
		// Given: the second key only matches after the first substitution
		mappings := []PathMapping{
			{Local: "/ws", Remote: "/stage"},
			{Local: "/stage/tests", Remote: "/remote/tests"},
		}
		b := New().AddDirectoryOrFile("/ws/tests/FooTest.php").WithPathMappings(mappings, "")

		assert.Equal(t, []string{"/remote/tests/FooTest.php"}, b.Args())
	})

	t.Run("should leave unmapped paths alone", func(t *testing.T) {
		b := New().
			AddDirectoryOrFile("/other/tests/FooTest.php").
			WithPathMappings([]PathMapping{{Local: "/ws", Remote: "/app"}}, "")

		assert.Equal(t, []string{"/other/tests/FooTest.php"}, b.Args())
	})

	t.Run("should normalize separators in mapping keys", func(t *testing.T) {
		b := New().
			AddDirectoryOrFile(`C:\ws\tests\FooTest.php`).
			WithPathMappings([]PathMapping{{Local: `${workspaceFolder}\tests`, Remote: "/app/tests"}}, `C:\ws`)

		assert.Equal(t, []string{"/app/tests/FooTest.php"}, b.Args())
	})

	t.Run("should expand the workspace variable in any case", func(t *testing.T) {
		b := New().
			AddDirectoryOrFile("/ws/tests/FooTest.php").
			WithPathMappings([]PathMapping{{Local: "${WorkspaceFolder}/tests", Remote: "/app/tests"}}, "/ws")

		assert.Equal(t, []string{"/app/tests/FooTest.php"}, b.Args())
	})

	t.Run("should treat regexp metacharacters in keys literally", func(t *testing.T) {
		b := New().
			AddDirectoryOrFile("/ws/a+b/tests").
			WithPathMappings([]PathMapping{{Local: "/ws/a+b", Remote: "/app"}}, "")

		assert.Equal(t, []string{"/app/tests"}, b.Args())
	})
}

func TestBuilder_Clone(t *testing.T) {
	original := New().AddSuite("Unit").AddArgs([]string{"--debug"})

	clone := original.Clone()
	clone.AddSuite("Integration").AddArgs([]string{"--testdox"})

	assert.Equal(t, []string{"--testsuite", "Unit", "--debug"}, original.Args())
	assert.Equal(t, []string{"--testsuite", "Unit,Integration", "--debug", "--testdox"}, clone.Args())
}

func TestBuilder_Accessors(t *testing.T) {
	b := New().WithConfig(`a\phpunit.xml`).WithFilter("testAdd").AddSuite("Unit").AddDirectoryOrFile("tests")

	assert.Equal(t, "a/phpunit.xml", b.ConfigFile())
	assert.Equal(t, "testAdd", b.Filter())
	assert.Equal(t, []string{"Unit"}, b.Suites())
	assert.Equal(t, []string{"tests"}, b.DirectoryOrFiles())

	suites := b.Suites()
	suites[0] = "changed"
	if !reflect.DeepEqual(b.Suites(), []string{"Unit"}) {
		t.Error("Suites should return a copy")
	}
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{"", "", false},
		{"never", ColorsNever, false},
		{"auto", ColorsAuto, false},
		{"always", ColorsAlways, false},
		{"sometimes", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColorMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.in))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilder_JSON(t *testing.T) {
	t.Run("should restore a builder that serializes identically", func(t *testing.T) {
		// Given
		b := New().
			WithConfig("/ws/phpunit.xml").
			AddSuite("Unit").
			WithFilter("testAdd").
			AddArgs([]string{"--testdox"}).
			WithPathMappings([]PathMapping{{Local: WorkspaceFolderVar, Remote: "/app"}}, "/ws")

		// When
		data, err := json.Marshal(b)
		require.NoError(t, err)
		var restored Builder
		require.NoError(t, json.Unmarshal(data, &restored))

		// Then
		assert.Equal(t, b.Args(), restored.Args())
	})

	t.Run("should reject an unknown color mode", func(t *testing.T) {
		var b Builder

		err := json.Unmarshal([]byte(`{"color":"rainbow"}`), &b)

		assert.Error(t, err)
	})
}
