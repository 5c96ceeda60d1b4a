package spec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture lays out a programs dir with one C source and returns
// (specDir, programsDir).
func fixture(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	programs := filepath.Join(root, "programs")
	specs := filepath.Join(root, "tests")
	require.NoError(t, os.MkdirAll(programs, 0755))
	require.NoError(t, os.MkdirAll(specs, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(programs, "fib.c"), []byte("int main(void){return 0;}\n"), 0644))
	return specs, programs
}

func writeSpec(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoad_Valid(t *testing.T) {
	specs, programs := fixture(t)
	p := writeSpec(t, specs, "fib.yaml", "name: fibonacci\nsource: fib.c\nargs: [10, 20]\n")

	got, err := Load(p, programs)
	require.NoError(t, err)

	assert.Equal(t, "fibonacci", got.Name)
	assert.Equal(t, filepath.Join(programs, "fib.c"), got.Source)
	assert.True(t, filepath.IsAbs(got.Source))
	assert.Equal(t, []string{"10", "20"}, got.Args)
	assert.Equal(t, p, got.Path)
}

func TestLoad_ArgsDefaults(t *testing.T) {
	specs, programs := fixture(t)

	tests := []struct {
		name    string
		content string
	}{
		{"omitted", "name: a\nsource: fib.c\n"},
		{"null", "name: a\nsource: fib.c\nargs:\n"},
		{"explicit null", "name: a\nsource: fib.c\nargs: null\n"},
		{"empty list", "name: a\nsource: fib.c\nargs: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.content), filepath.Join(specs, "a.yaml"), programs)
			require.NoError(t, err)
			require.NotNil(t, got.Args)
			assert.Empty(t, got.Args)
		})
	}
}

func TestLoad_ArgsKeepLiteralText(t *testing.T) {
	specs, programs := fixture(t)
	content := "name: a\nsource: fib.c\nargs: [007, 1.50, true, \"two words\", -3]\n"

	got, err := Parse([]byte(content), filepath.Join(specs, "a.yaml"), programs)
	require.NoError(t, err)
	assert.Equal(t, []string{"007", "1.50", "true", "two words", "-3"}, got.Args)
}

func TestLoad_UnknownKeysAllowed(t *testing.T) {
	specs, programs := fixture(t)
	content := "name: a\nsource: fib.c\ndescription: ignored\n"

	got, err := Parse([]byte(content), filepath.Join(specs, "a.yaml"), programs)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
}

func TestLoad_Invalid(t *testing.T) {
	specs, programs := fixture(t)
	require.NoError(t, os.MkdirAll(filepath.Join(programs, "subdir"), 0755))

	tests := []struct {
		name      string
		content   string
		wantField string
		wantMsg   string
	}{
		{"missing name", "source: fib.c\n", FieldName, "the 'name' field is required"},
		{"null name", "name:\nsource: fib.c\n", FieldName, "the 'name' field is required"},
		{"empty name", "name: \"\"\nsource: fib.c\n", FieldName, "the 'name' field is required"},
		{"missing source", "name: a\n", FieldSource, "the 'source' field is required"},
		{"numeric name", "name: 42\nsource: fib.c\n", FieldName, "name"},
		{"mapping source", "name: a\nsource: {path: fib.c}\n", FieldSource, "source"},
		{"args not a list", "name: a\nsource: fib.c\nargs: 10\n", FieldArgs, "args"},
		{"nested args", "name: a\nsource: fib.c\nargs: [[1]]\n", FieldArgs, "args"},
		{"source missing", "name: a\nsource: nope.c\n", FieldSource, "source file not found"},
		{"source is directory", "name: a\nsource: subdir\n", FieldSource, "not a regular file"},
		{"not a mapping", "- name: a\n", "", "must be a mapping"},
		{"empty file", "", "", "spec file is empty"},
		{"malformed", "name: [unclosed\n", "", "malformed YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(specs, "bad.yaml")
			_, err := Parse([]byte(tt.content), path, programs)
			require.Error(t, err)
			require.True(t, IsInvalidSpec(err), "want InvalidSpecError, got %T: %v", err, err)

			var ise *InvalidSpecError
			require.ErrorAs(t, err, &ise)
			assert.Equal(t, path, ise.Path)
			assert.Equal(t, tt.wantField, ise.Field)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_UnreadableFile(t *testing.T) {
	_, programs := fixture(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), programs)
	require.Error(t, err)
	assert.False(t, IsInvalidSpec(err))
}

func TestLoad_Pure(t *testing.T) {
	specs, programs := fixture(t)
	p := writeSpec(t, specs, "fib.yaml", "name: fibonacci\nsource: fib.c\nargs: [1]\n")

	first, err := Load(p, programs)
	require.NoError(t, err)
	second, err := Load(p, programs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
