package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martin-walls/wasm-testsuite/internal/spec"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"sorted keys", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"control chars", "a\nb\t\x01", `"a\nb\t\u0001"`},
		{"quote and backslash", `"\`, `"\"\\"`},
		{"line separator literal", "\u2028", "\"\u2028\""},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"string slice", []string{"1", "007"}, `["1","007"]`},
		{"nested", map[string]any{"k": []any{true, int64(-2)}}, `{"k":[true,-2]}`},
		{"empty slice", []string{}, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 is the surrogate pair 0xD83D 0xDE00, below U+FF61.
	got, err := MarshalCanonical(map[string]any{"\U0001F600": 1, "\uff61": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"｡\":2}", string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for _, v := range []any{nil, 1.5, map[string]any{"x": nil}, struct{}{}} {
		_, err := MarshalCanonical(v)
		assert.Error(t, err, "%#v", v)
	}
}

func TestSpec_StableAndSensitive(t *testing.T) {
	base := &spec.TestSpec{Name: "fib", Source: "/p/fib.c", Args: []string{"10"}}
	src := []byte("int main(void){return 0;}\n")

	a, err := Spec(base, "/p", src)
	require.NoError(t, err)
	assert.Len(t, a, 64)

	moved := &spec.TestSpec{Name: "fib", Source: "/elsewhere/fib.c", Args: []string{"10"}}
	b, err := Spec(moved, "/elsewhere", src)
	require.NoError(t, err)
	assert.Equal(t, a, b, "checkout location does not matter")

	changes := []struct {
		name string
		s    *spec.TestSpec
		src  []byte
	}{
		{"name", &spec.TestSpec{Name: "fib2", Source: "/p/fib.c", Args: []string{"10"}}, src},
		{"args", &spec.TestSpec{Name: "fib", Source: "/p/fib.c", Args: []string{"010"}}, src},
		{"source path", &spec.TestSpec{Name: "fib", Source: "/p/other.c", Args: []string{"10"}}, src},
		{"source content", base, []byte("int main(void){return 1;}\n")},
	}
	for _, c := range changes {
		got, err := Spec(c.s, "/p", c.src)
		require.NoError(t, err)
		assert.NotEqual(t, a, got, c.name)
	}
}

func TestSpec_NilArgsEqualsEmpty(t *testing.T) {
	src := []byte("x")
	a, err := Spec(&spec.TestSpec{Name: "n", Source: "/p/n.c"}, "/p", src)
	require.NoError(t, err)
	b, err := Spec(&spec.TestSpec{Name: "n", Source: "/p/n.c", Args: []string{}}, "/p", src)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSpecFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fib.c")
	require.NoError(t, os.WriteFile(path, []byte("int main(void){return 0;}\n"), 0644))
	s := &spec.TestSpec{Name: "fib", Source: path, Args: []string{}}

	fromFile, err := SpecFile(s, dir)
	require.NoError(t, err)
	direct, err := Spec(s, dir, []byte("int main(void){return 0;}\n"))
	require.NoError(t, err)
	assert.Equal(t, direct, fromFile)

	_, err = SpecFile(&spec.TestSpec{Name: "gone", Source: filepath.Join(dir, "gone.c")}, dir)
	assert.Error(t, err)
}

func TestRelativeSource(t *testing.T) {
	assert.Equal(t, "sub/a.c", relativeSource("/p", "/p/sub/a.c"))
	assert.Equal(t, "/q/a.c", relativeSource("/p", "/q/a.c"))
}
