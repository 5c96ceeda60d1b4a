package toolchain

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Artifact file extensions.
const (
	NativeExt = ".gcc"
	TargetExt = ".wasm"
)

// Artifacts maps test names to artifact paths in the build directory.
// Artifacts are overwritten on every run and left on disk afterwards.
type Artifacts struct {
	BuildDir string
}

// Native returns the path of the reference compiler's executable.
func (a Artifacts) Native(name string) string {
	return filepath.Join(a.BuildDir, name+NativeExt)
}

// Target returns the path of the compiler under test's output.
func (a Artifacts) Target(name string) string {
	return filepath.Join(a.BuildDir, name+TargetExt)
}

// TargetDigest returns the xxhash64 of the target artifact as 16 hex
// digits, or "" when the artifact does not exist.
func (a Artifacts) TargetDigest(name string) (string, error) {
	f, err := os.Open(a.Target(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
