// Package fingerprint computes content hashes that identify what a test
// actually exercised: the spec fields plus the bytes of its source file.
//
// Two runs with equal fingerprints compiled the same program with the same
// arguments, so a change in verdict between them is down to the compiler.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/martin-walls/wasm-testsuite/internal/spec"
)

// DomainSpec prefixes spec fingerprints. Bump the version if the hashed
// fields change.
const DomainSpec = "testsuite/spec/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Spec fingerprints s with the given source content. The source path is
// hashed relative to programsDir, so the result does not depend on where
// the checkout lives.
func Spec(s *spec.TestSpec, programsDir string, source []byte) (string, error) {
	sum := sha256.Sum256(source)
	args := s.Args
	if args == nil {
		args = []string{}
	}

	canonical, err := MarshalCanonical(map[string]any{
		"name":       s.Name,
		"source":     relativeSource(programsDir, s.Source),
		"args":       args,
		"source_sha": hex.EncodeToString(sum[:]),
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", s.Name, err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// SpecFile reads the spec's source file and fingerprints it.
func SpecFile(s *spec.TestSpec, programsDir string) (string, error) {
	source, err := os.ReadFile(s.Source)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", s.Name, err)
	}
	return Spec(s, programsDir, source)
}

// relativeSource returns source relative to programsDir using forward
// slashes, or the cleaned absolute path when it lies outside.
func relativeSource(programsDir, source string) string {
	rel, err := filepath.Rel(programsDir, source)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(source))
	}
	return filepath.ToSlash(rel)
}
