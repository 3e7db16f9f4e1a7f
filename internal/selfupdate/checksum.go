// SPDX-License-Identifier: MPL-2.0

package selfupdate

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrChecksumMismatch is wrapped by ChecksumError.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrNoChecksum is returned when checksums.txt has no line for a file.
	ErrNoChecksum = errors.New("no checksum for file")

	errEmptyChecksums = errors.New("checksums file has no valid entries")
)

type (
	// Checksums maps file names to lowercase hex SHA-256 digests.
	Checksums map[string]string

	// ChecksumError reports a file whose digest differs from the published one.
	ChecksumError struct {
		File     string
		Expected string
		Got      string
	}
)

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum of %s is %s, expected %s", e.File, e.Got, e.Expected)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// ParseChecksums reads sha256sum output ("<hex>  <name>" per line). Lines
// that do not match are skipped.
func ParseChecksums(r io.Reader) (Checksums, error) {
	sums := Checksums{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		hash, name, ok := strings.Cut(strings.TrimSpace(sc.Text()), "  ")
		name = strings.TrimPrefix(strings.TrimSpace(name), "*")
		if !ok || name == "" || !isSHA256(hash) {
			continue
		}
		sums[name] = strings.ToLower(hash)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading checksums: %w", err)
	}
	if len(sums) == 0 {
		return nil, errEmptyChecksums
	}
	return sums, nil
}

// Lookup returns the digest published for name.
func (c Checksums) Lookup(name string) (string, error) {
	h, ok := c[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoChecksum, name)
	}
	return h, nil
}

// VerifyFile hashes the file at path and compares it with expected.
func VerifyFile(path, expected string) error {
	got, err := fileSHA256(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, expected) {
		return &ChecksumError{File: path, Expected: strings.ToLower(expected), Got: got}
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isSHA256(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
