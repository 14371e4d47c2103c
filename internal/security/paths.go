// Package security holds file path checks for files the server reads or
// writes on behalf of a request or a command-line flag.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrPathEscape   = errors.New("path escapes allowed directory")
	ErrNotRegular   = errors.New("not a regular file")
	ErrFileTooLarge = errors.New("file too large")
	ErrBadExtension = errors.New("unexpected file extension")
)

// canonical resolves symlinks in path. When path does not exist yet the
// nearest existing parent is resolved instead, so a new file under a
// symlinked directory is still judged by where it really lands.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// WithinDir returns ErrPathEscape unless path resolves inside dir.
func WithinDir(path, dir string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	d, err := canonical(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(d, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s is outside %s", ErrPathEscape, path, dir)
	}
	return nil
}

// WithinAnyDir is WithinDir over several candidate directories.
func WithinAnyDir(path string, dirs ...string) error {
	if len(dirs) == 0 {
		return errors.New("no allowed directories specified")
	}
	for _, d := range dirs {
		if WithinDir(path, d) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be within one of %v", ErrPathEscape, path, dirs)
}

// ValidateExportPath accepts paths inside the working directory or the
// system temp directory. Backups and plots are written through it.
func ValidateExportPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return WithinAnyDir(path, cwd, os.TempDir())
}

// ValidateInputFile checks a file named on the command line before it is
// read: it must be a regular file no larger than maxBytes with one of the
// given extensions. An empty exts list accepts any extension.
func ValidateInputFile(path string, maxBytes int64, exts ...string) error {
	clean := filepath.Clean(path)
	if len(exts) > 0 && !slices.Contains(exts, strings.ToLower(filepath.Ext(clean))) {
		return fmt.Errorf("%w: %q (want one of %v)", ErrBadExtension, filepath.Ext(clean), exts)
	}
	fi, err := os.Stat(clean)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	if maxBytes > 0 && fi.Size() > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fi.Size(), maxBytes)
	}
	return nil
}

// SanitizeFilename keeps ASCII letters, digits, dot, underscore and dash,
// collapsing every other run of characters into one underscore. Used when a
// workout id or database name ends up in a download file name.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
