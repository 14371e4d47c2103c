package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinDir(t *testing.T) {
	root := t.TempDir()
	safe := filepath.Join(root, "safe")
	outside := filepath.Join(root, "outside")
	require.NoError(t, os.MkdirAll(safe, 0o755))
	require.NoError(t, os.MkdirAll(outside, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "users.db"), []byte("x"), 0o644))
	link := filepath.Join(safe, "link")
	require.NoError(t, os.Symlink(outside, link))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(safe, "backup.db"), false},
		{"nested new file", filepath.Join(safe, "a", "b", "plot.png"), false},
		{"dir itself", safe, false},
		{"dotdot escape", filepath.Join(safe, "..", "outside", "users.db"), true},
		{"absolute elsewhere", "/etc/passwd", true},
		{"through symlink", filepath.Join(link, "users.db"), true},
		{"new file through symlink", filepath.Join(link, "new.png"), true},
		{"symlink itself", link, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithinDir(tt.path, safe)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathEscape)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithinAnyDir(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	assert.NoError(t, WithinAnyDir(filepath.Join(b, "x.png"), a, b))
	assert.ErrorIs(t, WithinAnyDir("/etc/hosts", a, b), ErrPathEscape)
	assert.Error(t, WithinAnyDir(filepath.Join(a, "x")))
}

func TestValidateExportPath(t *testing.T) {
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "workout.png")))
	assert.NoError(t, ValidateExportPath("workout.png"))
	assert.Error(t, ValidateExportPath("/etc/workout.png"))
}

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tuning.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"hip_min_deg": 120}`), 0o644))

	assert.NoError(t, ValidateInputFile(cfg, 1024, ".json"))
	assert.NoError(t, ValidateInputFile(cfg, 0))
	assert.ErrorIs(t, ValidateInputFile(cfg, 1024, ".ndjson"), ErrBadExtension)
	assert.ErrorIs(t, ValidateInputFile(cfg, 4, ".json"), ErrFileTooLarge)
	assert.ErrorIs(t, ValidateInputFile(dir, 0), ErrNotRegular)
	assert.Error(t, ValidateInputFile(filepath.Join(dir, "missing.json"), 0, ".json"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"":                         "unknown",
		"workout-2026.png":         "workout-2026.png",
		"../../etc/passwd":         "etc_passwd",
		"a b  c":                   "a_b_c",
		"...":                      "unknown",
		"pushup report (final).db": "pushup_report_final_.db",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "input %q", in)
	}
	assert.LessOrEqual(t, len(SanitizeFilename(strings.Repeat("x", 500))), 128)
}
