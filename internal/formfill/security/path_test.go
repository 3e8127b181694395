package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator_RejectsEmptyDirectory(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	v, err := NewPathValidator(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"inside directory", filepath.Join(dir, "form.pdf"), false},
		{"nested inside", filepath.Join(dir, "a", "b", "form.pdf"), false},
		{"directory itself", dir, false},
		{"outside directory", "/etc/passwd", true},
		{"traversal escape", filepath.Join(dir, "..", "escape.pdf"), true},
		{"empty path", "", true},
		{"null byte", dir + "/a\x00b.pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePath_SkipsWhenDirectoryMissing(t *testing.T) {
	v, err := NewPathValidator(filepath.Join(t.TempDir(), "not-created-yet"))
	require.NoError(t, err)

	// Confinement cannot be enforced against a directory that does not
	// exist, so any path is accepted until it is created.
	assert.NoError(t, v.ValidatePath("/anywhere/at/all.pdf"))
}

func TestValidatePath_RejectsSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	link := filepath.Join(dir, "link.pdf")
	require.NoError(t, os.Symlink(target, link))

	v, err := NewPathValidator(dir)
	require.NoError(t, err)
	assert.Error(t, v.ValidatePath(link), "a symlink pointing outside the directory must be rejected")
}

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	file := filepath.Join(dir, "file.pdf")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	v, err := NewPathValidator(dir)
	require.NoError(t, err)

	assert.NoError(t, v.ValidateDirectory(sub))
	assert.NoError(t, v.ValidateDirectory(filepath.Join(dir, "not-yet-created")))
	assert.Error(t, v.ValidateDirectory(file), "a regular file is not a directory")
	assert.Error(t, v.ValidateDirectory("/tmp-other"))
}

func TestNormalizePath(t *testing.T) {
	dir := t.TempDir()
	v, err := NewPathValidator(dir)
	require.NoError(t, err)

	got, err := v.NormalizePath("forms/w9.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "forms", "w9.pdf"), got)

	_, err = v.NormalizePath("../escape.pdf")
	assert.Error(t, err)
}
