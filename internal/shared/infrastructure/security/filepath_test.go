package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "plain relative path", path: "site.yaml"},
		{name: "nested path", path: "projects/tower-a/site.yaml"},
		{name: "empty path", path: "", wantErr: true},
		{name: "semicolon injection", path: "site.yaml; rm -rf /", wantErr: true},
		{name: "command substitution", path: "$(whoami).yaml", wantErr: true},
		{name: "backtick", path: "`id`.yaml", wantErr: true},
		{name: "pipe", path: "a|b.yaml", wantErr: true},
		{name: "newline", path: "a\nb.yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFilePath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got), "validated path should be absolute")
		})
	}
}

func TestValidateFilePath_ResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.yaml")
	require.NoError(t, os.WriteFile(target, []byte("zones: {}"), 0o600))

	link := filepath.Join(dir, "link.yaml")
	require.NoError(t, os.Symlink(target, link))

	got, err := ValidateFilePath(link)
	require.NoError(t, err)

	wantTarget, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, wantTarget, got)
}

func TestValidateFilePathInDir(t *testing.T) {
	dir := t.TempDir()
	inside := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(inside, []byte("zones: {}"), 0o600))

	t.Run("inside base dir", func(t *testing.T) {
		got, err := ValidateFilePathInDir(inside, dir)
		require.NoError(t, err)
		assert.Contains(t, got, "site.yaml")
	})

	t.Run("traversal out of base dir", func(t *testing.T) {
		_, err := ValidateFilePathInDir(filepath.Join(dir, "..", "escape.yaml"), dir)
		require.Error(t, err)
	})

	t.Run("empty base dir", func(t *testing.T) {
		_, err := ValidateFilePathInDir(inside, "")
		require.Error(t, err)
	})
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Tower A"), 0o600))

	data, err := SafeReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "name: Tower A", string(data))

	_, err = SafeReadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	_, err = SafeReadFile("project.yaml; echo pwned")
	require.Error(t, err)
}

func TestSafeReadFileInDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Tower A"), 0o600))

	data, err := SafeReadFileInDir(path, dir)
	require.NoError(t, err)
	assert.Equal(t, "name: Tower A", string(data))

	_, err = SafeReadFileInDir(filepath.Join(dir, "..", "other.yaml"), dir)
	require.Error(t, err)
}
