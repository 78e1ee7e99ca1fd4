// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o600))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "video-api-key", "  vk_abc123  \n")
				writeFile(t, dir, "media-api-key", "mk_xyz789")
				writeFile(t, dir, "retail-api-key", "rk_456\n")
				return dir
			},
			want: map[string]string{
				"video-api-key":  "vk_abc123",
				"media-api-key":  "mk_xyz789",
				"retail-api-key": "rk_456",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty and whitespace-only files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "games-api-key", "gk_valid")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"games-api-key": "gk_valid",
			},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
				writeFile(t, dir, "video-api-key", "vk_real")
				return dir
			},
			want: map[string]string{
				"video-api-key": "vk_real",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAPIKeyFor(t *testing.T) {
	loaded := map[string]string{"video-api-key": "vk_1"}

	assert.Equal(t, "vk_1", APIKeyFor(loaded, "video"))
	assert.Empty(t, APIKeyFor(loaded, "trends"))
}
