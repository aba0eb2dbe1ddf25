package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
allowed_paths = ["/srv/shared", "/opt/templates"]
allow_preview_packages = true
package_cache_dir = "/tmp/pkgs"
font_paths = ["/usr/local/fonts"]
system_fonts = false
docs_url = "https://docs.example.org"
`)
	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/shared", "/opt/templates"}, cfg.AllowedPaths)
	assert.True(t, cfg.AllowPreviewPackages)
	assert.Equal(t, "/tmp/pkgs", cfg.PackageCacheDir)
	assert.Equal(t, []string{"/usr/local/fonts"}, cfg.FontPaths)
	assert.False(t, cfg.SystemFonts)
	assert.Equal(t, "https://docs.example.org", cfg.DocsURL)
	assert.False(t, cfg.DocumentPortal)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Empty(t, cfg.AllowedPaths)
	assert.False(t, cfg.AllowPreviewPackages)
	assert.True(t, cfg.SystemFonts)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "allow_preview_packages = false\n")
	t.Setenv("VELLUM_ALLOW_PREVIEW_PACKAGES", "true")
	t.Setenv("VELLUM_ALLOWED_PATHS", "/a"+string(os.PathListSeparator)+"/b")
	t.Setenv("VELLUM_DOCUMENT_PORTAL", "1")

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.True(t, cfg.AllowPreviewPackages)
	assert.Equal(t, []string{"/a", "/b"}, cfg.AllowedPaths)
	assert.True(t, cfg.DocumentPortal)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(New(), writeConfig(t, "allowed_paths = [\n"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(New(), writeConfig(t, `docs_url = "docs"`))
	assert.ErrorContains(t, err, "docs_url")
}
