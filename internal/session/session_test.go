package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/config"
	"vellum/internal/diag"
	"vellum/internal/engine"
)

func errorsOf(c *diag.Collector) []string {
	var out []string
	for _, e := range c.Entries() {
		if e.Kind == diag.KindError {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestOpenCompiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "intro.typ"), []byte("included"), 0o644))
	log := diag.NewCollector()

	s := Open(Options{
		Root:   root,
		Config: config.Config{PackageCacheDir: t.TempDir()},
		Logger: log,
	})
	s.World.SetSourceText("#include \"intro.typ\"\nbody")
	pages := s.Engine.Compile(context.Background(), "2024-05-01")
	require.Len(t, pages, 1)
	assert.Equal(t, engine.StateSucceeded, s.Engine.State())
	assert.Empty(t, errorsOf(log))
}

func TestOpenAppliesPackageSettings(t *testing.T) {
	log := diag.NewCollector()
	s := Open(Options{
		Root:   t.TempDir(),
		Config: config.Config{PackageCacheDir: t.TempDir()},
		Logger: log,
	})
	s.World.SetSourceText("#import \"@preview/demo:0.1.0\"")
	assert.Empty(t, s.Engine.Compile(context.Background(), ""))

	errs := errorsOf(log)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "disabled in application settings")
}

func TestOpenAllowedPaths(t *testing.T) {
	shared := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(shared, "common.typ"), []byte("shared"), 0o644))

	s := Open(Options{
		Root:   t.TempDir(),
		Config: config.Config{AllowedPaths: []string{shared}, PackageCacheDir: t.TempDir()},
	})
	assert.Equal(t, []string{shared}, s.World.AllowedPaths())
}
