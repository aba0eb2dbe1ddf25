package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/source"
)

func TestResolveUnsavedDocument(t *testing.T) {
	s := New("")
	_, err := s.Resolve(source.NewVirtualPath("a.typ"))
	require.ErrorIs(t, err, ErrUnsaved)
}

func TestResolveInsideRoot(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	got, err := s.Resolve(source.NewVirtualPath("chapters/one.typ"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "chapters", "one.typ"), got)

	got, err = s.Resolve(source.NewVirtualPath("/"))
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestResolveEscapingRootIsDenied(t *testing.T) {
	root := filepath.Join(t.TempDir(), "doc")
	s := New(root)

	for _, p := range []string{"../secret.txt", "../../etc/passwd", "../../../../../../../../x", "../doc-sibling/a"} {
		_, err := s.Resolve(source.NewVirtualPath(p))
		assert.ErrorIs(t, err, ErrAccessDenied, p)
	}
}

func TestResolveAllowedPaths(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "doc")
	shared := filepath.Join(base, "shared")
	s := New(root)
	s.SetAllowedPaths([]string{"relative/ignored", shared})

	assert.Equal(t, []string{shared}, s.AllowedPaths())

	got, err := s.Resolve(source.NewVirtualPath("../shared/logo.png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(shared, "logo.png"), got)

	_, err = s.Resolve(source.NewVirtualPath("../other/logo.png"))
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestResolvedPathsStayUnderRoots(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "a", "doc")
	allowed := filepath.Join(base, "b")
	s := New(root)
	s.SetAllowedPaths([]string{allowed})

	paths := []string{
		"x", "./x", "x/../y", "../doc/x", "../../b/x", "../../b", "../../../b/x",
		"../../a/doc/../../b/z", "..", "../..", "x/y/z/../../../..", "/../../b/c",
	}
	for _, p := range paths {
		got, err := s.Resolve(source.NewVirtualPath(p))
		if err != nil {
			assert.ErrorIs(t, err, ErrAccessDenied, p)
			continue
		}
		under := strings.HasPrefix(got, root) || strings.HasPrefix(got, allowed)
		assert.True(t, under, "%s resolved to %s", p, got)
	}
}

func TestResolveWithDisplayedRoot(t *testing.T) {
	base := t.TempDir()
	actualRoot := filepath.Join(base, "run", "doc", "1234")
	displayedRoot := filepath.Join(base, "home", "user", "thesis")
	require.NoError(t, os.MkdirAll(actualRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(actualRoot, "fig.png"), []byte("png"), 0o644))

	resolver := func(actual string) string {
		if rest, ok := strings.CutPrefix(actual, actualRoot); ok {
			return displayedRoot + rest
		}
		return actual
	}
	s := New(actualRoot, WithDisplayResolver(resolver))
	assert.Equal(t, displayedRoot, s.DisplayPath(actualRoot))

	got, err := s.Resolve(source.NewVirtualPath("fig.png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(actualRoot, "fig.png"), got)

	// When the displayed and actual roots differ a missing file is not a match.
	_, err = s.Resolve(source.NewVirtualPath("missing.png"))
	assert.ErrorIs(t, err, ErrAccessDenied)

	// Going up and back down through the displayed name still works.
	got, err = s.Resolve(source.NewVirtualPath("../thesis/fig.png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(actualRoot, "fig.png"), got)
}

func TestStripPathPrefix(t *testing.T) {
	sep := string(filepath.Separator)
	rest, ok := stripPathPrefix(sep+"a"+sep+"b", sep+"a")
	assert.True(t, ok)
	assert.Equal(t, "b", rest)

	_, ok = stripPathPrefix(sep+"ab", sep+"a")
	assert.False(t, ok, "prefix must match whole components")

	rest, ok = stripPathPrefix(sep+"a", sep)
	assert.True(t, ok)
	assert.Equal(t, "a", rest)
}
