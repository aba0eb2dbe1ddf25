package fonts

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func TestBuiltinFonts(t *testing.T) {
	set := Load(Options{Builtin: true})
	book := set.Book()
	require.Equal(t, 5, book.Len())
	assert.Contains(t, book.Families(), "Go")

	idx, ok := book.Select("go", StyleNormal, 700)
	require.True(t, ok)
	info, _ := book.Info(idx)
	assert.Equal(t, 700, info.Weight)
	assert.Equal(t, StyleNormal, info.Style)

	idx, ok = book.Select("Go", StyleItalic, 400)
	require.True(t, ok)
	info, _ = book.Info(idx)
	assert.Equal(t, StyleItalic, info.Style)
	assert.Equal(t, 400, info.Weight)
}

func TestEmbeddedAndPathsAreOrdered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken-BoldItalic.otf"), []byte("not a font"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o600))

	embedded := fstest.MapFS{
		"fonts/Go-Regular.ttf": &fstest.MapFile{Data: goregular.TTF},
	}
	set := Load(Options{Embedded: embedded, Paths: []string{dir}})
	book := set.Book()
	require.Equal(t, 2, book.Len())

	first, _ := book.Info(0)
	assert.Equal(t, "embedded:fonts/Go-Regular.ttf", first.Source)
	assert.Equal(t, "Go", first.Family)

	second, _ := book.Info(1)
	assert.Equal(t, "Broken", second.Family, "unparseable fonts fall back to the file name")
	assert.Equal(t, StyleItalic, second.Style)
	assert.Equal(t, 700, second.Weight)
}

func TestFontLoadsLazily(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Go-Regular.ttf")
	require.NoError(t, os.WriteFile(file, goregular.TTF, 0o600))

	set := Load(Options{Paths: []string{file}})
	require.Equal(t, 1, set.Book().Len())

	font, ok := set.Font(0)
	require.True(t, ok)
	assert.Equal(t, goregular.TTF, font.Data)

	require.NoError(t, os.Remove(file))
	again, ok := set.Font(0)
	require.True(t, ok, "loaded data is kept")
	assert.Same(t, font, again)

	_, ok = set.Font(1)
	assert.False(t, ok)
}

func TestFontLoadFailure(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Go-Regular.ttf")
	require.NoError(t, os.WriteFile(file, goregular.TTF, 0o600))

	set := Load(Options{Paths: []string{dir}})
	require.NoError(t, os.Remove(file))
	_, ok := set.Font(0)
	assert.False(t, ok)
}

func TestSelectUnknownFamily(t *testing.T) {
	_, ok := Load(Options{Builtin: true}).Book().Select("Nope", StyleNormal, 400)
	assert.False(t, ok)
}
