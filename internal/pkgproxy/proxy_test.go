package pkgproxy

import (
	"archive/tar"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/diag"
	"vellum/internal/pkgcache"
	"vellum/internal/source"
)

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

const demoManifest = "[package]\nname = \"demo\"\nversion = \"0.1.0\"\nentrypoint = \"lib.typ\"\n"

type fixture struct {
	server *httptest.Server
	hits   atomic.Int32
	proxy  *Proxy
	log    *diag.Collector
	cache  string
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{log: diag.NewCollector(), cache: t.TempDir()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	f.proxy = New(Config{
		CacheDir:     f.cache,
		DataDirs:     []string{},
		BaseURL:      f.server.URL,
		AllowPreview: true,
		RetryWait:    time.Millisecond,
		Logger:       f.log,
	})
	return f
}

func serveArchive(body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo-0.1.0.tar.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}
}

func notes(c *diag.Collector) []string {
	var out []string
	for _, e := range c.Entries() {
		out = append(out, e.Message)
	}
	return out
}

func TestResolvePreviewDownloadsAndCaches(t *testing.T) {
	f := newFixture(t, serveArchive(tarball(t, map[string]string{
		"typst.toml": demoManifest,
		"lib.typ":    "hello from demo",
		"src/a.typ":  "nested",
	})))

	dir := f.proxy.ResolveLocalPath("preview", "demo", "0.1.0")
	require.Equal(t, pkgcache.Success, f.proxy.Error(), f.proxy.ErrorMessage())
	assert.Equal(t, filepath.Join(f.cache, "preview", "demo", "0.1.0"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "lib.typ"))
	require.NoError(t, err)
	assert.Equal(t, "hello from demo", string(data))
	assert.FileExists(t, filepath.Join(dir, "src", "a.typ"))
	assert.NoFileExists(t, filepath.Join(f.cache, "preview", ".lock"))

	assert.Equal(t, []string{
		"downloading " + f.server.URL + "/demo-0.1.0.tar.gz ...",
		"download complete",
	}, notes(f.log))

	again := f.proxy.ResolveLocalPath("preview", "demo", "0.1.0")
	assert.Equal(t, dir, again)
	assert.Equal(t, int32(1), f.hits.Load())
}

func TestResolvePreviewFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		code    pkgcache.ErrorCode
	}{
		{
			name:    "not found",
			handler: http.NotFound,
			code:    pkgcache.NotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			code: pkgcache.NetworkError,
		},
		{
			name:    "not an archive",
			handler: serveArchive([]byte("plain text")),
			code:    pkgcache.ArchiveError,
		},
		{
			name: "escaping entry",
			handler: serveArchive(tarball(t, map[string]string{
				"typst.toml":    demoManifest,
				"../outside.go": "x",
			})),
			code: pkgcache.ArchiveError,
		},
		{
			name: "missing manifest",
			handler: serveArchive(tarball(t, map[string]string{
				"lib.typ": "x",
			})),
			code: pkgcache.ParseError,
		},
		{
			name: "manifest mismatch",
			handler: serveArchive(tarball(t, map[string]string{
				"typst.toml": "[package]\nname = \"other\"\nversion = \"0.1.0\"\n",
			})),
			code: pkgcache.ParseError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.handler)
			dir := f.proxy.ResolveLocalPath("preview", "demo", "0.1.0")
			assert.Empty(t, dir)
			assert.Equal(t, tt.code, f.proxy.Error(), f.proxy.ErrorMessage())
			assert.NotEmpty(t, f.proxy.ErrorMessage())
			assert.NoDirExists(t, filepath.Join(f.cache, "preview", "demo", "0.1.0"))
			assert.NoFileExists(t, filepath.Join(f.cache, "preview", "demo-0.1.0.tar.gz"))
		})
	}
}

func TestResolvePreviewNotAllowed(t *testing.T) {
	f := newFixture(t, http.NotFound)
	f.proxy.SetAllowPreview(false)

	assert.Empty(t, f.proxy.ResolveLocalPath("preview", "demo", "0.1.0"))
	assert.Equal(t, pkgcache.NotAllowed, f.proxy.Error())
	assert.Contains(t, f.proxy.ErrorMessage(), "disabled in application settings")
	assert.Zero(t, f.hits.Load())
}

func TestResolvePreviewLockTimeout(t *testing.T) {
	f := newFixture(t, http.NotFound)
	f.proxy.cfg.LockTimeout = 20 * time.Millisecond
	require.NoError(t, os.MkdirAll(filepath.Join(f.cache, "preview"), 0o755))
	release, err := acquireLock(filepath.Join(f.cache, "preview", ".lock"), time.Second)
	require.NoError(t, err)
	defer release()

	assert.Empty(t, f.proxy.ResolveLocalPath("preview", "demo", "0.1.0"))
	assert.Equal(t, pkgcache.IOError, f.proxy.Error())
	assert.Equal(t, "failed to lock the package cache directory", f.proxy.ErrorMessage())
	assert.Zero(t, f.hits.Load())
}

func TestResolvePreviewIgnoresLeftoverLockFile(t *testing.T) {
	f := newFixture(t, http.NotFound)
	f.proxy.cfg.LockTimeout = 200 * time.Millisecond
	require.NoError(t, os.MkdirAll(filepath.Join(f.cache, "preview"), 0o755))
	// left behind by a process that died mid-download
	require.NoError(t, os.WriteFile(filepath.Join(f.cache, "preview", ".lock"), nil, 0o644))

	assert.Empty(t, f.proxy.ResolveLocalPath("preview", "demo", "0.1.0"))
	assert.Equal(t, pkgcache.NotFound, f.proxy.Error())
	assert.EqualValues(t, 1, f.hits.Load())

	// the lock is free again after the call
	release, err := acquireLock(filepath.Join(f.cache, "preview", ".lock"), 0)
	require.NoError(t, err)
	release()
}

func TestResolveLocalNamespace(t *testing.T) {
	data := t.TempDir()
	installed := filepath.Join(data, "typst", "packages", "local", "notes", "1.2.0")
	require.NoError(t, os.MkdirAll(installed, 0o755))

	p := New(Config{DataDirs: []string{t.TempDir(), data}})
	assert.Equal(t, installed, p.ResolveLocalPath("local", "notes", "1.2.0"))
	assert.Equal(t, pkgcache.Success, p.Error())

	assert.Empty(t, p.ResolveLocalPath("local", "notes", "2.0.0"))
	assert.Equal(t, pkgcache.NotFound, p.Error())

	// успешный вызов сбрасывает прошлую ошибку
	p.ResolveLocalPath("local", "notes", "1.2.0")
	assert.Equal(t, pkgcache.Success, p.Error())
	assert.Empty(t, p.ErrorMessage())
}

func TestCacheResolvesThroughProxy(t *testing.T) {
	f := newFixture(t, serveArchive(tarball(t, map[string]string{
		"typst.toml": demoManifest,
		"lib.typ":    "x",
	})))
	cache := pkgcache.New(f.proxy)
	spec, err := source.ParsePackageSpec("@preview/demo:0.1.0")
	require.NoError(t, err)

	root, err := cache.Resolve(spec)
	require.NoError(t, err)
	assert.DirExists(t, root)

	f.proxy.SetAllowPreview(false)
	again, err := cache.Resolve(spec)
	require.NoError(t, err)
	assert.Equal(t, root, again)

	cache.Discard()
	_, err = cache.Resolve(spec)
	assert.ErrorIs(t, err, pkgcache.ErrNotAllowed)
}

const indexJSON = `[
	{"name": "demo", "version": "0.1.0", "description": "A demo"},
	{"name": "demo", "version": "0.2.0", "description": "A demo"},
	{"name": "tables", "version": "1.0.0", "description": "Tables"}
]`

func serveIndex(body string) http.HandlerFunc {
	modified := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/index.json" {
			http.NotFound(w, r)
			return
		}
		if since, err := http.ParseTime(r.Header.Get("If-Modified-Since")); err == nil && !modified.After(since) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
		_, _ = w.Write([]byte(body))
	}
}

func TestListPackages(t *testing.T) {
	f := newFixture(t, serveIndex(indexJSON))

	entries := f.proxy.ListPackages()
	require.Equal(t, pkgcache.Success, f.proxy.Error(), f.proxy.ErrorMessage())
	require.Len(t, entries, 3)
	assert.Equal(t, pkgcache.Entry{Name: "tables", Version: "1.0.0", Description: "Tables"}, entries[2])
	assert.FileExists(t, filepath.Join(f.cache, "preview", "index.json"))
	assert.FileExists(t, filepath.Join(f.cache, "preview", "index.mp"))

	f.log.Drain()
	again := f.proxy.ListPackages()
	assert.Equal(t, entries, again)
	assert.Contains(t, notes(f.log), "no changes")

	f.server.Close()
	offline := f.proxy.ListPackages()
	assert.Equal(t, pkgcache.Success, f.proxy.Error())
	assert.Equal(t, entries, offline)
}

func TestListPackagesFailures(t *testing.T) {
	f := newFixture(t, serveIndex("{not json"))
	assert.Nil(t, f.proxy.ListPackages())
	assert.Equal(t, pkgcache.ParseError, f.proxy.Error())
	assert.Contains(t, f.proxy.ErrorMessage(), "failed to parse package index")

	f.server.Close()
	assert.Nil(t, f.proxy.ListPackages())
	assert.Equal(t, pkgcache.NetworkError, f.proxy.Error())
}

func TestIndexSchemaMismatchFallsBackToJSON(t *testing.T) {
	f := newFixture(t, serveIndex(indexJSON))
	require.Len(t, f.proxy.ListPackages(), 3)

	raw, parsed := f.proxy.indexPaths()
	require.NoError(t, os.WriteFile(parsed, []byte("garbage"), 0o644))
	entries, ok := f.proxy.cachedIndex(raw, parsed)
	require.True(t, ok)
	assert.Len(t, entries, 3)

	require.NoError(t, f.proxy.DropIndex())
	assert.NoFileExists(t, raw)
	assert.NoFileExists(t, parsed)
}

func TestStats(t *testing.T) {
	f := newFixture(t, serveArchive(tarball(t, map[string]string{
		"typst.toml": demoManifest,
		"lib.typ":    "0123456789",
	})))
	st, err := f.proxy.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)

	require.NotEmpty(t, f.proxy.ResolveLocalPath("preview", "demo", "0.1.0"))
	require.NoError(t, os.MkdirAll(filepath.Join(f.cache, "preview", "demo", "0.2.0"), 0o755))

	st, err = f.proxy.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Packages)
	assert.Equal(t, 2, st.Versions)
	assert.Greater(t, st.TotalSize, int64(len(demoManifest)+10))
}

func TestEntryPath(t *testing.T) {
	root := t.TempDir()
	_, err := entryPath(root, "../x")
	assert.ErrorIs(t, err, errEscapes)
	_, err = entryPath(root, "/etc/passwd")
	assert.ErrorIs(t, err, errEscapes)
	p, err := entryPath(root, "a/../b/c.typ")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "b", "c.typ"), p)
}
