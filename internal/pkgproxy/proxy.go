// Package pkgproxy acquires packages for the package cache: preview packages
// are downloaded from the package repository and unpacked into a local cache
// directory, other namespaces are looked up in the user's data directories.
package pkgproxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"vellum/internal/diag"
	"vellum/internal/pkgcache"
)

// DefaultBaseURL is where preview packages and the package index live.
const DefaultBaseURL = "https://packages.typst.org/preview"

const (
	previewNamespace   = "preview"
	defaultLockTimeout = 30 * time.Second
	userAgent          = "vellum-package-proxy"
)

// Config configures a Proxy. Zero values fall back to the defaults.
type Config struct {
	// CacheDir holds downloaded packages and the cached index.
	CacheDir string
	// DataDirs are searched for packages outside the preview namespace.
	// Nil means the XDG data directories.
	DataDirs []string
	BaseURL  string
	// IndexURL defaults to BaseURL + "/index.json".
	IndexURL     string
	AllowPreview bool

	HTTPClient *http.Client
	RetryMax   int
	RetryWait  time.Duration

	// Logger receives user-facing progress notes.
	Logger diag.Logger
	// Slog receives transport debugging output.
	Slog *slog.Logger

	LockTimeout time.Duration
}

// Proxy implements pkgcache.Proxy. It is not safe for concurrent use; the
// package cache serializes calls.
type Proxy struct {
	cfg    Config
	client *retryablehttp.Client

	code pkgcache.ErrorCode
	msg  string
}

var _ pkgcache.Proxy = (*Proxy)(nil)

// New creates a proxy for cfg.
func New(cfg Config) *Proxy {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.IndexURL == "" {
		cfg.IndexURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/index.json"
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	if cfg.DataDirs == nil {
		cfg.DataDirs = DefaultDataDirs()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	if cfg.RetryWait > 0 {
		client.RetryWaitMin = cfg.RetryWait
		client.RetryWaitMax = cfg.RetryWait
	}
	if cfg.HTTPClient != nil {
		client.HTTPClient = cfg.HTTPClient
	}
	client.Logger = nil
	if cfg.Slog != nil {
		client.Logger = cfg.Slog
	}
	return &Proxy{cfg: cfg, client: client}
}

// DefaultCacheDir returns the per-user package cache directory.
func DefaultCacheDir() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "vellum", "packages")
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "vellum", "packages")
}

// DefaultDataDirs returns the XDG data directories followed by
// ~/.local/share.
func DefaultDataDirs() []string {
	var dirs []string
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		dirs = append(dirs, d)
	}
	if list := os.Getenv("XDG_DATA_DIRS"); list != "" {
		for _, d := range filepath.SplitList(list) {
			if d != "" {
				dirs = append(dirs, d)
			}
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share"))
	}
	return dirs
}

// SetAllowPreview switches preview packages on or off. Disabled preview
// packages are refused even when they are already in the cache directory.
func (p *Proxy) SetAllowPreview(allow bool) { p.cfg.AllowPreview = allow }

// CacheDir returns the directory packages are unpacked into.
func (p *Proxy) CacheDir() string { return p.cfg.CacheDir }

func (p *Proxy) Error() pkgcache.ErrorCode { return p.code }
func (p *Proxy) ErrorMessage() string      { return p.msg }

func (p *Proxy) reset() { p.code, p.msg = pkgcache.Success, "" }

func (p *Proxy) fail(code pkgcache.ErrorCode, format string, args ...any) {
	p.code = code
	p.msg = fmt.Sprintf(format, args...)
}

func (p *Proxy) note(msg string) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Note(msg)
	}
}

// ResolveLocalPath returns the directory holding namespace/name/version,
// downloading preview packages on a miss. On failure it returns "" and
// records the reason.
func (p *Proxy) ResolveLocalPath(namespace, name, version string) string {
	p.reset()
	if namespace == previewNamespace {
		return p.resolvePreview(name, version)
	}
	for _, data := range p.cfg.DataDirs {
		dir := filepath.Join(data, "typst", "packages", namespace, name, version)
		if isDir(dir) {
			return dir
		}
	}
	p.fail(pkgcache.NotFound, "package %s/%s:%s is not installed", namespace, name, version)
	return ""
}

func (p *Proxy) resolvePreview(name, version string) string {
	if !p.cfg.AllowPreview {
		p.fail(pkgcache.NotAllowed, "use of preview packages is disabled in application settings")
		return ""
	}
	if p.cfg.CacheDir == "" {
		p.fail(pkgcache.IOError, "no package cache directory configured")
		return ""
	}

	base := filepath.Join(p.cfg.CacheDir, previewNamespace)
	if err := os.MkdirAll(base, 0o755); err != nil {
		p.fail(pkgcache.IOError, "failed to create the package cache directory: %v", err)
		return ""
	}
	unlock, err := acquireLock(filepath.Join(base, ".lock"), p.cfg.LockTimeout)
	if err != nil {
		p.fail(pkgcache.IOError, "failed to lock the package cache directory")
		return ""
	}
	defer unlock()

	pkgDir := filepath.Join(base, name, version)
	if isDir(pkgDir) {
		return pkgDir
	}

	archive := filepath.Join(base, fmt.Sprintf("%s-%s.tar.gz", name, version))
	if _, err := os.Stat(archive); err != nil {
		url := fmt.Sprintf("%s/%s-%s.tar.gz", p.cfg.BaseURL, name, version)
		if !p.download(url, archive) {
			return ""
		}
	}

	if err := extract(archive, pkgDir); err != nil {
		_ = os.RemoveAll(pkgDir)
		_ = os.Remove(archive)
		p.fail(pkgcache.ArchiveError, "failed to unpack %s: %v", filepath.Base(archive), err)
		return ""
	}
	if err := checkManifest(pkgDir, name, version); err != nil {
		_ = os.RemoveAll(pkgDir)
		_ = os.Remove(archive)
		p.fail(pkgcache.ParseError, "%v", err)
		return ""
	}
	return pkgDir
}

// errNotFound marks a 404 response.
var errNotFound = errors.New("not found")

// download fetches url into dest. The file is written under a temporary
// name and renamed once complete.
func (p *Proxy) download(url, dest string) bool {
	p.note(fmt.Sprintf("downloading %s ...", url))
	err := p.fetch(url, dest)
	switch {
	case errors.Is(err, errNotFound):
		p.fail(pkgcache.NotFound, "%s was not found on the server", url)
		return false
	case err != nil:
		p.fail(pkgcache.NetworkError, "failed to download %s: %v", url, err)
		return false
	}
	p.note("download complete")
	return true
}

func (p *Proxy) fetch(url, dest string) error {
	req, err := retryablehttp.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return writeAtomic(dest, resp.Body)
}

// writeAtomic copies r into path through a temporary file in the same
// directory.
func writeAtomic(path string, r io.Reader) error {
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), path)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
