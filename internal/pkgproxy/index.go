package pkgproxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/vmihailenco/msgpack/v5"

	"vellum/internal/pkgcache"
)

// Current schema version - increment when indexPayload format changes
const indexSchemaVersion uint16 = 1

type indexEntry struct {
	Name        string `json:"name" msgpack:"name"`
	Version     string `json:"version" msgpack:"version"`
	Description string `json:"description" msgpack:"description"`
}

// indexPayload is the parsed index as cached next to index.json.
type indexPayload struct {
	Schema  uint16
	Fetched time.Time
	Entries []indexEntry
}

func (p *Proxy) indexPaths() (raw, parsed string) {
	dir := filepath.Join(p.cfg.CacheDir, previewNamespace)
	return filepath.Join(dir, "index.json"), filepath.Join(dir, "index.mp")
}

// ListPackages returns the entries of the package index. The index is
// downloaded only when it changed since the cached copy; when the server is
// unreachable the cached copy is used.
func (p *Proxy) ListPackages() []pkgcache.Entry {
	p.reset()
	if p.cfg.CacheDir == "" {
		p.fail(pkgcache.IOError, "no package cache directory configured")
		return nil
	}
	raw, parsed := p.indexPaths()
	if err := os.MkdirAll(filepath.Dir(raw), 0o755); err != nil {
		p.fail(pkgcache.IOError, "failed to create the package cache directory: %v", err)
		return nil
	}

	p.note(fmt.Sprintf("downloading %s ...", p.cfg.IndexURL))
	body, modified, err := p.fetchIndex(raw)
	if err != nil {
		if entries, ok := p.cachedIndex(raw, parsed); ok {
			p.note(fmt.Sprintf("using cached package index: %v", err))
			return entries
		}
		p.fail(pkgcache.NetworkError, "failed to download %s: %v", p.cfg.IndexURL, err)
		return nil
	}
	if body == nil {
		p.note("no changes")
		if entries, ok := p.cachedIndex(raw, parsed); ok {
			return entries
		}
		p.fail(pkgcache.IOError, "package index is not cached")
		return nil
	}
	p.note("download complete")

	entries, err := parseIndex(body)
	if err != nil {
		p.fail(pkgcache.ParseError, "failed to parse package index: %v", err)
		return nil
	}
	if err := writeAtomic(raw, bytes.NewReader(body)); err != nil {
		p.fail(pkgcache.IOError, "failed to store package index: %v", err)
		return nil
	}
	if !modified.IsZero() {
		_ = os.Chtimes(raw, modified, modified)
	}
	_ = storeIndex(parsed, entries)
	return toListing(entries)
}

// fetchIndex downloads the index unless the copy at raw is current, in
// which case it returns a nil body.
func (p *Proxy) fetchIndex(raw string) ([]byte, time.Time, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, p.cfg.IndexURL, nil)
	if err != nil {
		return nil, time.Time{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	if info, err := os.Stat(raw); err == nil {
		req.Header.Set("If-Modified-Since", info.ModTime().UTC().Format(http.TimeFormat))
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return nil, time.Time{}, nil
	case http.StatusOK:
	default:
		return nil, time.Time{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, time.Time{}, err
	}
	modified, _ := http.ParseTime(resp.Header.Get("Last-Modified"))
	return body, modified, nil
}

func parseIndex(body []byte) ([]indexEntry, error) {
	var entries []indexEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// cachedIndex loads the parsed cache, falling back to the raw index.
func (p *Proxy) cachedIndex(raw, parsed string) ([]pkgcache.Entry, bool) {
	if entries, ok := loadIndex(parsed); ok {
		return toListing(entries), true
	}
	body, err := os.ReadFile(raw)
	if err != nil {
		return nil, false
	}
	entries, err := parseIndex(body)
	if err != nil {
		return nil, false
	}
	_ = storeIndex(parsed, entries)
	return toListing(entries), true
}

func storeIndex(path string, entries []indexEntry) error {
	payload := indexPayload{Schema: indexSchemaVersion, Fetched: time.Now(), Entries: entries}
	data, err := msgpack.Marshal(&payload)
	if err != nil {
		return err
	}
	return writeAtomic(path, bytes.NewReader(data))
}

func loadIndex(path string) ([]indexEntry, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var payload indexPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false
	}
	if payload.Schema != indexSchemaVersion {
		return nil, false
	}
	return payload.Entries, true
}

// DropIndex removes the cached index so the next listing downloads it
// again.
func (p *Proxy) DropIndex() error {
	raw, parsed := p.indexPaths()
	var errs []error
	for _, path := range []string{raw, parsed} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func toListing(entries []indexEntry) []pkgcache.Entry {
	out := make([]pkgcache.Entry, len(entries))
	for i, e := range entries {
		out[i] = pkgcache.Entry(e)
	}
	return out
}
