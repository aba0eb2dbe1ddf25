// Package world hosts one editing session: the live main buffer, the
// simulated current date, the font set, and sandboxed access to files and
// packages. It implements typeset.World.
package world

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"vellum/internal/fonts"
	"vellum/internal/pkgcache"
	"vellum/internal/sandbox"
	"vellum/internal/source"
	"vellum/internal/typeset"
)

// MainName is the virtual name of the live editor buffer.
const MainName = "MAIN"

type Config struct {
	// Root is the directory of the document; empty for unsaved documents.
	Root string
	// Proxy acquires packages; nil disables packages.
	Proxy          pkgcache.Proxy
	AllowedPaths   []string
	DocumentPortal bool
	Fonts          fonts.Options
	Library        *typeset.Library
	Logger         *slog.Logger
}

type cachedSource struct {
	hash uint64
	src  *source.Source
}

// World is a session host. It is not safe for concurrent use except for
// package resolution, which the package cache serializes.
type World struct {
	main     source.FileID
	sandbox  *sandbox.Sandbox
	packages *pkgcache.Cache
	library  *typeset.Library
	fonts    *fonts.Set
	log      *slog.Logger

	src    *source.Source
	now    time.Time
	hasNow bool

	files map[source.FileID]cachedSource
}

var _ typeset.World = (*World)(nil)

// New creates a session with an empty main buffer. Fonts are enumerated here
// and never change afterwards.
func New(cfg Config) *World {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	var opts []sandbox.Option
	if cfg.DocumentPortal {
		opts = append(opts, sandbox.WithDocumentPortal())
	}
	sb := sandbox.New(cfg.Root, opts...)
	sb.SetAllowedPaths(cfg.AllowedPaths)

	lib := cfg.Library
	if lib == nil {
		lib = &typeset.Library{Global: typeset.NewScope(), Std: typeset.NewScope(), FuncType: typeset.NewScope()}
	}
	fontOpts := cfg.Fonts
	if fontOpts.Logger == nil {
		fontOpts.Logger = log
	}

	main := source.NewFakeID(MainName)
	return &World{
		main:     main,
		sandbox:  sb,
		packages: pkgcache.New(cfg.Proxy),
		library:  lib,
		fonts:    fonts.Load(fontOpts),
		log:      log,
		src:      source.New(main, ""),
		files:    make(map[source.FileID]cachedSource),
	}
}

func (w *World) Library() *typeset.Library { return w.library }
func (w *World) Book() *fonts.Book         { return w.fonts.Book() }
func (w *World) Main() source.FileID       { return w.main }

// MainSource returns the live buffer.
func (w *World) MainSource() *source.Source { return w.src }

func (w *World) Font(index int) (*fonts.Font, bool) { return w.fonts.Font(index) }

// SetSourceText replaces the whole main buffer.
func (w *World) SetSourceText(text string) {
	w.src.Replace(text)
}

// ApplyEdit replaces the UTF-16 range [from, to) of the main buffer. An edit
// whose offsets cannot be mapped is dropped and false is returned.
func (w *World) ApplyEdit(from, to int, text string) bool {
	start, ok := w.src.UTF16ToByte(from)
	if !ok {
		return false
	}
	end, ok := w.src.UTF16ToByte(to)
	if !ok {
		return false
	}
	return w.src.Edit(start, end, text)
}

// ResetCurrentDate sets the simulated "now". An unparseable value leaves the
// date unset.
func (w *World) ResetCurrentDate(now string) {
	w.now, w.hasNow = parseTimestamp(now)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Today returns the simulated date. With an offset the timestamp is first
// converted to that whole-hour UTC offset; offsets outside ±23 yield false.
func (w *World) Today(offset *int64) (time.Time, bool) {
	if !w.hasNow {
		return time.Time{}, false
	}
	t := w.now
	if offset != nil {
		hours := *offset
		if hours < -23 || hours > 23 {
			return time.Time{}, false
		}
		t = t.In(time.FixedZone("", int(hours)*3600))
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()), true
}

// SetAllowedPaths replaces the additional sandbox roots.
func (w *World) SetAllowedPaths(paths []string) {
	w.sandbox.SetAllowedPaths(paths)
}

// AllowedPaths returns the additional sandbox roots.
func (w *World) AllowedPaths() []string { return w.sandbox.AllowedPaths() }

// DisplayPath returns the user-facing form of a real path.
func (w *World) DisplayPath(path string) string { return w.sandbox.DisplayPath(path) }

// DiscardCaches forgets resolved package roots and cached file sources.
func (w *World) DiscardCaches() {
	w.packages.Discard()
	clear(w.files)
}

// Packages lists the packages of the remote repository.
func (w *World) Packages() ([]pkgcache.Listing, error) {
	return w.packages.Packages()
}

// ResolvePackage returns the local directory of a package.
func (w *World) ResolvePackage(spec source.PackageSpec) (string, error) {
	return w.packages.Resolve(spec)
}

// Source returns the parsed text of id. The main id yields the live buffer.
func (w *World) Source(id source.FileID) (*source.Source, error) {
	if id == w.main {
		return w.src, nil
	}
	data, err := w.read(id)
	if err != nil {
		return nil, err
	}
	data, _ = source.RemoveBOM(data)
	if !utf8.Valid(data) {
		return nil, &FileError{Path: id.String(), Err: ErrInvalidUTF8}
	}

	hash := xxhash.Sum64(data)
	if cached, ok := w.files[id]; ok && cached.hash == hash {
		return cached.src, nil
	}
	src := source.New(id, string(data))
	w.files[id] = cachedSource{hash: hash, src: src}
	return src, nil
}

// File returns the raw bytes of id.
func (w *World) File(id source.FileID) ([]byte, error) {
	if id == w.main {
		return []byte(w.src.Text()), nil
	}
	return w.read(id)
}

func (w *World) read(id source.FileID) ([]byte, error) {
	path, err := w.path(id)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return nil, &FileError{Path: path, Err: ErrIsDirectory}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileError{Path: path, Err: ErrNotFound}
		}
		return nil, &FileError{Path: path, Err: fmt.Errorf("%w: %w", ErrIO, err)}
	}
	return data, nil
}

// path maps id onto the filesystem: package files live under the package
// root, everything else goes through the sandbox.
func (w *World) path(id source.FileID) (string, error) {
	if id.IsFake() {
		return "", &FileError{Path: id.String(), Err: ErrNotFound}
	}
	if pkg, ok := id.Package(); ok {
		root, err := w.packages.Resolve(pkg)
		if err != nil {
			return "", err
		}
		if id.Path().Escapes() {
			return "", &FileError{Path: id.String(), Err: sandbox.ErrAccessDenied}
		}
		return filepath.Join(root, filepath.FromSlash(id.Path().Rootless())), nil
	}
	path, err := w.sandbox.Resolve(id.Path())
	if err != nil {
		return "", &FileError{Path: id.String(), Err: err}
	}
	return path, nil
}
