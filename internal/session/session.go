// Package session wires a session host, the draft backend, the package proxy
// and the compile engine together from a configuration.
package session

import (
	"log/slog"
	"strings"

	"vellum/internal/config"
	"vellum/internal/diag"
	"vellum/internal/docref"
	"vellum/internal/engine"
	"vellum/internal/fonts"
	"vellum/internal/pkgproxy"
	"vellum/internal/textbackend"
	"vellum/internal/world"
)

// Options configures Open.
type Options struct {
	// Root is the document directory; empty for unsaved documents.
	Root   string
	Config config.Config
	// Logger receives compile output and package download notes. Nil sends
	// them to Slog.
	Logger diag.Logger
	Slog   *slog.Logger
}

// Session bundles the parts of one editing session.
type Session struct {
	World   *world.World
	Engine  *engine.Engine
	Proxy   *pkgproxy.Proxy
	Backend *textbackend.Backend
}

// Open creates a session with an empty main buffer.
func Open(opts Options) *Session {
	log := opts.Slog
	if log == nil {
		log = slog.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = diag.NewSlogLogger(log.With("component", "session"))
	}
	cfg := opts.Config

	cacheDir := cfg.PackageCacheDir
	if cacheDir == "" {
		cacheDir = pkgproxy.DefaultCacheDir()
	}
	proxy := pkgproxy.New(pkgproxy.Config{
		CacheDir:     cacheDir,
		BaseURL:      strings.TrimSuffix(cfg.PackageRepositoryURL, "/"),
		IndexURL:     cfg.PackageIndexURL,
		AllowPreview: cfg.AllowPreviewPackages,
		RetryMax:     2,
		Logger:       logger,
		Slog:         log.With("component", "pkgproxy"),
	})

	backend := textbackend.New()
	w := world.New(world.Config{
		Root:           opts.Root,
		Proxy:          proxy,
		AllowedPaths:   cfg.AllowedPaths,
		DocumentPortal: cfg.DocumentPortal,
		Fonts: fonts.Options{
			Builtin: true,
			Paths:   cfg.FontPaths,
			System:  cfg.SystemFonts,
		},
		Library: backend.Library(),
		Logger:  log,
	})

	var docOpts []docref.Option
	if cfg.DocsURL != "" {
		docOpts = append(docOpts, docref.WithBaseURL(cfg.DocsURL))
	}
	eng := engine.New(w, backend, logger,
		engine.WithDocs(docref.New(backend, docOpts...)),
		engine.WithSlog(log),
	)
	return &Session{World: w, Engine: eng, Proxy: proxy, Backend: backend}
}
