package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"vellum/internal/config"
	"vellum/internal/diag"
	"vellum/internal/engine"
	"vellum/internal/session"
	"vellum/internal/source"
	"vellum/internal/world"
)

var errCompileFailed = errors.New("compilation failed")

// globalOptions are the persistent flags merged over the configuration.
type globalOptions struct {
	cfg     config.Config
	root    string
	color   bool
	now     string
	timings bool
}

func loadGlobals(cmd *cobra.Command) (globalOptions, error) {
	flags := cmd.Root().PersistentFlags()

	cfgFile, err := flags.GetString("config")
	if err != nil {
		return globalOptions{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.Load(config.New(), cfgFile)
	if err != nil {
		return globalOptions{}, err
	}
	if cfgFile != "" {
		slog.Debug("using config file", "file", cfgFile)
	}

	allow, err := flags.GetStringSlice("allow-path")
	if err != nil {
		return globalOptions{}, fmt.Errorf("failed to get allow-path flag: %w", err)
	}
	for _, p := range allow {
		abs, err := filepath.Abs(p)
		if err != nil {
			return globalOptions{}, fmt.Errorf("invalid --allow-path %q: %w", p, err)
		}
		cfg.AllowedPaths = append(cfg.AllowedPaths, abs)
	}

	root, err := flags.GetString("root")
	if err != nil {
		return globalOptions{}, fmt.Errorf("failed to get root flag: %w", err)
	}
	colorValue, err := flags.GetString("color")
	if err != nil {
		return globalOptions{}, fmt.Errorf("failed to get color flag: %w", err)
	}
	colorMode, err := readToggle("color", colorValue)
	if err != nil {
		return globalOptions{}, err
	}
	now, err := flags.GetString("now")
	if err != nil {
		return globalOptions{}, fmt.Errorf("failed to get now flag: %w", err)
	}
	timings, err := flags.GetBool("timings")
	if err != nil {
		return globalOptions{}, fmt.Errorf("failed to get timings flag: %w", err)
	}

	return globalOptions{
		cfg:     cfg,
		root:    root,
		color:   colorMode.enabled(os.Stderr),
		now:     now,
		timings: timings,
	}, nil
}

// currentTime is the simulated "now" handed to compiles.
func (g globalOptions) currentTime() string {
	if g.now != "" {
		return g.now
	}
	return time.Now().Format(time.RFC3339)
}

// document is an opened document file with its session.
type document struct {
	path string
	sess *session.Session
	log  *diag.Collector
}

// openDocument loads file into a new session. Session log entries are
// collected and, when echo is set, printed to stderr as they arrive.
func openDocument(g globalOptions, file string, echo bool) (*document, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	root := g.root
	if root == "" {
		root = filepath.Dir(path)
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, err
	}

	doc := &document{path: path, log: diag.NewCollector()}
	var logger diag.Logger = doc.log
	if echo {
		pretty := diag.NewPrettyLogger(os.Stderr, doc.lookup, g.color)
		logger = diag.Multi{pretty, doc.log}
	}
	doc.sess = session.Open(session.Options{
		Root:   root,
		Config: g.cfg,
		Logger: logger,
		Slog:   slog.Default(),
	})
	doc.sess.World.SetSourceText(string(text))
	return doc, nil
}

func (d *document) lookup(file string) (*source.Source, bool) {
	if d.sess == nil || file != world.MainName {
		return nil, false
	}
	return d.sess.World.MainSource(), true
}

// reload replaces the main buffer with the file contents.
func (d *document) reload() error {
	text, err := os.ReadFile(d.path)
	if err != nil {
		return err
	}
	d.sess.World.SetSourceText(string(text))
	d.sess.Engine.DiscardLookupCaches()
	return nil
}

// compile runs one compile and fails when the document has errors.
func (d *document) compile(cmd *cobra.Command, g globalOptions) ([]engine.PageSummary, error) {
	pages := d.sess.Engine.Compile(cmd.Context(), g.currentTime())
	if g.timings {
		printTimings(cmd.ErrOrStderr(), d.sess.Engine.Timings())
	}
	if d.sess.Engine.State() != engine.StateSucceeded {
		return pages, errCompileFailed
	}
	return pages, nil
}
