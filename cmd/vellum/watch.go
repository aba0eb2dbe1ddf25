package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vellum/internal/engine"
	"vellum/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:          "watch <file>",
	Short:        "Recompile a document whenever it or its directory changes",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runWatch,
}

func init() {
	watchCmd.Flags().String("ui", "auto", "interactive status view (auto|on|off)")
	watchCmd.Flags().Duration("debounce", 100*time.Millisecond, "quiet period before recompiling")
}

func runWatch(cmd *cobra.Command, args []string) error {
	g, err := loadGlobals(cmd)
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	uiMode, err := readToggle("ui", uiValue)
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}
	if debounce <= 0 {
		return fmt.Errorf("--debounce must be positive")
	}
	useTUI := uiMode.enabled(os.Stdout)

	doc, err := openDocument(g, args[0], !useTUI)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()
	for _, dir := range watchDirs(doc.path, g.root) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		slog.Debug("watching directory", "dir", dir)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	w := &docWatcher{
		doc:      doc,
		g:        g,
		watcher:  watcher,
		debounce: debounce,
		events:   make(chan ui.Event, 16),
	}
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer close(w.events)
		return w.run(gctx)
	})
	if useTUI {
		group.Go(func() error {
			// the watcher stops once the view is closed
			defer cancel()
			_, err := tea.NewProgram(ui.NewWatchModel(filepath.Base(doc.path), w.events)).Run()
			return err
		})
	} else {
		group.Go(func() error {
			for ev := range w.events {
				printEvent(cmd.OutOrStdout(), ev)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchDirs lists the directories to watch: the document directory and
// the document root when it differs.
func watchDirs(docPath, root string) []string {
	dirs := []string{filepath.Dir(docPath)}
	if root == "" {
		return dirs
	}
	if abs, err := filepath.Abs(root); err == nil && abs != dirs[0] {
		dirs = append(dirs, abs)
	}
	return dirs
}

type docWatcher struct {
	doc      *document
	g        globalOptions
	watcher  *fsnotify.Watcher
	debounce time.Duration
	events   chan ui.Event
}

func (w *docWatcher) run(ctx context.Context) error {
	if !w.recompile(ctx, "") {
		return nil
	}

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending string
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevantChange(ev) {
				continue
			}
			pending = ev.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				defer timer.Stop()
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "err", err)
		case <-timerC:
			timerC = nil
			if !w.recompile(ctx, w.display(pending)) {
				return nil
			}
		}
	}
}

// recompile reloads the document and compiles it, reporting every step.
// It returns false once nobody listens for events anymore.
func (w *docWatcher) recompile(ctx context.Context, changed string) bool {
	if changed != "" && !w.emit(ctx, ui.Event{Kind: ui.EventChanged, File: changed}) {
		return false
	}
	if err := w.doc.reload(); err != nil {
		// editors often replace the file in two steps; the next event retries
		slog.Debug("failed to reload document", "err", err)
		return true
	}
	if !w.emit(ctx, ui.Event{Kind: ui.EventCompiling}) {
		return false
	}

	w.doc.log.Drain()
	start := time.Now()
	pages := w.doc.sess.Engine.Compile(ctx, w.g.currentTime())
	kind := ui.EventCompiled
	if w.doc.sess.Engine.State() != engine.StateSucceeded {
		kind = ui.EventFailed
	}
	return w.emit(ctx, ui.Event{
		Kind:    kind,
		Pages:   len(pages),
		Elapsed: time.Since(start),
		Entries: w.doc.log.Drain(),
	})
}

func (w *docWatcher) emit(ctx context.Context, ev ui.Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *docWatcher) display(name string) string {
	if rel, err := filepath.Rel(filepath.Dir(w.doc.path), name); err == nil {
		return filepath.ToSlash(rel)
	}
	return name
}

// relevantChange drops chmod-only events and editor scratch files.
func relevantChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

// printEvent is the plain-output counterpart of the watch view. Log
// entries are already echoed as they arrive.
func printEvent(out io.Writer, ev ui.Event) {
	switch ev.Kind {
	case ui.EventChanged:
		fmt.Fprintf(out, "changed: %s\n", ev.File)
	case ui.EventCompiled:
		fmt.Fprintf(out, "compiled %d page(s) in %.1f ms\n", ev.Pages, float64(ev.Elapsed)/float64(time.Millisecond))
	case ui.EventFailed:
		fmt.Fprintln(out, "compilation failed")
	}
}
