// Package sandbox maps virtual paths of a document onto the real filesystem
// while keeping every access inside the document root or an explicitly
// allowed directory.
package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"vellum/internal/source"
)

var (
	// ErrAccessDenied is returned for paths outside every allowed root.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnsaved is returned when the document has no root directory yet.
	ErrUnsaved = errors.New("unsaved files cannot include external files")
)

// DisplayResolver returns the path a user sees for an actual filesystem path.
// Both are equal unless the process runs behind a path-remapping sandbox.
type DisplayResolver func(actual string) string

// IdentityDisplay is the resolver used outside of remapping sandboxes.
func IdentityDisplay(actual string) string { return actual }

type rootEntry struct {
	actual    string
	displayed string
}

// Sandbox resolves virtual paths against a document root and a list of
// additional allowed directories.
type Sandbox struct {
	display DisplayResolver
	root    rootEntry
	allowed []rootEntry
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithDisplayResolver sets how displayed paths are derived from actual ones.
func WithDisplayResolver(r DisplayResolver) Option {
	return func(s *Sandbox) {
		if r != nil {
			s.display = r
		}
	}
}

// WithDocumentPortal derives displayed paths from the document portal
// extended attribute that Flatpak attaches to exported files.
func WithDocumentPortal() Option {
	return WithDisplayResolver(PortalDisplayPath)
}

// New creates a sandbox rooted at root. An empty root describes a document
// that was never saved.
func New(root string, opts ...Option) *Sandbox {
	s := &Sandbox{display: IdentityDisplay}
	for _, opt := range opts {
		opt(s)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
		s.root = s.entry(root)
	}
	return s
}

func (s *Sandbox) entry(actual string) rootEntry {
	actual = filepath.Clean(actual)
	return rootEntry{actual: actual, displayed: filepath.Clean(s.display(actual))}
}

// Root returns the actual document root, or "" for an unsaved document.
func (s *Sandbox) Root() string { return s.root.actual }

// SetAllowedPaths replaces the list of additional roots. Relative entries are
// ignored.
func (s *Sandbox) SetAllowedPaths(paths []string) {
	allowed := make([]rootEntry, 0, len(paths))
	for _, p := range paths {
		if p == "" || !filepath.IsAbs(p) {
			continue
		}
		allowed = append(allowed, s.entry(p))
	}
	s.allowed = allowed
}

// AllowedPaths returns the actual form of the additional roots, in order.
func (s *Sandbox) AllowedPaths() []string {
	out := make([]string, len(s.allowed))
	for i, e := range s.allowed {
		out[i] = e.actual
	}
	return out
}

// DisplayPath returns how path should be shown to the user.
func (s *Sandbox) DisplayPath(path string) string {
	return s.display(path)
}

// Resolve maps a virtual path of the document onto a real path.
func (s *Sandbox) Resolve(p source.VirtualPath) (string, error) {
	if s.root.actual == "" {
		return "", ErrUnsaved
	}

	displayed := joinAndNormalize(s.root.displayed, p)

	candidates := make([]rootEntry, 0, 1+len(s.allowed))
	candidates = append(candidates, s.root)
	candidates = append(candidates, s.allowed...)
	for _, root := range candidates {
		rel, ok := stripPathPrefix(displayed, root.displayed)
		if !ok {
			continue
		}
		actual := filepath.Join(root.actual, rel)
		if root.actual != root.displayed && !exists(actual) {
			continue
		}
		return actual, nil
	}
	return "", ErrAccessDenied
}

func joinAndNormalize(base string, p source.VirtualPath) string {
	result := base
	for _, part := range p.Components() {
		switch part {
		case ".", "":
		case "..":
			result = filepath.Dir(result)
		default:
			result = filepath.Join(result, part)
		}
	}
	return result
}

// stripPathPrefix reports whether path lies inside prefix (component-wise) and
// returns the remaining relative part.
func stripPathPrefix(path, prefix string) (string, bool) {
	if path == prefix {
		return "", true
	}
	sep := string(filepath.Separator)
	dir := prefix
	if !strings.HasSuffix(dir, sep) {
		dir += sep
	}
	rest, ok := strings.CutPrefix(path, dir)
	return rest, ok
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
