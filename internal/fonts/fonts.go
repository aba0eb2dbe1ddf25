// Package fonts enumerates the fonts available to a session. The set is
// built once and never changes; font bytes are read on first use.
package fonts

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// Style is the slant of a face.
type Style uint8

const (
	StyleNormal Style = iota
	StyleItalic
	StyleOblique
)

func (s Style) String() string {
	switch s {
	case StyleItalic:
		return "italic"
	case StyleOblique:
		return "oblique"
	default:
		return "normal"
	}
}

// Info describes one face.
type Info struct {
	Family string
	Style  Style
	Weight int
	// Source is the file path, or "embedded:<name>" / "builtin:<n>".
	Source string
	// Index is the face index inside a collection file.
	Index int
}

// Book is the immutable catalogue of faces; indices are stable for the
// lifetime of the Set.
type Book struct {
	infos []Info
}

// Len returns the number of faces.
func (b *Book) Len() int { return len(b.infos) }

// Info returns the face at index i.
func (b *Book) Info(i int) (Info, bool) {
	if i < 0 || i >= len(b.infos) {
		return Info{}, false
	}
	return b.infos[i], true
}

// Families returns the distinct family names in catalogue order.
func (b *Book) Families() []string {
	var out []string
	for _, info := range b.infos {
		if !slices.Contains(out, info.Family) {
			out = append(out, info.Family)
		}
	}
	return out
}

// Select returns the face of family (case-insensitive) closest to the
// requested style and weight.
func (b *Book) Select(family string, style Style, weight int) (int, bool) {
	best, bestScore := -1, 0
	for i, info := range b.infos {
		if !strings.EqualFold(info.Family, family) {
			continue
		}
		score := abs(info.Weight - weight)
		if info.Style != style {
			score += 1000
		}
		if best < 0 || score < bestScore {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Font is a loaded face.
type Font struct {
	Info Info
	Data []byte
}

type slot struct {
	once sync.Once
	load func() ([]byte, error)
	font *Font
	err  error
}

// Options selects where fonts are searched.
type Options struct {
	// Embedded is searched first, e.g. an embed.FS bundled with the binary.
	Embedded fs.FS
	// Builtin adds the Go font family shipped with golang.org/x/image.
	Builtin bool
	// Paths are extra files or directories.
	Paths []string
	// System enables the platform font directories.
	System bool
	Logger *slog.Logger
}

// Set owns the book and the lazily loaded font data.
type Set struct {
	book  *Book
	slots []*slot
	log   *slog.Logger
}

// Load enumerates fonts according to opts. Unreadable files are skipped.
func Load(opts Options) *Set {
	s := &Set{book: &Book{}, log: opts.Logger}
	if s.log == nil {
		s.log = slog.Default()
	}

	if opts.Embedded != nil {
		_ = fs.WalkDir(opts.Embedded, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !isFontFile(p) {
				return nil
			}
			fsys := opts.Embedded
			s.add("embedded:"+p, path.Base(p), func() ([]byte, error) { return fs.ReadFile(fsys, p) })
			return nil
		})
	}
	if opts.Builtin {
		for i, data := range builtinFonts() {
			s.add("builtin:"+builtinNames[i], builtinNames[i], func() ([]byte, error) { return data, nil })
		}
	}
	for _, p := range opts.Paths {
		s.walk(p)
	}
	if opts.System {
		for _, dir := range systemDirs() {
			s.walk(dir)
		}
	}
	return s
}

// Book returns the immutable catalogue.
func (s *Set) Book() *Book { return s.book }

// Font loads the face at index, reading its file on first use.
func (s *Set) Font(index int) (*Font, bool) {
	if index < 0 || index >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[index]
	sl.once.Do(func() {
		data, err := sl.load()
		if err != nil {
			sl.err = err
			s.log.Warn("failed to load font", "source", s.book.infos[index].Source, "err", err)
			return
		}
		sl.font = &Font{Info: s.book.infos[index], Data: data}
	})
	return sl.font, sl.font != nil
}

func (s *Set) walk(root string) {
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !isFontFile(p) {
			return nil
		}
		s.add(p, filepath.Base(p), func() ([]byte, error) { return os.ReadFile(p) })
		return nil
	})
}

// add registers every face of one file. The file is read once here to learn
// the face names; the bytes are dropped and re-read lazily.
func (s *Set) add(src, name string, load func() ([]byte, error)) {
	data, err := load()
	if err != nil {
		s.log.Debug("skipping unreadable font", "source", src, "err", err)
		return
	}
	for _, info := range describe(data, name) {
		info.Source = src
		s.book.infos = append(s.book.infos, info)
		s.slots = append(s.slots, &slot{load: load})
	}
}

// describe reads the faces of a font or collection file. When the data
// cannot be parsed the family is derived from the file name.
func describe(data []byte, name string) []Info {
	var faces []*sfnt.Font
	if c, err := sfnt.ParseCollection(data); err == nil {
		for i := 0; i < c.NumFonts(); i++ {
			if f, err := c.Font(i); err == nil {
				faces = append(faces, f)
			}
		}
	}
	if len(faces) == 0 {
		return []Info{infoFromFileName(name)}
	}

	var buf sfnt.Buffer
	out := make([]Info, 0, len(faces))
	for i, f := range faces {
		family, err := f.Name(&buf, sfnt.NameIDTypographicFamily)
		if err != nil || family == "" {
			family, err = f.Name(&buf, sfnt.NameIDFamily)
		}
		if err != nil || family == "" {
			out = append(out, infoFromFileName(name))
			continue
		}
		sub, _ := f.Name(&buf, sfnt.NameIDTypographicSubfamily)
		if sub == "" {
			sub, _ = f.Name(&buf, sfnt.NameIDSubfamily)
		}
		info := infoFromSubfamily(sub)
		info.Family = family
		info.Index = i
		out = append(out, info)
	}
	return out
}

func infoFromFileName(name string) Info {
	base := strings.TrimSuffix(name, path.Ext(name))
	family, sub, _ := strings.Cut(base, "-")
	info := infoFromSubfamily(sub)
	info.Family = family
	return info
}

func infoFromSubfamily(sub string) Info {
	lower := strings.ToLower(sub)
	info := Info{Weight: 400}
	switch {
	case strings.Contains(lower, "italic"):
		info.Style = StyleItalic
	case strings.Contains(lower, "oblique"):
		info.Style = StyleOblique
	}
	for _, w := range weightNames {
		if strings.Contains(lower, w.name) {
			info.Weight = w.weight
			break
		}
	}
	return info
}

var weightNames = []struct {
	name   string
	weight int
}{
	{"extralight", 200},
	{"semibold", 600},
	{"extrabold", 800},
	{"thin", 100},
	{"light", 300},
	{"medium", 500},
	{"bold", 700},
	{"black", 900},
}

func isFontFile(p string) bool {
	switch strings.ToLower(path.Ext(filepath.ToSlash(p))) {
	case ".ttf", ".otf", ".ttc", ".otc":
		return true
	}
	return false
}

var builtinNames = []string{"Go-Regular.ttf", "Go-Bold.ttf", "Go-Italic.ttf", "Go-BoldItalic.ttf", "Go-Mono.ttf"}

func builtinFonts() [][]byte {
	return [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF, gomono.TTF}
}

func systemDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Library/Fonts", "/System/Library/Fonts", filepath.Join(home, "Library", "Fonts")}
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	default:
		dirs := []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "share", "fonts"), filepath.Join(home, ".fonts"))
		}
		return dirs
	}
}
