package source

import "strings"

// VirtualPath is a slash separated path rooted at "/" that names a file inside
// the logical filesystem of a document or package. Interior "." and ".."
// segments are resolved on construction; leading ".." segments that would
// climb above the root are kept so a sandbox can decide what they may reach.
type VirtualPath string

// NewVirtualPath normalizes p into a VirtualPath.
func NewVirtualPath(p string) VirtualPath {
	p = strings.ReplaceAll(p, "\\", "/")
	out := make([]string, 0, strings.Count(p, "/")+1)
	for part := range strings.SplitSeq(p, "/") {
		switch part {
		case "", ".":
		case "..":
			if n := len(out); n > 0 && out[n-1] != ".." {
				out = out[:n-1]
			} else {
				out = append(out, part)
			}
		default:
			out = append(out, part)
		}
	}
	return VirtualPath("/" + strings.Join(out, "/"))
}

// Rootless returns the path without its leading slash.
func (p VirtualPath) Rootless() string {
	return strings.TrimPrefix(string(p), "/")
}

// Components splits the rootless path into its segments.
func (p VirtualPath) Components() []string {
	rootless := p.Rootless()
	if rootless == "" {
		return nil
	}
	return strings.Split(rootless, "/")
}

// Escapes reports whether the path starts with ".." and therefore points above
// the root it is resolved against.
func (p VirtualPath) Escapes() bool {
	parts := p.Components()
	return len(parts) > 0 && parts[0] == ".."
}

// Dir returns the directory part of the path.
func (p VirtualPath) Dir() VirtualPath {
	s := string(p)
	idx := strings.LastIndexByte(s, '/')
	if idx <= 0 {
		return "/"
	}
	return VirtualPath(s[:idx])
}

// Join resolves rel against the directory of p. An absolute rel ("/x") is
// taken relative to the root.
func (p VirtualPath) Join(rel string) VirtualPath {
	if strings.HasPrefix(rel, "/") {
		return NewVirtualPath(rel)
	}
	return NewVirtualPath(string(p.Dir()) + "/" + rel)
}

// FileID identifies a file that the compiler may request: either a file of the
// document's own tree, a file inside a package, or a fake file that never
// touches the filesystem (the live editor buffer).
type FileID struct {
	pkg  PackageSpec
	path VirtualPath
	fake bool
}

// NewFileID creates an id for path, optionally inside pkg.
func NewFileID(pkg *PackageSpec, path VirtualPath) FileID {
	id := FileID{path: path}
	if pkg != nil {
		id.pkg = *pkg
	}
	return id
}

// NewFakeID creates an id that is distinct from every filesystem-backed id,
// even one with the same path.
func NewFakeID(name string) FileID {
	return FileID{path: NewVirtualPath(name), fake: true}
}

// Package returns the package the file belongs to, if any.
func (id FileID) Package() (PackageSpec, bool) {
	if id.pkg.IsZero() {
		return PackageSpec{}, false
	}
	return id.pkg, true
}

// Path returns the virtual path of the file.
func (id FileID) Path() VirtualPath { return id.path }

// IsFake reports whether the id was created with NewFakeID.
func (id FileID) IsFake() bool { return id.fake }

// IsZero reports whether id is the zero FileID (no file at all).
func (id FileID) IsZero() bool { return id == FileID{} }

// Join resolves rel relative to this file, staying inside the same package.
func (id FileID) Join(rel string) FileID {
	return FileID{pkg: id.pkg, path: id.path.Join(rel)}
}

// DisplayName renders the id the way diagnostics show it:
// "ns/name@version/path" for package files and the rootless path otherwise.
func (id FileID) DisplayName() string {
	if pkg, ok := id.Package(); ok {
		return pkg.DisplayPrefix() + "/" + id.path.Rootless()
	}
	return id.path.Rootless()
}

func (id FileID) String() string {
	if id.fake {
		return "<" + id.path.Rootless() + ">"
	}
	if pkg, ok := id.Package(); ok {
		return pkg.String() + string(id.path)
	}
	return string(id.path)
}

// LineCol is a zero-based line and UTF-16 column pair.
type LineCol struct {
	Line   int64
	Column int64
}

// NoLineCol is the sentinel used when a position cannot be resolved.
var NoLineCol = LineCol{Line: -1, Column: 0}
