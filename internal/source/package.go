package source

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// PackageVersion is a strict major.minor.patch version.
type PackageVersion struct {
	Major uint64
	Minor uint64
	Patch uint64
}

// ParsePackageVersion parses a strict semantic version without pre-release or
// build metadata.
func ParsePackageVersion(s string) (PackageVersion, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(s))
	if err != nil {
		return PackageVersion{}, fmt.Errorf("invalid package version %q: %w", s, err)
	}
	if v.Prerelease() != "" || v.Metadata() != "" {
		return PackageVersion{}, fmt.Errorf("invalid package version %q: pre-release and metadata are not allowed", s)
	}
	return PackageVersion{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}, nil
}

func (v PackageVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// PackageSpec uniquely identifies a package. It is a comparable value and is
// used directly as a map key.
type PackageSpec struct {
	Namespace string
	Name      string
	Version   PackageVersion
}

// ParsePackageSpec parses the import form "@namespace/name:version".
func ParsePackageSpec(s string) (PackageSpec, error) {
	rest, ok := strings.CutPrefix(s, "@")
	if !ok {
		return PackageSpec{}, fmt.Errorf("package specification %q must start with '@'", s)
	}
	ns, rest, ok := strings.Cut(rest, "/")
	if !ok || ns == "" {
		return PackageSpec{}, fmt.Errorf("package specification %q is missing a namespace", s)
	}
	name, ver, ok := strings.Cut(rest, ":")
	if !ok || name == "" {
		return PackageSpec{}, fmt.Errorf("package specification %q is missing a version", s)
	}
	if !isIdent(ns) || !isIdent(name) {
		return PackageSpec{}, fmt.Errorf("package specification %q has an invalid name", s)
	}
	version, err := ParsePackageVersion(ver)
	if err != nil {
		return PackageSpec{}, err
	}
	return PackageSpec{Namespace: ns, Name: name, Version: version}, nil
}

// IsZero reports whether the spec is unset.
func (p PackageSpec) IsZero() bool { return p == PackageSpec{} }

func (p PackageSpec) String() string {
	return "@" + p.Namespace + "/" + p.Name + ":" + p.Version.String()
}

// DisplayPrefix is the prefix used for package files in diagnostics.
func (p PackageSpec) DisplayPrefix() string {
	return p.Namespace + "/" + p.Name + "@" + p.Version.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
