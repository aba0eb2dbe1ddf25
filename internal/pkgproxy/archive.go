package pkgproxy

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/gzip"
)

const manifestName = "typst.toml"

var errEscapes = errors.New("archive entry escapes the package directory")

// extract unpacks the tar.gz archive into dest. Entries are unpacked into a
// sibling temporary directory which replaces dest once everything is
// written.
func extract(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(filepath.Dir(dest), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		target, err := entryPath(tmp, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr); err != nil {
				return err
			}
		default:
			// ссылки и устройства в пакетах не нужны
		}
	}
	return os.Rename(tmp, dest)
}

// entryPath joins name onto root, refusing absolute names and names that
// climb out of root.
func entryPath(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", errEscapes, name)
	}
	return filepath.Join(root, clean), nil
}

func writeEntry(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

type manifest struct {
	Package struct {
		Name       string `toml:"name"`
		Version    string `toml:"version"`
		Entrypoint string `toml:"entrypoint"`
	} `toml:"package"`
}

// checkManifest verifies that dir carries a manifest naming the expected
// package.
func checkManifest(dir, name, version string) error {
	var m manifest
	meta, err := toml.DecodeFile(filepath.Join(dir, manifestName), &m)
	if err != nil {
		return fmt.Errorf("failed to parse package manifest: %w", err)
	}
	if !meta.IsDefined("package", "name") || !meta.IsDefined("package", "version") {
		return fmt.Errorf("package manifest is missing [package] name or version")
	}
	if m.Package.Name != name || m.Package.Version != version {
		return fmt.Errorf("package manifest describes %s:%s, expected %s:%s",
			m.Package.Name, m.Package.Version, name, version)
	}
	return nil
}
