package pkgproxy

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Stats summarizes the contents of the package cache directory.
type Stats struct {
	TotalSize int64
	Packages  int
	Versions  int
}

// Stats walks the cache directory. Directories three levels deep
// (namespace/name/version) count as package versions.
func (p *Proxy) Stats() (Stats, error) {
	var st Stats
	if !isDir(p.cfg.CacheDir) {
		return st, nil
	}
	packages := make(map[string]struct{})
	err := filepath.WalkDir(p.cfg.CacheDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.cfg.CacheDir, path)
		if err != nil {
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			st.TotalSize += info.Size()
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) == 3 && !strings.HasPrefix(parts[2], "tmp-") {
			packages[parts[0]+"/"+parts[1]] = struct{}{}
			st.Versions++
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	st.Packages = len(packages)
	return st, nil
}
