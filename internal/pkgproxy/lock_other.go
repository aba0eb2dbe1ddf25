//go:build !unix && !windows

package pkgproxy

import "os"

// No file locking here; a single process owns the cache.
func tryLock(*os.File) (bool, error) { return true, nil }

func unlockFile(*os.File) error { return nil }
