//go:build linux

package sandbox

import (
	"golang.org/x/sys/unix"
)

const portalHostPathAttr = "user.document-portal.host-path"

// PortalDisplayPath returns the host path recorded by the document portal for
// a file exported into the sandbox, or path itself when there is none.
func PortalDisplayPath(path string) string {
	size, err := unix.Getxattr(path, portalHostPathAttr, nil)
	if err != nil || size <= 0 {
		return path
	}
	buf := make([]byte, size)
	n, err := unix.Getxattr(path, portalHostPathAttr, buf)
	if err != nil || n <= 0 {
		return path
	}
	// Some portal versions store a trailing NUL.
	for n > 0 && buf[n-1] == 0 {
		n--
	}
	if n == 0 {
		return path
	}
	return string(buf[:n])
}
