//go:build !linux

package sandbox

// PortalDisplayPath is the identity outside Linux; the document portal only
// exists there.
func PortalDisplayPath(path string) string { return path }
