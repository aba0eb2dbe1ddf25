// Package pkgcache memoizes where packages live on disk and delegates misses
// to an acquisition proxy.
package pkgcache

import (
	"sync"

	"vellum/internal/source"
)

// ListingNamespace is the namespace of packages reported by ListPackages.
const ListingNamespace = "preview"

// Listing is a parsed repository listing entry.
type Listing struct {
	Spec        source.PackageSpec
	Description string
}

// Cache maps package specs to local directories. All proxy calls happen under
// one lock because the proxy is not reentrant; callers serialize on it.
type Cache struct {
	mu      sync.Mutex
	proxy   Proxy
	roots   map[source.PackageSpec]string
	listing []Listing
	listed  bool
}

// New creates an empty cache in front of proxy. A nil proxy makes every miss
// fail.
func New(proxy Proxy) *Cache {
	return &Cache{
		proxy: proxy,
		roots: make(map[source.PackageSpec]string),
	}
}

// Resolve returns the local directory of spec, acquiring it on a miss.
func (c *Cache) Resolve(spec source.PackageSpec) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if root, ok := c.roots[spec]; ok {
		return root, nil
	}
	if c.proxy == nil {
		return "", &PackageError{Kind: KindOther, Spec: spec, Message: "no package manager configured"}
	}

	path := c.proxy.ResolveLocalPath(spec.Namespace, spec.Name, spec.Version.String())
	if err := c.proxyError(spec); err != nil {
		return "", err
	}
	c.roots[spec] = path
	return path, nil
}

// Discard forgets every resolved package, e.g. after package settings change.
func (c *Cache) Discard() {
	c.mu.Lock()
	clear(c.roots)
	c.mu.Unlock()
}

// Len returns the number of cached package roots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.roots)
}

// Packages lists the packages known to the repository. The first successful
// listing is kept for the lifetime of the cache; failures are retried on the
// next call. Entries with an unparseable version are dropped.
func (c *Cache) Packages() ([]Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listed {
		return c.listing, nil
	}
	if c.proxy == nil {
		return nil, &PackageError{Kind: KindOther, Message: "no package manager configured"}
	}

	entries := c.proxy.ListPackages()
	if err := c.proxyError(source.PackageSpec{}); err != nil {
		return nil, err
	}

	listing := make([]Listing, 0, len(entries))
	for _, e := range entries {
		version, err := source.ParsePackageVersion(e.Version)
		if err != nil {
			continue
		}
		listing = append(listing, Listing{
			Spec:        source.PackageSpec{Namespace: ListingNamespace, Name: e.Name, Version: version},
			Description: e.Description,
		})
	}
	c.listing = listing
	c.listed = true
	return listing, nil
}

func (c *Cache) proxyError(spec source.PackageSpec) error {
	code := c.proxy.Error()
	if code == Success {
		return nil
	}
	return &PackageError{Kind: kindFor(code), Spec: spec, Message: c.proxy.ErrorMessage()}
}
