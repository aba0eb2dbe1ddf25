package pkgcache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/source"
)

type fakeProxy struct {
	resolveCalls int
	listCalls    int
	code         ErrorCode
	message      string
	entries      []Entry
	lastArgs     [3]string
}

func (p *fakeProxy) ResolveLocalPath(namespace, name, version string) string {
	p.resolveCalls++
	p.lastArgs = [3]string{namespace, name, version}
	if p.code != Success {
		return ""
	}
	return "/cache/" + namespace + "/" + name + "/" + version
}

func (p *fakeProxy) ListPackages() []Entry {
	p.listCalls++
	if p.code != Success {
		return nil
	}
	return p.entries
}

func (p *fakeProxy) Error() ErrorCode     { return p.code }
func (p *fakeProxy) ErrorMessage() string { return p.message }

func mustSpec(t *testing.T, s string) source.PackageSpec {
	t.Helper()
	spec, err := source.ParsePackageSpec(s)
	require.NoError(t, err)
	return spec
}

func TestResolveCachesSuccess(t *testing.T) {
	proxy := &fakeProxy{}
	cache := New(proxy)
	spec := mustSpec(t, "@preview/cetz:0.2.1")

	root, err := cache.Resolve(spec)
	require.NoError(t, err)
	assert.Equal(t, "/cache/preview/cetz/0.2.1", root)
	assert.Equal(t, [3]string{"preview", "cetz", "0.2.1"}, proxy.lastArgs)

	again, err := cache.Resolve(spec)
	require.NoError(t, err)
	assert.Equal(t, root, again)
	assert.Equal(t, 1, proxy.resolveCalls)
	assert.Equal(t, 1, cache.Len())
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	proxy := &fakeProxy{code: NetworkError, message: "connection refused"}
	cache := New(proxy)
	spec := mustSpec(t, "@preview/cetz:0.2.1")

	_, err := cache.Resolve(spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetworkFailed)
	assert.Contains(t, err.Error(), "connection refused")

	proxy.code = Success
	_, err = cache.Resolve(spec)
	require.NoError(t, err)
	assert.Equal(t, 2, proxy.resolveCalls)
}

func TestDiscardForgetsRoots(t *testing.T) {
	proxy := &fakeProxy{}
	cache := New(proxy)
	spec := mustSpec(t, "@preview/cetz:0.2.1")

	_, err := cache.Resolve(spec)
	require.NoError(t, err)
	cache.Discard()
	assert.Equal(t, 0, cache.Len())

	_, err = cache.Resolve(spec)
	require.NoError(t, err)
	assert.Equal(t, 2, proxy.resolveCalls)
}

func TestErrorKindMapping(t *testing.T) {
	tests := []struct {
		code ErrorCode
		kind Kind
		err  error
	}{
		{NotFound, KindNotFound, ErrNotFound},
		{NetworkError, KindNetworkFailed, ErrNetworkFailed},
		{IOError, KindLocalIO, ErrLocalIO},
		{ArchiveError, KindMalformedArchive, ErrMalformedArchive},
		{NotAllowed, KindNotAllowed, ErrNotAllowed},
		{ParseError, KindParseFailed, ErrParseFailed},
		{OtherError, KindOther, ErrOther},
		{ErrorCode(42), KindOther, ErrOther},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			cache := New(&fakeProxy{code: tt.code})
			_, err := cache.Resolve(mustSpec(t, "@local/pkg:1.0.0"))

			var pkgErr *PackageError
			require.True(t, errors.As(err, &pkgErr))
			assert.Equal(t, tt.kind, pkgErr.Kind)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNotFoundMentionsSpec(t *testing.T) {
	cache := New(&fakeProxy{code: NotFound})
	_, err := cache.Resolve(mustSpec(t, "@preview/nope:1.2.3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@preview/nope:1.2.3")
}

func TestResolveWithoutProxy(t *testing.T) {
	cache := New(nil)
	_, err := cache.Resolve(mustSpec(t, "@preview/cetz:0.2.1"))
	assert.ErrorIs(t, err, ErrOther)
}

func TestPackagesMemoizesFirstSuccess(t *testing.T) {
	proxy := &fakeProxy{code: NetworkError}
	cache := New(proxy)

	_, err := cache.Packages()
	require.ErrorIs(t, err, ErrNetworkFailed)

	proxy.code = Success
	proxy.entries = []Entry{
		{Name: "cetz", Version: "0.2.1", Description: "Drawing"},
		{Name: "broken", Version: "not-a-version"},
		{Name: "tablex", Version: "0.0.8", Description: "Tables"},
	}
	listing, err := cache.Packages()
	require.NoError(t, err)
	require.Len(t, listing, 2)
	assert.Equal(t, "@preview/cetz:0.2.1", listing[0].Spec.String())
	assert.Equal(t, "Drawing", listing[0].Description)
	assert.Equal(t, "tablex", listing[1].Spec.Name)

	proxy.entries = nil
	again, err := cache.Packages()
	require.NoError(t, err)
	assert.Equal(t, listing, again)
	assert.Equal(t, 2, proxy.listCalls)
}
