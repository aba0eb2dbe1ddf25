package pkgcache

// ErrorCode is the out-of-band status a Proxy reports after each call.
type ErrorCode uint8

const (
	Success ErrorCode = iota
	NotAllowed
	NotFound
	NetworkError
	IOError
	ArchiveError
	ParseError
	OtherError
)

func (c ErrorCode) String() string {
	switch c {
	case Success:
		return "success"
	case NotAllowed:
		return "not-allowed"
	case NotFound:
		return "not-found"
	case NetworkError:
		return "network-error"
	case IOError:
		return "io-error"
	case ArchiveError:
		return "archive-error"
	case ParseError:
		return "parse-error"
	default:
		return "other"
	}
}

// Entry is one package of a repository listing as the proxy reports it.
type Entry struct {
	Name        string
	Version     string
	Description string
}

// Proxy acquires packages on behalf of the cache. A call never returns an
// error directly; the outcome of the last call is queried with Error and
// ErrorMessage. Implementations need not be reentrant.
type Proxy interface {
	ResolveLocalPath(namespace, name, version string) string
	ListPackages() []Entry
	Error() ErrorCode
	ErrorMessage() string
}
