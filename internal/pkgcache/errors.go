package pkgcache

import (
	"errors"
	"fmt"

	"vellum/internal/source"
)

// Kind classifies package resolution failures.
type Kind uint8

const (
	KindOther Kind = iota
	KindNotFound
	KindNetworkFailed
	KindLocalIO
	KindMalformedArchive
	KindNotAllowed
	KindParseFailed
)

var (
	ErrNotFound         = errors.New("package not found")
	ErrNetworkFailed    = errors.New("failed to download package")
	ErrLocalIO          = errors.New("failed to access package files")
	ErrMalformedArchive = errors.New("malformed package archive")
	ErrNotAllowed       = errors.New("package use is not allowed")
	ErrParseFailed      = errors.New("failed to parse package data")
	ErrOther            = errors.New("failed to load package")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindNetworkFailed:
		return ErrNetworkFailed
	case KindLocalIO:
		return ErrLocalIO
	case KindMalformedArchive:
		return ErrMalformedArchive
	case KindNotAllowed:
		return ErrNotAllowed
	case KindParseFailed:
		return ErrParseFailed
	default:
		return ErrOther
	}
}

func (k Kind) String() string { return k.sentinel().Error() }

// kindFor maps a proxy status onto a failure kind. Success has no kind and
// must be checked by the caller.
func kindFor(code ErrorCode) Kind {
	switch code {
	case NotFound:
		return KindNotFound
	case NetworkError:
		return KindNetworkFailed
	case IOError:
		return KindLocalIO
	case ArchiveError:
		return KindMalformedArchive
	case NotAllowed:
		return KindNotAllowed
	case ParseError:
		return KindParseFailed
	default:
		return KindOther
	}
}

// PackageError describes why a package could not be made available.
type PackageError struct {
	Kind    Kind
	Spec    source.PackageSpec
	Message string
}

func (e *PackageError) Error() string {
	var msg string
	switch {
	case e.Kind == KindNotFound && !e.Spec.IsZero():
		msg = fmt.Sprintf("package not found (searched for %s)", e.Spec)
	case e.Spec.IsZero():
		msg = e.Kind.String()
	default:
		msg = fmt.Sprintf("%s %s", e.Kind, e.Spec)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *PackageError) Unwrap() error { return e.Kind.sentinel() }
