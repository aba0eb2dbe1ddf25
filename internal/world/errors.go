package world

import (
	"errors"
	"fmt"

	"vellum/internal/sandbox"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrIsDirectory = errors.New("is a directory")
	ErrInvalidUTF8 = errors.New("file is not valid utf-8")
	ErrIO          = errors.New("failed to load file")
)

// FileError is returned for files that could not be provided to the
// compiler. Path is the real path when known, the file id otherwise.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("file not found (searched at %s)", e.Path)
	case errors.Is(e.Err, sandbox.ErrAccessDenied):
		return "failed to load file (access denied)"
	case errors.Is(e.Err, ErrIsDirectory):
		return "failed to load file (is a directory)"
	case errors.Is(e.Err, ErrInvalidUTF8):
		return ErrInvalidUTF8.Error()
	case errors.Is(e.Err, sandbox.ErrUnsaved):
		return sandbox.ErrUnsaved.Error()
	default:
		return fmt.Sprintf("failed to load file (%v)", e.Err)
	}
}

func (e *FileError) Unwrap() error { return e.Err }
