// Package typeset declares the contracts between the session host and the
// typesetting engine: what the engine may ask of the host (World) and what
// the host may ask of the engine (Compiler and its optional capabilities).
package typeset

import (
	"time"

	"vellum/internal/fonts"
	"vellum/internal/source"
)

// World is everything a compiler may query while compiling one document.
// Calls happen on the session thread.
type World interface {
	Library() *Library
	Book() *fonts.Book
	Main() source.FileID
	Source(id source.FileID) (*source.Source, error)
	File(id source.FileID) ([]byte, error)
	Font(index int) (*fonts.Font, bool)
	// Today returns the current date at the given whole-hour UTC offset, or
	// in the timestamp's own zone when offset is nil.
	Today(offset *int64) (time.Time, bool)
}

// Library is the standard library the compiler evaluates documents against.
type Library struct {
	// Global is the scope documents see without imports.
	Global *Scope
	// Std is the scope behind the "std" module.
	Std *Scope
	// FuncType is the scope of the function type itself (with, where).
	FuncType *Scope
}
