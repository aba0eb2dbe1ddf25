package rpc

import (
	"errors"

	"vellum/internal/engine"
	"vellum/internal/pkgcache"
	"vellum/internal/typeset"
)

var hostErrorKinds = []struct {
	err  error
	kind string
}{
	{engine.ErrInvalidState, "invalid-state"},
	{engine.ErrPositionOutOfRange, "position-out-of-range"},
	{engine.ErrNoSuchPage, "no-such-page"},
	{engine.ErrJumpNotApplicable, "jump-not-applicable"},
	{engine.ErrJumpFailed, "jump-failed"},
	{engine.ErrUnsupportedFormat, "unsupported-format"},
	{engine.ErrInvalidOptions, "invalid-options"},
	{engine.ErrNotFound, "not-found"},
}

// toRPCError maps a handler failure onto a JSON-RPC error. Host failures
// share one code and are told apart by data.kind.
func toRPCError(err error) rpcError {
	switch {
	case errors.Is(err, errInvalidParams):
		return rpcError{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, errNotInitialized):
		return rpcError{Code: codeNotInitialized, Message: err.Error()}
	}
	return rpcError{Code: codeHostError, Message: err.Error(), Data: &errorData{Kind: errorKind(err)}}
}

func errorKind(err error) string {
	for _, k := range hostErrorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	var pkgErr *pkgcache.PackageError
	if errors.As(err, &pkgErr) {
		return "package"
	}
	var diagErr *typeset.DiagnosticError
	if errors.As(err, &diagErr) {
		return "diagnostics"
	}
	return "other"
}
