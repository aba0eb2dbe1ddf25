// Package diag defines the diagnostic model shared by the compiler contract,
// the session orchestrator and the output layers.
//
// # Data model
//
// Diagnostic is what the compiler reports: a severity, a span in some source
// file, a message, an optional trace of spans leading to the problem and
// free-form hints. Diagnostics are data, never Go errors.
//
// Location is a diagnostic after localization: a display file name and
// zero-based start/end line and column pairs. A location that could not be
// resolved carries source.NoLineCol on both ends (see NoLocation).
//
// # Sinks
//
// The orchestrator reports every user-visible event through a Logger. Each
// call carries exactly one message. Implementations:
//
//   - SlogLogger forwards to a *slog.Logger.
//   - PrettyLogger renders colored, caret-annotated output for terminals.
//   - Collector records entries for later inspection (rpc, tests, SARIF).
//   - Multi fans out to several sinks.
//
// WriteSARIF and FormatShort render collected entries for machine and golden
// consumption.
package diag
