// Package log provides structured event capture for the Strata client SDK.
//
// Events are emitted at every interesting point of a client session:
// connection state transitions, frames received on the realtime stream,
// subscription sync pushes, and errors (including subscriber callback
// panics, which the realtime dispatcher isolates and reports here).
//
// # Loggers
//
// Applications choose how events are consumed:
//   - NoopLogger discards everything (the default).
//   - SlogAdapter forwards events to a log/slog logger for development.
//   - FileLogger appends events to a CBOR capture file for later analysis.
//   - MultiLogger fans events out to several loggers at once.
//
// # Capture Format
//
// FileLogger writes a stream of CBOR-encoded Event values with integer map
// keys and canonical ordering, so captures are compact and byte-stable.
// Reader iterates a capture file, optionally filtered by connection,
// category, topic, or time range.
package log
