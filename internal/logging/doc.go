// Package logging configures structured slog output for contentsearch.
//
// Logs are JSON lines written to a size-rotated file under
// ~/.contentsearch/logs/, optionally tee'd to stderr. When serving over
// stdio, stdout carries the protocol stream, so serve mode never writes
// logs to the standard streams.
package logging
