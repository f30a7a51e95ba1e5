// Package tracing is a thin wrapper around OpenTelemetry used to
// instrument module registration and process execution. It lives in its
// own package so embedders that do not need tracing never touch it.
package tracing
