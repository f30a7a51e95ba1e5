// Package sandbox defines the contracts the scheduler core needs from a
// sandboxed execution engine: compile bytes into a module, precompute an
// instantiation template against a host function table, and run instances
// under a fuel budget with cooperative suspension.
//
// Two implementations ship with the repository: sandbox/wasmtime adapts
// the wasmtime runtime for production use, and sandbox/sandboxtest
// provides a deterministic scripted engine for tests.
package sandbox
