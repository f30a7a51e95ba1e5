// Package wasmtime adapts the wasmtime WebAssembly runtime to the sandbox
// engine contracts, with fuel-based cooperative preemption enabled.
package wasmtime
