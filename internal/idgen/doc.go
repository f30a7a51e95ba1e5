// Package idgen provides monotonic identifier sequences used for module
// and process ids. Counters are only reachable through the owning
// component's API, never as package-level mutable state.
package idgen
