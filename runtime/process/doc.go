// Package process models one scheduled, fuel-bounded invocation of a
// module entry point, from admission to its terminal state.
package process
