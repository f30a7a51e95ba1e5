// Package sandboxtest provides a deterministic scripted implementation of
// the sandbox engine contracts for tests, including resumable suspension
// at fuel exhaustion.
package sandboxtest
