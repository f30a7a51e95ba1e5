// Package lifecycle tracks per-process start and end timestamps for
// observability and completion detection.
package lifecycle
