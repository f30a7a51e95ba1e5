// Package runner hosts the per-spawn unit of work: instantiate from a
// template, attach a fuel budget, invoke the entry point cooperatively
// and record lifecycle timestamps on every termination path.
package runner
