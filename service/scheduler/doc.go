// Package scheduler hosts the admission loop: a single consumer dequeues
// spawn requests and hands each one to a freshly launched runner
// goroutine, decoupling admission from execution.
package scheduler
