package ember

import (
	"context"
	"time"

	"github.com/emberd/ember/runtime/process"
	"github.com/emberd/ember/service/bytecode"
	"github.com/emberd/ember/service/lifecycle"
	"github.com/emberd/ember/service/registry"
	"github.com/emberd/ember/service/runner"
	"github.com/emberd/ember/service/scheduler"
)

// Runtime represents a running scheduling kernel.
type Runtime struct {
	registry  *registry.Service
	tracker   *lifecycle.Service
	runner    *runner.Service
	scheduler *scheduler.Service
	loader    *bytecode.Service
}

// Start launches the scheduler loop. ctx bounds the lifetime of the loop
// and of every runner it dispatches.
func (r *Runtime) Start(ctx context.Context) error {
	return r.scheduler.Start(ctx)
}

// Register compiles bytecode and stores it with its instantiation
// template under the next ModuleID.
func (r *Runtime) Register(ctx context.Context, bytecode []byte) (registry.ModuleID, error) {
	return r.registry.Register(ctx, bytecode)
}

// RegisterLocation loads module bytes from a location-addressed URL or
// path and registers them.
func (r *Runtime) RegisterLocation(ctx context.Context, location string) (registry.ModuleID, error) {
	data, err := r.loader.Load(ctx, location)
	if err != nil {
		return 0, err
	}
	return r.registry.Register(ctx, data)
}

// Spawn enqueues one process of the given module and returns its
// ProcessID. Unknown modules and a shut-down scheduler are reported
// synchronously.
func (r *Runtime) Spawn(ctx context.Context, module registry.ModuleID) (process.ID, error) {
	return r.scheduler.Spawn(ctx, module)
}

// StartedCount returns how many processes have recorded a start.
func (r *Runtime) StartedCount() int {
	return r.tracker.StartedCount()
}

// EndedCount returns how many processes have recorded an end.
func (r *Runtime) EndedCount() int {
	return r.tracker.EndedCount()
}

// Snapshot returns the lifecycle records of every started process.
func (r *Runtime) Snapshot() map[process.ID]lifecycle.Record {
	return r.tracker.Snapshot()
}

// Elapsed returns the duration between the earliest start and the latest
// end recorded so far.
func (r *Runtime) Elapsed() (time.Duration, bool) {
	return r.tracker.Elapsed()
}

// WaitUntilEnded polls the tracker until at least n processes have ended,
// ctx is done, or the scheduler is shut down underneath it. A poll
// interval of zero selects 10ms.
func (r *Runtime) WaitUntilEnded(ctx context.Context, n int, poll time.Duration) error {
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if r.tracker.EndedCount() >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown closes the dispatch queue, drains it and waits for in-flight
// processes to reach a terminal state.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.scheduler.Shutdown(ctx)
}
