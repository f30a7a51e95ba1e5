package sandbox

import "context"

// Engine is the pluggable sandboxed execution engine. Implementations are
// responsible for bytecode verification, isolation and fuel accounting;
// the scheduler core only drives the contract below.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use;
//     Module and Template values are immutable once returned and may be
//     shared read-only across many callers.
//   - Context: blocking operations must honor cancellation and return
//     ctx.Err() when canceled.
//   - Errors: runtime faults are reported as *TrapError; terminal fuel
//     exhaustion as ErrFuelExhausted; callers use errors.Is / errors.As.
//   - Ownership: an Instance belongs to exactly one caller and is never
//     shared.
type Engine interface {
	// Compile verifies and compiles raw module bytes.
	Compile(ctx context.Context, bytecode []byte) (Module, error)

	// NewTemplate precomputes an instantiation template for module, with
	// the supplied host functions bound at link time.
	NewTemplate(module Module, hosts HostTable) (Template, error)
}

// Module is an engine-specific compiled representation of sandboxed
// bytecode. It carries no methods the core needs; it only flows back into
// the engine that produced it.
type Module interface{}

// Template creates runnable instances of one compiled module quickly,
// without re-linking host functions on every spawn.
type Template interface {
	// Instantiate creates a fresh isolated instance with the given fuel
	// budget attached.
	Instantiate(ctx context.Context, fuel uint64) (Instance, error)
}

// Instance is one isolated, fuel-metered execution of a module. Call may
// suspend when the granted fuel is consumed before the entry point
// returns; Resume continues the suspended computation after a further
// grant.
type Instance interface {
	// Call invokes the named entry point. A returned Outcome with
	// Suspended set means the computation ran out of fuel at a resumable
	// point; any other exhaustion is reported as ErrFuelExhausted.
	Call(ctx context.Context, entry string, args ...uint64) (Outcome, error)

	// Resume grants additional fuel and continues a suspended Call. It is
	// an error to resume an instance that is not suspended.
	Resume(ctx context.Context, grant uint64) (Outcome, error)
}

// Outcome describes where one Call or Resume left the computation.
type Outcome struct {
	// Values holds the entry point results when the computation finished.
	Values []uint64

	// Suspended is set when fuel ran out at a resumable yield point.
	Suspended bool

	// FuelConsumed is the total fuel consumed by the instance so far.
	FuelConsumed uint64
}
