package process

import (
	"sync"
	"time"

	"github.com/emberd/ember/internal/clock"
	"github.com/emberd/ember/service/registry"
)

// ID identifies one spawned process. Ids are monotonic, unique and never
// reused.
type ID uint64

// Process state constants
const (
	StatePending       = "pending"
	StateInstantiating = "instantiating"
	StateRunning       = "running"
	StateCompleted     = "completed"
	StateFailed        = "failed"
)

// FailureKind classifies a terminal failure.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureInstantiation FailureKind = "instantiationFailed"
	FailureTrap          FailureKind = "trap"
	FailureOutOfFuel     FailureKind = "outOfFuel"
)

// Process represents one fuel-bounded invocation of a module entry point.
// It exists only for the duration of one run; after the run only its
// timestamps survive, in the lifecycle tracker.
type Process struct {
	ID        ID
	Module    registry.ModuleID
	CreatedAt time.Time

	mu           sync.RWMutex
	state        string
	failure      FailureKind
	err          error
	result       []uint64
	fuelBudget   uint64
	fuelConsumed uint64
	grants       int
}

// New creates a process in the pending state.
func New(id ID, module registry.ModuleID, fuelBudget uint64) *Process {
	return &Process{
		ID:         id,
		Module:     module,
		CreatedAt:  clock.Now(),
		state:      StatePending,
		fuelBudget: fuelBudget,
	}
}

// SetState updates the lifecycle state.
func (p *Process) SetState(state string) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
}

// State returns the current lifecycle state.
func (p *Process) State() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Fail moves the process to the terminal failed state with a specific
// failure kind. The first terminal transition wins.
func (p *Process) Fail(kind FailureKind, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompleted || p.state == StateFailed {
		return
	}
	p.state = StateFailed
	p.failure = kind
	p.err = err
}

// Complete moves the process to the terminal completed state with the
// entry point results.
func (p *Process) Complete(result []uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateCompleted || p.state == StateFailed {
		return
	}
	p.state = StateCompleted
	p.result = result
}

// Failure returns the failure kind and error of a failed process.
func (p *Process) Failure() (FailureKind, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.failure, p.err
}

// Result returns the entry point results of a completed process.
func (p *Process) Result() []uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.result
}

// IsTerminal reports whether the process reached a terminal state.
func (p *Process) IsTerminal() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == StateCompleted || p.state == StateFailed
}

// GrantFuel records one additional fuel grant of the given size.
func (p *Process) GrantFuel(size uint64) {
	p.mu.Lock()
	p.grants++
	p.fuelBudget += size
	p.mu.Unlock()
}

// Grants returns how many additional fuel grants were made.
func (p *Process) Grants() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.grants
}

// FuelBudget returns the total fuel granted so far.
func (p *Process) FuelBudget() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fuelBudget
}

// SetFuelConsumed records the engine-reported fuel consumption.
func (p *Process) SetFuelConsumed(consumed uint64) {
	p.mu.Lock()
	p.fuelConsumed = consumed
	p.mu.Unlock()
}

// FuelConsumed returns the engine-reported fuel consumption.
func (p *Process) FuelConsumed() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fuelConsumed
}
