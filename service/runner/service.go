package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberd/ember/policy"
	"github.com/emberd/ember/runtime/process"
	"github.com/emberd/ember/sandbox"
	"github.com/emberd/ember/service/lifecycle"
	"github.com/emberd/ember/service/registry"
	"github.com/emberd/ember/tracing"
)

// DefaultEntryPoint is the exported function a process invokes unless the
// runner is configured otherwise.
const DefaultEntryPoint = "hello"

// Listener is invoked once a process reaches a terminal state, on every
// termination path. Implementations can collect metrics, log, or feed a
// completion channel; they run on the runner goroutine and should return
// quickly.
type Listener func(p *process.Process)

// Option customises the runner.
type Option func(*Service)

// WithEntryPoint overrides the exported function name invoked per process.
func WithEntryPoint(entry string) Option {
	return func(s *Service) {
		if entry != "" {
			s.entry = entry
		}
	}
}

// WithListener registers a terminal-state listener.
func WithListener(l Listener) Option {
	return func(s *Service) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// Service executes one spawned process from template lookup to terminal
// state. Failures stay local to the process: traps, fuel exhaustion and
// instantiation errors are recorded, never propagated as aborts.
type Service struct {
	registry  *registry.Service
	tracker   *lifecycle.Service
	fuel      *policy.Fuel
	entry     string
	listeners []Listener
}

// New creates a runner. A nil fuel policy selects policy.Default.
func New(reg *registry.Service, tracker *lifecycle.Service, fuel *policy.Fuel, options ...Option) *Service {
	if fuel == nil {
		fuel = policy.Default()
	}
	s := &Service{
		registry: reg,
		tracker:  tracker,
		fuel:     fuel,
		entry:    DefaultEntryPoint,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Run executes one spawn request to completion. It records exactly one
// start and one end timestamp for id regardless of the success or failure
// path, and returns the terminal process alongside the terminal error, if
// any.
func (s *Service) Run(ctx context.Context, module registry.ModuleID, id process.ID) (proc *process.Process, err error) {
	ctx, span := tracing.StartSpan(ctx, "runner.Run")
	span.WithAttributes(map[string]string{
		"process.id": fmt.Sprintf("%d", id),
		"module.id":  fmt.Sprintf("%d", module),
	})
	defer func() { tracing.EndSpan(span, err) }()

	fuel := s.fuel
	if override := policy.FuelFromContext(ctx); override != nil {
		fuel = override
	}

	proc = process.New(id, module, fuel.InitialBudget)
	s.tracker.MarkStarted(id)
	defer func() {
		s.tracker.MarkEnded(id)
		for _, listener := range s.listeners {
			listener(proc)
		}
	}()

	proc.SetState(process.StateInstantiating)
	template, err := s.registry.Template(module)
	if err != nil {
		proc.Fail(process.FailureInstantiation, err)
		return proc, err
	}
	instance, err := template.Instantiate(ctx, fuel.InitialBudget)
	if err != nil {
		err = fmt.Errorf("instantiation failed: %w", err)
		proc.Fail(process.FailureInstantiation, err)
		return proc, err
	}

	proc.SetState(process.StateRunning)
	outcome, err := instance.Call(ctx, s.entry, uint64(id))
	for err == nil && outcome.Suspended {
		if !fuel.CanGrant(proc.Grants()) {
			proc.SetFuelConsumed(outcome.FuelConsumed)
			err = sandbox.ErrFuelExhausted
			proc.Fail(process.FailureOutOfFuel, err)
			return proc, err
		}
		proc.GrantFuel(fuel.GrantSize)
		outcome, err = instance.Resume(ctx, fuel.GrantSize)
	}
	proc.SetFuelConsumed(outcome.FuelConsumed)

	if err != nil {
		err = s.fail(proc, err)
		return proc, err
	}
	proc.Complete(outcome.Values)
	return proc, nil
}

// fail classifies a terminal engine error. Anything the engine reports
// that is not already part of the taxonomy is converted to a trap rather
// than left as an unhandled abort.
func (s *Service) fail(proc *process.Process, err error) error {
	var trap *sandbox.TrapError
	switch {
	case errors.Is(err, sandbox.ErrFuelExhausted):
		proc.Fail(process.FailureOutOfFuel, err)
	case errors.As(err, &trap):
		proc.Fail(process.FailureTrap, err)
	default:
		err = sandbox.Trap(err.Error())
		proc.Fail(process.FailureTrap, err)
	}
	return err
}
