package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/emberd/ember/policy"
	"github.com/emberd/ember/runtime/process"
	"github.com/emberd/ember/sandbox"
	"github.com/emberd/ember/sandbox/sandboxtest"
	"github.com/emberd/ember/service/lifecycle"
	"github.com/emberd/ember/service/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	registry *registry.Service
	tracker  *lifecycle.Service
	runner   *Service
}

func newFixture(t *testing.T, fuel *policy.Fuel, options ...Option) *fixture {
	t.Helper()
	reg := registry.New(sandboxtest.New(), sandbox.HostTable{})
	tracker := lifecycle.New()
	return &fixture{
		registry: reg,
		tracker:  tracker,
		runner:   New(reg, tracker, fuel, options...),
	}
}

func (f *fixture) register(t *testing.T, script string) registry.ModuleID {
	t.Helper()
	id, err := f.registry.Register(context.Background(), []byte(script))
	require.NoError(t, err)
	return id
}

func TestService_RunCompletes(t *testing.T) {
	f := newFixture(t, nil)
	module := f.register(t, "cost 100\nreturn 42")

	proc, err := f.runner.Run(context.Background(), module, process.ID(1))
	require.NoError(t, err)
	assert.Equal(t, process.StateCompleted, proc.State())
	assert.Equal(t, []uint64{42}, proc.Result())
	assert.Equal(t, uint64(100), proc.FuelConsumed())
	assert.Equal(t, 1, f.tracker.StartedCount())
	assert.Equal(t, 1, f.tracker.EndedCount())
}

func TestService_RunGrantsFuelUntilCompletion(t *testing.T) {
	f := newFixture(t, &policy.Fuel{InitialBudget: 1000, GrantSize: 1000, MaxGrants: 3})
	// Needs 3500 fuel: initial 1000 plus three grants cover it.
	module := f.register(t, "cost 3500\nreturn 1")

	proc, err := f.runner.Run(context.Background(), module, process.ID(1))
	require.NoError(t, err)
	assert.Equal(t, process.StateCompleted, proc.State())
	assert.Equal(t, 3, proc.Grants())
	assert.Equal(t, uint64(4000), proc.FuelBudget())
	assert.Equal(t, uint64(3500), proc.FuelConsumed())
}

func TestService_RunOutOfFuel(t *testing.T) {
	f := newFixture(t, &policy.Fuel{InitialBudget: 1000, GrantSize: 1000, MaxGrants: 2})
	// Needs more fuel than the initial budget plus two grants.
	module := f.register(t, "cost 10000\nreturn 1")

	proc, err := f.runner.Run(context.Background(), module, process.ID(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sandbox.ErrFuelExhausted))

	kind, _ := proc.Failure()
	assert.Equal(t, process.StateFailed, proc.State())
	assert.Equal(t, process.FailureOutOfFuel, kind)
	assert.Equal(t, uint64(3000), proc.FuelConsumed())
	// Failed processes still get an end timestamp.
	assert.Equal(t, 1, f.tracker.EndedCount())
}

func TestService_RunUnlimitedGrants(t *testing.T) {
	f := newFixture(t, &policy.Fuel{InitialBudget: 100, GrantSize: 100, MaxGrants: -1})
	module := f.register(t, "cost 5000\nreturn 9")

	proc, err := f.runner.Run(context.Background(), module, process.ID(1))
	require.NoError(t, err)
	assert.Equal(t, process.StateCompleted, proc.State())
	assert.Equal(t, 49, proc.Grants())
}

func TestService_RunTrap(t *testing.T) {
	f := newFixture(t, nil)
	module := f.register(t, "cost 10\ntrap invalid operation")

	proc, err := f.runner.Run(context.Background(), module, process.ID(1))
	require.Error(t, err)
	var trap *sandbox.TrapError
	require.True(t, errors.As(err, &trap))
	assert.Equal(t, "invalid operation", trap.Reason)

	kind, procErr := proc.Failure()
	assert.Equal(t, process.FailureTrap, kind)
	assert.Error(t, procErr)
	assert.Equal(t, 1, f.tracker.EndedCount())
}

func TestService_RunInstantiationFailure(t *testing.T) {
	f := newFixture(t, nil)
	module := f.register(t, "fail-instantiate")

	proc, err := f.runner.Run(context.Background(), module, process.ID(1))
	require.Error(t, err)
	kind, _ := proc.Failure()
	assert.Equal(t, process.FailureInstantiation, kind)
	// Start and end timestamps are written even on the failure path.
	assert.Equal(t, 1, f.tracker.StartedCount())
	assert.Equal(t, 1, f.tracker.EndedCount())
}

func TestService_RunUnknownModule(t *testing.T) {
	f := newFixture(t, nil)

	proc, err := f.runner.Run(context.Background(), registry.ModuleID(99), process.ID(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrUnknownModule))
	kind, _ := proc.Failure()
	assert.Equal(t, process.FailureInstantiation, kind)
}

func TestService_ListenerSeesTerminalState(t *testing.T) {
	var seen []*process.Process
	listener := func(p *process.Process) { seen = append(seen, p) }
	f := newFixture(t, nil, WithListener(listener))

	completed := f.register(t, "return 1")
	trapping := f.register(t, "trap boom")

	_, _ = f.runner.Run(context.Background(), completed, process.ID(1))
	_, _ = f.runner.Run(context.Background(), trapping, process.ID(2))

	require.Len(t, seen, 2)
	assert.Equal(t, process.StateCompleted, seen[0].State())
	assert.Equal(t, process.StateFailed, seen[1].State())
}

func TestService_ContextFuelOverride(t *testing.T) {
	f := newFixture(t, &policy.Fuel{InitialBudget: 10, GrantSize: 10, MaxGrants: 0})
	module := f.register(t, "cost 500\nreturn 3")

	// The default policy would exhaust; the per-spawn override completes.
	ctx := policy.WithFuel(context.Background(), &policy.Fuel{InitialBudget: 1000, GrantSize: 0, MaxGrants: 0})
	proc, err := f.runner.Run(ctx, module, process.ID(1))
	require.NoError(t, err)
	assert.Equal(t, process.StateCompleted, proc.State())
}

func TestService_EntryPointOption(t *testing.T) {
	f := newFixture(t, nil, WithEntryPoint("main"))
	module := f.register(t, "export main\nreturn 5")

	proc, err := f.runner.Run(context.Background(), module, process.ID(1))
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, proc.Result())
}
