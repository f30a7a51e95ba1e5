package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/emberd/ember/policy"
	"github.com/emberd/ember/runtime/process"
	"github.com/emberd/ember/sandbox"
	"github.com/emberd/ember/sandbox/sandboxtest"
	"github.com/emberd/ember/service/lifecycle"
	"github.com/emberd/ember/service/messaging/memory"
	"github.com/emberd/ember/service/registry"
	"github.com/emberd/ember/service/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	registry  *registry.Service
	tracker   *lifecycle.Service
	scheduler *Service

	mu        sync.Mutex
	terminals []*process.Process
}

func newFixture(t *testing.T, fuel *policy.Fuel) *fixture {
	t.Helper()
	f := &fixture{
		registry: registry.New(sandboxtest.New(), sandbox.HostTable{}),
		tracker:  lifecycle.New(),
	}
	listener := func(p *process.Process) {
		f.mu.Lock()
		f.terminals = append(f.terminals, p)
		f.mu.Unlock()
	}
	r := runner.New(f.registry, f.tracker, fuel, runner.WithListener(listener))
	scheduler, err := New(
		WithQueue(memory.NewQueue[Spawn](memory.DefaultConfig())),
		WithRegistry(f.registry),
		WithRunner(r))
	require.NoError(t, err)
	f.scheduler = scheduler
	return f
}

func (f *fixture) register(t *testing.T, script string) registry.ModuleID {
	t.Helper()
	id, err := f.registry.Register(context.Background(), []byte(script))
	require.NoError(t, err)
	return id
}

func (f *fixture) waitEnded(t *testing.T, n int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return f.tracker.EndedCount() >= n
	}, 5*time.Second, 5*time.Millisecond)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
	_, err = New(WithQueue(memory.NewQueue[Spawn](memory.DefaultConfig())))
	assert.Error(t, err)
}

func TestService_SpawnUnknownModule(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.scheduler.Start(ctx))
	defer func() { _ = f.scheduler.Shutdown(ctx) }()

	_, err := f.scheduler.Spawn(ctx, registry.ModuleID(42))
	assert.ErrorIs(t, err, registry.ErrUnknownModule)
	// No lifecycle record may exist for a rejected spawn.
	assert.Equal(t, 0, f.tracker.StartedCount())
}

func TestService_SpawnDispatchesConcurrently(t *testing.T) {
	const spawns = 100

	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.scheduler.Start(ctx))
	defer func() { _ = f.scheduler.Shutdown(ctx) }()

	module := f.register(t, "cost 10\nreturn 1")
	seen := map[process.ID]bool{}
	for i := 0; i < spawns; i++ {
		id, err := f.scheduler.Spawn(ctx, module)
		require.NoError(t, err)
		assert.False(t, seen[id], "process id %d issued twice", id)
		seen[id] = true
	}

	f.waitEnded(t, spawns)
	assert.Equal(t, spawns, f.tracker.StartedCount())
	assert.Equal(t, spawns, f.tracker.EndedCount())
}

func TestService_FailuresDoNotStallTheLoop(t *testing.T) {
	f := newFixture(t, &policy.Fuel{InitialBudget: 50, GrantSize: 50, MaxGrants: 1})
	ctx := context.Background()
	require.NoError(t, f.scheduler.Start(ctx))
	defer func() { _ = f.scheduler.Shutdown(ctx) }()

	trapping := f.register(t, "trap bad opcode")
	exhausting := f.register(t, "cost 100000\nreturn 1")
	healthy := f.register(t, "return 7")

	_, err := f.scheduler.Spawn(ctx, trapping)
	require.NoError(t, err)
	_, err = f.scheduler.Spawn(ctx, exhausting)
	require.NoError(t, err)
	f.waitEnded(t, 2)

	// The loop keeps accepting and dispatching after terminal failures.
	_, err = f.scheduler.Spawn(ctx, healthy)
	require.NoError(t, err)
	f.waitEnded(t, 3)

	f.mu.Lock()
	defer f.mu.Unlock()
	states := map[process.FailureKind]int{}
	for _, p := range f.terminals {
		kind, _ := p.Failure()
		states[kind]++
	}
	assert.Equal(t, 1, states[process.FailureTrap])
	assert.Equal(t, 1, states[process.FailureOutOfFuel])
	assert.Equal(t, 1, states[process.FailureNone])
}

func TestService_SpawnAfterShutdown(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.scheduler.Start(ctx))
	module := f.register(t, "return 1")

	require.NoError(t, f.scheduler.Shutdown(ctx))
	_, err := f.scheduler.Spawn(ctx, module)
	assert.ErrorIs(t, err, ErrClosed)

	// Shutdown is idempotent.
	assert.NoError(t, f.scheduler.Shutdown(ctx))
}

func TestService_ShutdownDrainsPendingSpawns(t *testing.T) {
	const spawns = 50

	f := newFixture(t, nil)
	ctx := context.Background()
	module := f.register(t, "cost 5\nreturn 1")

	// Enqueue before the loop starts so everything is still pending.
	for i := 0; i < spawns; i++ {
		_, err := f.scheduler.Spawn(ctx, module)
		require.NoError(t, err)
	}
	require.NoError(t, f.scheduler.Start(ctx))
	require.NoError(t, f.scheduler.Shutdown(ctx))

	// Every admitted request ran to a terminal state before shutdown
	// returned.
	assert.Equal(t, spawns, f.tracker.EndedCount())
}
