package ember

import (
	"github.com/emberd/ember/sandbox"
	sbwasmtime "github.com/emberd/ember/sandbox/wasmtime"
	"github.com/emberd/ember/service/bytecode"
	"github.com/emberd/ember/service/lifecycle"
	"github.com/emberd/ember/service/messaging"
	mmemory "github.com/emberd/ember/service/messaging/memory"
	"github.com/emberd/ember/service/registry"
	"github.com/emberd/ember/service/runner"
	"github.com/emberd/ember/service/scheduler"
)

// Service wires the engine, registry, tracker, queue and scheduler into a
// ready-to-use runtime.
type Service struct {
	runtime *Runtime

	config    *Config
	engine    sandbox.Engine
	hosts     sandbox.HostTable
	queue     messaging.Queue[scheduler.Spawn]
	tracker   *lifecycle.Service
	loader    *bytecode.Service
	listeners []runner.Listener
}

// New creates a service with the supplied options; anything not supplied
// falls back to the package defaults (wasmtime engine, in-memory queue,
// default fuel policy).
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()

	s.runtime.tracker = s.tracker
	s.runtime.loader = s.loader
	s.runtime.registry = registry.New(s.engine, s.hosts)

	runnerOptions := []runner.Option{runner.WithEntryPoint(s.config.EntryPoint)}
	for _, listener := range s.listeners {
		runnerOptions = append(runnerOptions, runner.WithListener(listener))
	}
	s.runtime.runner = runner.New(s.runtime.registry, s.tracker, &s.config.Fuel, runnerOptions...)
	s.runtime.scheduler, _ = scheduler.New(
		scheduler.WithQueue(s.queue),
		scheduler.WithRegistry(s.runtime.registry),
		scheduler.WithRunner(s.runtime.runner))
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.engine == nil {
		s.engine = sbwasmtime.New()
	}
	if s.hosts == nil {
		s.hosts = sandbox.HostTable{}
	}
	if s.queue == nil {
		s.queue = mmemory.NewQueue[scheduler.Spawn](mmemory.DefaultConfig())
	}
	if s.tracker == nil {
		s.tracker = lifecycle.New()
	}
	if s.loader == nil {
		s.loader = bytecode.New(nil)
	}
}

// Runtime returns the runtime facade.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}
