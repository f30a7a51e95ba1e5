package ember

import (
	"github.com/emberd/ember/policy"
	"github.com/emberd/ember/sandbox"
	"github.com/emberd/ember/service/bytecode"
	"github.com/emberd/ember/service/lifecycle"
	"github.com/emberd/ember/service/messaging"
	"github.com/emberd/ember/service/runner"
	"github.com/emberd/ember/service/scheduler"
)

// Option customises the service.
type Option func(s *Service)

// WithEngine sets the sandboxed execution engine.
func WithEngine(engine sandbox.Engine) Option {
	return func(s *Service) {
		s.engine = engine
	}
}

// WithHostFunctions sets the host-function link table the sandbox may
// import; the table is embedder-supplied, never hardcoded by the core.
func WithHostFunctions(hosts sandbox.HostTable) Option {
	return func(s *Service) {
		s.hosts = hosts
	}
}

// WithQueue sets the dispatch queue implementation.
func WithQueue(queue messaging.Queue[scheduler.Spawn]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithLifecycleTracker sets the lifecycle tracker.
func WithLifecycleTracker(tracker *lifecycle.Service) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithBytecodeLoader sets the location-addressed module loader.
func WithBytecodeLoader(loader *bytecode.Service) Option {
	return func(s *Service) {
		s.loader = loader
	}
}

// WithFuelPolicy sets the default fuel grant policy.
func WithFuelPolicy(fuel *policy.Fuel) Option {
	return func(s *Service) {
		if fuel == nil {
			return
		}
		if s.config == nil {
			s.config = DefaultConfig()
		}
		s.config.Fuel = *fuel
	}
}

// WithEntryPoint sets the exported function invoked per process.
func WithEntryPoint(entry string) Option {
	return func(s *Service) {
		if entry == "" {
			return
		}
		if s.config == nil {
			s.config = DefaultConfig()
		}
		s.config.EntryPoint = entry
	}
}

// WithConfig sets the whole configuration at once.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithProcessListener registers a callback invoked whenever a process
// reaches a terminal state.
func WithProcessListener(listeners ...runner.Listener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listeners...)
	}
}
