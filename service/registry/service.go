package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberd/ember/internal/idgen"
	"github.com/emberd/ember/internal/shardmap"
	"github.com/emberd/ember/sandbox"
	"github.com/emberd/ember/tracing"
)

// ModuleID identifies one registered module. Ids are monotonic, unique
// and never reused.
type ModuleID uint64

// ErrUnknownModule is returned when an operation references an id that
// was never registered.
var ErrUnknownModule = errors.New("unknown module")

// entry pairs the compiled module with its precomputed instantiation
// template. Both are immutable after registration and shared read-only by
// every runner.
type entry struct {
	module   sandbox.Module
	template sandbox.Template
}

// Service owns compiled modules and their instantiation templates, keyed
// by monotonic ModuleID. Lookups and registrations on unrelated ids never
// contend on a shared lock.
type Service struct {
	engine  sandbox.Engine
	hosts   sandbox.HostTable
	ids     idgen.Sequence
	entries *shardmap.Map[*entry]
}

// New creates a registry bound to the engine and host function table.
func New(engine sandbox.Engine, hosts sandbox.HostTable) *Service {
	return &Service{
		engine:  engine,
		hosts:   hosts,
		entries: shardmap.New[*entry](),
	}
}

// Register compiles bytecode, precomputes its instantiation template
// against the host table and stores both under the next ModuleID.
// Concurrent registrations receive distinct, strictly increasing ids.
// Compilation failures are surfaced to the caller, never swallowed.
func (s *Service) Register(ctx context.Context, bytecode []byte) (id ModuleID, err error) {
	ctx, span := tracing.StartSpan(ctx, "registry.Register")
	defer func() { tracing.EndSpan(span, err) }()

	module, err := s.engine.Compile(ctx, bytecode)
	if err != nil {
		return 0, fmt.Errorf("compilation failed: %w", err)
	}
	template, err := s.engine.NewTemplate(module, s.hosts)
	if err != nil {
		return 0, fmt.Errorf("compilation failed: %w", err)
	}

	id = ModuleID(s.ids.Next())
	s.entries.Set(uint64(id), &entry{module: module, template: template})
	span.WithAttributes(map[string]string{"module.id": fmt.Sprintf("%d", id)})
	return id, nil
}

// Template returns the instantiation template registered under id.
func (s *Service) Template(id ModuleID) (sandbox.Template, error) {
	e, ok := s.entries.Get(uint64(id))
	if !ok {
		return nil, fmt.Errorf("module %d: %w", id, ErrUnknownModule)
	}
	return e.template, nil
}

// Exists reports whether id is registered.
func (s *Service) Exists(id ModuleID) bool {
	return s.entries.Has(uint64(id))
}

// Len returns the number of registered modules.
func (s *Service) Len() int {
	return s.entries.Len()
}
