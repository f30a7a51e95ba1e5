package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/emberd/ember/internal/idgen"
	"github.com/emberd/ember/runtime/process"
	"github.com/emberd/ember/service/messaging"
	"github.com/emberd/ember/service/registry"
	"github.com/emberd/ember/service/runner"
)

// ErrClosed is returned by Spawn after the scheduler has been shut down.
var ErrClosed = errors.New("scheduler closed")

// Spawn is one admission-queue request: run process Process from module
// Module.
type Spawn struct {
	Module  registry.ModuleID
	Process process.ID
}

// Service is the single consumer of the dispatch queue. For each accepted
// request it launches one runner goroutine without waiting for it to
// finish, so one slow or stuck process never stalls admission of new
// spawn requests.
type Service struct {
	queue    messaging.Queue[Spawn]
	registry *registry.Service
	runner   *runner.Service

	ids      idgen.Sequence
	loopWg   sync.WaitGroup
	runnerWg sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

// Option customises the scheduler.
type Option func(*Service)

// WithQueue sets the dispatch queue implementation.
func WithQueue(queue messaging.Queue[Spawn]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithRegistry sets the module registry consulted at spawn time.
func WithRegistry(reg *registry.Service) Option {
	return func(s *Service) {
		s.registry = reg
	}
}

// WithRunner sets the per-process runner.
func WithRunner(r *runner.Service) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// New creates a scheduler service.
func New(options ...Option) (*Service, error) {
	s := &Service{}
	for _, opt := range options {
		opt(s)
	}
	if s.queue == nil {
		return nil, fmt.Errorf("dispatch queue is required")
	}
	if s.registry == nil {
		return nil, fmt.Errorf("module registry is required")
	}
	if s.runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	return s, nil
}

// Start launches the consumer loop. ctx bounds the lifetime of the loop
// and of the runners it dispatches.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.loopWg.Add(1)
	go s.run(ctx)
	return nil
}

// run dequeues spawn requests and dispatches them fire-and-forget. The
// loop terminates only when the queue is closed and drained, or ctx is
// canceled; mid-flight runners complete independently.
func (s *Service) run(ctx context.Context) {
	defer s.loopWg.Done()
	for {
		msg, err := s.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, messaging.ErrClosed) {
				return
			}
			// Transient queue error; back off a bit.
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		request := *msg.T()
		s.runnerWg.Add(1)
		go func() {
			defer s.runnerWg.Done()
			if _, runErr := s.runner.Run(ctx, request.Module, request.Process); runErr != nil {
				// Terminal per-process failures are already recorded;
				// they must never take down the loop.
				log.Printf("process %d (module %d) terminated: %v", request.Process, request.Module, runErr)
			}
		}()
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("failed to ack spawn request %d: %v", request.Process, ackErr)
		}
	}
}

// Spawn validates the module, assigns the next ProcessID and enqueues the
// request. UnknownModule and ErrClosed surface synchronously; admission
// never blocks on execution.
func (s *Service) Spawn(ctx context.Context, module registry.ModuleID) (process.ID, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	if !s.registry.Exists(module) {
		return 0, fmt.Errorf("spawn module %d: %w", module, registry.ErrUnknownModule)
	}
	id := process.ID(s.ids.Next())
	if err := s.queue.Publish(ctx, &Spawn{Module: module, Process: id}); err != nil {
		if errors.Is(err, messaging.ErrClosed) {
			return 0, ErrClosed
		}
		return 0, err
	}
	return id, nil
}

// Shutdown closes the queue, waits for the loop to drain it and then for
// in-flight runners to finish. ctx bounds the wait.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.queue.Close(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		s.loopWg.Wait()
		s.runnerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
