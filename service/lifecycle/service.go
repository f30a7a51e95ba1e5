package lifecycle

import (
	"time"

	"github.com/emberd/ember/internal/clock"
	"github.com/emberd/ember/internal/shardmap"
	"github.com/emberd/ember/runtime/process"
)

// Record holds the timing bookkeeping of one process. Ended is nil while
// the process is still in flight.
type Record struct {
	Started time.Time
	Ended   *time.Time
}

// Service records start and end timestamps per process id. Writers are
// the runners that own each id; any observer may read concurrently.
// Entries for unrelated ids never contend on a shared lock, and counts
// stay consistent while writers insert entries for other ids.
type Service struct {
	started *shardmap.Map[time.Time]
	ended   *shardmap.Map[time.Time]
}

// New creates an empty tracker.
func New() *Service {
	return &Service{
		started: shardmap.New[time.Time](),
		ended:   shardmap.New[time.Time](),
	}
}

// MarkStarted records the start timestamp of id. Called exactly once per
// process, by the runner that owns it.
func (s *Service) MarkStarted(id process.ID) {
	s.started.Set(uint64(id), clock.Now())
}

// MarkEnded records the end timestamp of id. Called exactly once per
// process, on every termination path, so completion counting observers
// are never blocked by failures.
func (s *Service) MarkEnded(id process.ID) {
	s.ended.Set(uint64(id), clock.Now())
}

// StartedCount returns how many processes have recorded a start.
func (s *Service) StartedCount() int {
	return s.started.Len()
}

// EndedCount returns how many processes have recorded an end.
func (s *Service) EndedCount() int {
	return s.ended.Len()
}

// Snapshot returns the lifecycle records of every started process.
func (s *Service) Snapshot() map[process.ID]Record {
	out := make(map[process.ID]Record, s.started.Len())
	s.started.Range(func(key uint64, started time.Time) bool {
		record := Record{Started: started}
		if ended, ok := s.ended.Get(key); ok {
			record.Ended = &ended
		}
		out[process.ID(key)] = record
		return true
	})
	return out
}

// Elapsed returns the duration between the earliest recorded start and
// the latest recorded end. The second result is false until at least one
// process has both timestamps.
func (s *Service) Elapsed() (time.Duration, bool) {
	var minStart, maxEnd time.Time
	s.started.Range(func(_ uint64, started time.Time) bool {
		if minStart.IsZero() || started.Before(minStart) {
			minStart = started
		}
		return true
	})
	s.ended.Range(func(_ uint64, ended time.Time) bool {
		if ended.After(maxEnd) {
			maxEnd = ended
		}
		return true
	})
	if minStart.IsZero() || maxEnd.IsZero() {
		return 0, false
	}
	return maxEnd.Sub(minStart), true
}
