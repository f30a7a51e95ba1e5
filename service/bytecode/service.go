package bytecode

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/afs"
)

// Service loads module bytes from location-addressed storage (local
// paths, s3://, gs://, mem:// and any other scheme afs understands) with
// an in-memory cache so repeated registrations of the same artifact do
// not re-download it.
type Service struct {
	fs    afs.Service
	mu    sync.RWMutex
	cache map[string][]byte
}

// New creates a loader backed by fs.
func New(fs afs.Service) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{fs: fs, cache: make(map[string][]byte)}
}

// Load returns the bytes stored at location.
func (s *Service) Load(ctx context.Context, location string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.cache[location]
	s.mu.RUnlock()
	if ok {
		return data, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to load module from %s: %w", location, err)
	}
	s.mu.Lock()
	s.cache[location] = data
	s.mu.Unlock()
	return data, nil
}

// Refresh discards the cached copy of location so the next Load re-reads
// it from storage.
func (s *Service) Refresh(location string) {
	s.mu.Lock()
	delete(s.cache, location)
	s.mu.Unlock()
}
