package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/tame-insitu/sensor-daily-stats/internal/daily"
)

var (
	// ErrNotFound is returned when no run result is recorded for a sensor.
	ErrNotFound = errors.New("no run result for sensor")
)

// MemoryStore is a concurrency-safe in-memory store of the most recent
// per-sensor pipeline run result. Durable state lives in the statistics logs
// themselves; this store only backs the status API.
type MemoryStore struct {
	mu sync.RWMutex

	// key: sensor identifier
	results map[string]daily.RunResult
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]daily.RunResult),
	}
}

// SaveResult records the outcome of a sensor's most recent run, replacing any
// earlier one.
func (s *MemoryStore) SaveResult(res daily.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.Sensor] = res
}

// Get returns the last recorded run result for a sensor.
func (s *MemoryStore) Get(sensor string) (daily.RunResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.results[sensor]
	if !ok {
		return daily.RunResult{}, ErrNotFound
	}
	return res, nil
}

// All returns the last run result for every sensor, sorted by sensor id.
func (s *MemoryStore) All() []daily.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]daily.RunResult, 0, len(s.results))
	for _, res := range s.results {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}
