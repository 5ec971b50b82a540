package telemetry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// OperationStats aggregates executions of one operation.
type OperationStats struct {
	Operation string
	Count     int64
	Errors    int64
	Total     time.Duration
}

// Average returns the mean duration per execution.
func (s OperationStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Stats is an in-memory Recorder keeping per-operation counters.
type Stats struct {
	mu  sync.Mutex
	ops map[string]*OperationStats
}

// NewStats creates an empty Stats recorder.
func NewStats() *Stats {
	return &Stats{ops: make(map[string]*OperationStats)}
}

// RecordQuery implements Recorder.
func (s *Stats) RecordQuery(ctx context.Context, info QueryInfo) {
	op := info.Operation
	if op == "" {
		op = OperationOf(info.Statement)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.ops[op]
	if !ok {
		entry = &OperationStats{Operation: op}
		s.ops[op] = entry
	}
	entry.Count++
	entry.Total += info.Duration
	if !info.Success {
		entry.Errors++
	}
}

// Snapshot returns a copy of the counters sorted by operation.
func (s *Stats) Snapshot() []OperationStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OperationStats, 0, len(s.ops))
	for _, entry := range s.ops {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// Reset clears all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = make(map[string]*OperationStats)
}

var _ Recorder = (*Stats)(nil)
