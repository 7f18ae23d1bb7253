// Package tslog provides read access to recorded telemetry: time-stamped
// numeric sample arrays addressed by key. The extraction engine consumes the
// Source interface; MemoryLog backs tests and generator staging, SQLiteLog
// backs the service.
package tslog

import (
	"sort"
	"sync"
)

// Sample is one telemetry record: a timestamp in seconds since log start and
// the raw numeric values. Returned samples are read-only; callers must not
// mutate Values.
type Sample struct {
	Timestamp float64
	Values    []float64
}

// Source is the query surface the rendering core reads telemetry through.
// Absence of a key or of matching samples yields "no data", never an error.
type Source interface {
	// SampleAtOrBefore returns the latest sample with Timestamp <= t.
	SampleAtOrBefore(key string, t float64) (Sample, bool)

	// SampleRange returns samples ordered by timestamp covering [t0, t1].
	// The result additionally includes the boundary-adjacent samples just
	// outside the window when present (the last sample at-or-before t0 and
	// the first sample at-or-after t1), so step-hold consumers can evaluate
	// the window edges.
	SampleRange(key string, t0, t1 float64) []Sample

	// History returns the full recorded series for the key in timestamp
	// order.
	History(key string) []Sample

	// Latest returns the newest sample recorded for the key.
	Latest(key string) (Sample, bool)
}

// MemoryLog is an in-memory Source keeping each series sorted by timestamp.
type MemoryLog struct {
	mu     sync.RWMutex
	series map[string][]Sample
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{series: make(map[string][]Sample)}
}

// Append records a sample for the key, keeping the series ordered. Values
// are copied.
func (l *MemoryLog) Append(key string, s Sample) {
	vals := make([]float64, len(s.Values))
	copy(vals, s.Values)
	s.Values = vals

	l.mu.Lock()
	defer l.mu.Unlock()

	series := l.series[key]
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp > s.Timestamp
	})
	series = append(series, Sample{})
	copy(series[idx+1:], series[idx:])
	series[idx] = s
	l.series[key] = series
}

// Keys returns all recorded keys in sorted order.
func (l *MemoryLog) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.series))
	for key := range l.series {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SampleAtOrBefore returns the latest sample with Timestamp <= t.
func (l *MemoryLog) SampleAtOrBefore(key string, t float64) (Sample, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	series := l.series[key]
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp > t
	})
	if idx == 0 {
		return Sample{}, false
	}
	return series[idx-1], true
}

// SampleRange returns the ordered samples covering [t0, t1] including the
// boundary-adjacent samples just outside the window.
func (l *MemoryLog) SampleRange(key string, t0, t1 float64) []Sample {
	l.mu.RLock()
	defer l.mu.RUnlock()

	series := l.series[key]
	if len(series) == 0 {
		return nil
	}

	// First index strictly inside the window, then widen one step each way.
	lo := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp > t0
	})
	if lo > 0 {
		lo--
	}
	hi := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp >= t1
	})
	if hi < len(series) {
		hi++
	}
	if lo >= hi {
		return nil
	}

	out := make([]Sample, hi-lo)
	copy(out, series[lo:hi])
	return out
}

// History returns the full series for the key.
func (l *MemoryLog) History(key string) []Sample {
	l.mu.RLock()
	defer l.mu.RUnlock()

	series := l.series[key]
	if len(series) == 0 {
		return nil
	}
	out := make([]Sample, len(series))
	copy(out, series)
	return out
}

// Latest returns the newest sample for the key.
func (l *MemoryLog) Latest(key string) (Sample, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	series := l.series[key]
	if len(series) == 0 {
		return Sample{}, false
	}
	return series[len(series)-1], true
}
