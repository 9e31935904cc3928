package numerator

import (
	"context"
	"sync"
)

// MockGenerator is a test implementation of Generator.
// Without NextDocNumberFunc it keeps per-type counters in memory.
type MockGenerator struct {
	NextDocNumberFunc func(ctx context.Context, cfg Config) (string, error)

	mu       sync.Mutex
	counters map[string]int64
}

// NextDocNumber implements Generator.
func (m *MockGenerator) NextDocNumber(ctx context.Context, cfg Config) (string, error) {
	if m.NextDocNumberFunc != nil {
		return m.NextDocNumberFunc(ctx, cfg)
	}
	cfg = cfg.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[cfg.DocumentType]++
	prefix, padding := cfg.Resolve(DefaultPrefix(cfg.DocumentType), DefaultPadding)
	return Format(prefix, padding, m.counters[cfg.DocumentType]), nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
