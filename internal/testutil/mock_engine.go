package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lokie-ree/aida-sub001/internal/retrieval"
)

// MockEngine implements retrieval.Engine with canned items.
type MockEngine struct {
	Items []retrieval.Item // returned on every search
	Err   error            // if set, Search returns this error
	Panic bool             // if set, Search panics

	mu        sync.Mutex
	calls     int
	lastQuery string
	lastScope string
	lastLimit int
}

// NewMockEngine returns an engine holding n numbered items.
func NewMockEngine(n int) *MockEngine {
	items := make([]retrieval.Item, n)
	for i := range items {
		items[i] = retrieval.Item{
			Content:     fmt.Sprintf("Policy excerpt %d.", i+1),
			SourceLabel: fmt.Sprintf("Board Policy %d", 5100+i),
			Relevance:   float64(n - i),
		}
	}
	return &MockEngine{Items: items}
}

// Search returns the configured items or failure.
func (m *MockEngine) Search(_ context.Context, query, scopeID string, limit int) (*retrieval.Result, error) {
	m.mu.Lock()
	m.calls++
	m.lastQuery, m.lastScope, m.lastLimit = query, scopeID, limit
	m.mu.Unlock()

	if m.Panic {
		panic("mock engine panic")
	}
	if m.Err != nil {
		return nil, m.Err
	}
	items := m.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return &retrieval.Result{Items: items, ConcatenatedText: retrieval.Concatenate(items)}, nil
}

// Calls returns the number of Search calls.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastSearch returns the arguments of the most recent search.
func (m *MockEngine) LastSearch() (query, scopeID string, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery, m.lastScope, m.lastLimit
}
