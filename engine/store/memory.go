// Package store provides engine.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ToniGrindrod/MicroInsure-no-data/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	policies     map[string]engine.Policy
	transactions map[string][]engine.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		policies:     make(map[string]engine.Policy),
		transactions: make(map[string][]engine.Transaction),
	}
}

// PutPolicy inserts or replaces a policy record.
func (m *Memory) PutPolicy(p engine.Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.Certificate] = p
}

// AddTransactions appends transaction records.
func (m *Memory) AddTransactions(txns ...engine.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txns {
		m.transactions[tx.PolicyRef] = append(m.transactions[tx.PolicyRef], tx)
	}
}

func (m *Memory) Policy(_ context.Context, certificate string) (engine.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[certificate]
	if !ok {
		return engine.Policy{}, engine.ErrPolicyNotFound
	}
	return p, nil
}

func (m *Memory) PoliciesByGroup(_ context.Context, groupID string) ([]engine.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []engine.Policy
	for _, p := range m.policies {
		if p.GroupID == groupID {
			result = append(result, p)
		}
	}
	// Map iteration order is random; keep results deterministic.
	sort.Slice(result, func(i, j int) bool {
		return result[i].Certificate < result[j].Certificate
	})
	return result, nil
}

func (m *Memory) TransactionsByPolicy(_ context.Context, certificate string) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]engine.Transaction, len(m.transactions[certificate]))
	copy(result, m.transactions[certificate])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (m *Memory) ActiveGroupIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var result []string
	for _, p := range m.policies {
		if p.GroupID == "" || seen[p.GroupID] {
			continue
		}
		if p.StatusName == engine.StatusActive || p.StatusName == engine.StatusActivePolicy {
			seen[p.GroupID] = true
			result = append(result, p.GroupID)
		}
	}
	sort.Strings(result)
	return result, nil
}
