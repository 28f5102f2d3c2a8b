// Package store provides RowStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/shenglong/mealboard/mealplan"
)

// =============================================================================
// MEMORY STORE - In-memory row table (for testing/dev)
// =============================================================================

// Memory keeps the reservation table in a map keyed by row identity.
// Upserts overwrite by key, exactly like the remote table.
type Memory struct {
	mu   sync.RWMutex
	rows map[mealplan.RowKey]mealplan.Row
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[mealplan.RowKey]mealplan.Row)}
}

// LoadRange returns all rows with meal_date in [start, end]. DateFormat
// strings compare lexicographically, so plain string comparison suffices.
// Order is unspecified (map iteration), matching the store contract.
func (m *Memory) LoadRange(_ context.Context, start, end string) ([]mealplan.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []mealplan.Row
	for key, row := range m.rows {
		if key.MealDate >= start && key.MealDate <= end {
			result = append(result, row)
		}
	}
	return result, nil
}

// Upsert writes one row, replacing any row with the same key.
func (m *Memory) Upsert(_ context.Context, row mealplan.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.Key()] = row
	return nil
}

// UpsertBatch writes all rows. The in-memory table serializes writes behind
// one mutex anyway, so the rows are applied in a single critical section.
func (m *Memory) UpsertBatch(_ context.Context, rows []mealplan.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		m.rows[row.Key()] = row
	}
	return nil
}

// DeleteByKey removes at most one row; a no-op if absent.
func (m *Memory) DeleteByKey(_ context.Context, key mealplan.RowKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

// DeleteByPerson removes every row for the person across all dates.
func (m *Memory) DeleteByPerson(_ context.Context, personName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.rows {
		if key.PersonName == personName {
			delete(m.rows, key)
		}
	}
	return nil
}

// Len returns the number of stored rows (test helper).
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

// Get returns the stored row for key (test helper).
func (m *Memory) Get(key mealplan.RowKey) (mealplan.Row, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[key]
	return row, ok
}
