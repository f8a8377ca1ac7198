package datastore

import (
	"encoding/json"
	"sync"

	"github.com/nooblyjs/wiki-index-core/internal/errs"
)

// MemStore is an in-process Store used by tests, avoiding a real SQLite
// file per test case.
type MemStore struct {
	mu   sync.Mutex
	data map[string]map[string]json.RawMessage
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]map[string]json.RawMessage)}
}

func (m *MemStore) LoadAll(collection string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.data[collection]
	raw := make([]json.RawMessage, 0, len(rows))
	for _, v := range rows {
		raw = append(raw, v)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return errs.Internal("MemStore.LoadAll", err)
	}
	return json.Unmarshal(b, out)
}

func (m *MemStore) SaveAll(collection string, rows interface{}) error {
	items, err := toRowMap(rows)
	if err != nil {
		return errs.Internal("MemStore.SaveAll", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket := make(map[string]json.RawMessage, len(items))
	for id, v := range items {
		b, err := json.Marshal(v)
		if err != nil {
			return errs.Internal("MemStore.SaveAll.marshal", err)
		}
		bucket[id] = b
	}
	m.data[collection] = bucket
	return nil
}

func (m *MemStore) LoadOne(collection, id string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[collection][id]
	if !ok {
		return errs.NotFound("MemStore.LoadOne", collection+"/"+id, nil)
	}
	return json.Unmarshal(v, out)
}

func (m *MemStore) SaveOne(collection, id string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errs.Internal("MemStore.SaveOne", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[collection] == nil {
		m.data[collection] = make(map[string]json.RawMessage)
	}
	m.data[collection][id] = b
	return nil
}

func (m *MemStore) Close() error { return nil }
