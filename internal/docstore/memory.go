// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Memory is an in-process Store. Commit stages every operation on copies
// and only swaps them in when all of them succeed.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	commitHook  func(ops []Op) error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]map[string]any)}
}

// OnCommit installs a hook called before each Commit is applied. A non-nil
// error from the hook aborts the commit with nothing written.
func (m *Memory) OnCommit(hook func(ops []Op) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitHook = hook
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, collection, id string, dst any) error {
	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	var b []byte
	var err error
	if ok {
		b, err = json.Marshal(doc)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("memory get %s/%s: %w", collection, id, err)
	}
	return json.Unmarshal(b, dst)
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, collection, id string, doc any) error {
	return m.Commit(ctx, []Op{SetOp(collection, id, doc)})
}

// Update implements Store.
func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return m.Commit(ctx, []Op{UpdateOp(collection, id, fields)})
}

// Query implements Store.
func (m *Memory) Query(_ context.Context, q Query) ([]Snapshot, error) {
	wants := make([]any, len(q.Filters))
	for i, f := range q.Filters {
		v, err := toScalar(f.Value)
		if err != nil {
			return nil, fmt.Errorf("memory query filter %s: %w", f.Field, err)
		}
		wants[i] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[q.Collection]
	ids := slices.Sorted(maps.Keys(docs))

	var out []Snapshot
	for _, id := range ids {
		doc := docs[id]
		ok := true
		for i, f := range q.Filters {
			if !matches(doc[f.Field], f.Op, wants[i]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("memory query %s/%s: %w", q.Collection, id, err)
		}
		out = append(out, Snapshot{ID: id, Data: b})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// Commit implements Store.
func (m *Memory) Commit(_ context.Context, ops []Op) error {
	if err := validateBatch(ops); err != nil {
		return err
	}

	// Normalize outside the lock; encoding errors abort before anything is staged.
	encoded := make([]map[string]any, len(ops))
	for i, op := range ops {
		var err error
		if op.Kind == OpDelete {
			continue
		}
		if op.Kind == OpSet {
			encoded[i], err = toMap(op.Doc)
		} else {
			encoded[i], err = toMap(op.Fields)
		}
		if err != nil {
			return fmt.Errorf("memory commit %s/%s: %w", op.Collection, op.ID, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.commitHook != nil {
		if err := m.commitHook(ops); err != nil {
			return err
		}
	}

	type key struct{ collection, id string }
	staged := make(map[key]map[string]any)
	lookup := func(k key) (map[string]any, bool) {
		if doc, ok := staged[k]; ok {
			return doc, doc != nil
		}
		doc, ok := m.collections[k.collection][k.id]
		if !ok {
			return nil, false
		}
		return maps.Clone(doc), true
	}

	for i, op := range ops {
		k := key{op.Collection, op.ID}
		switch op.Kind {
		case OpSet:
			staged[k] = encoded[i]
		case OpUpdate, OpMerge:
			doc, ok := lookup(k)
			if !ok {
				if op.Kind == OpUpdate {
					return fmt.Errorf("memory commit update %s/%s: %w", op.Collection, op.ID, ErrNotFound)
				}
				doc = make(map[string]any)
			}
			maps.Copy(doc, encoded[i])
			staged[k] = doc
		case OpDelete:
			staged[k] = nil
		default:
			return fmt.Errorf("memory commit: unknown op kind %d", op.Kind)
		}
	}

	for k, doc := range staged {
		if doc == nil {
			delete(m.collections[k.collection], k.id)
			continue
		}
		coll, ok := m.collections[k.collection]
		if !ok {
			coll = make(map[string]map[string]any)
			m.collections[k.collection] = coll
		}
		coll[k.id] = doc
	}
	return nil
}

// Count returns the number of documents in a collection.
func (m *Memory) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}
