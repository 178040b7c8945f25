package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Memory is an in-process Store used in development mode and in tests.
// Snapshots are fanned out synchronously after every successful write.
type Memory struct {
	mu       sync.Mutex
	data     map[string]map[string]json.RawMessage
	colSubs  map[string]map[int]CollectionHandler
	docSubs  map[string]map[int]DocHandler // key: col + "/" + id
	nextSub  int
}

func NewMemory() *Memory {
	return &Memory{
		data:    map[string]map[string]json.RawMessage{},
		colSubs: map[string]map[int]CollectionHandler{},
		docSubs: map[string]map[int]DocHandler{},
	}
}

func (m *Memory) GetDoc(ctx context.Context, col, id string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[col][id]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), doc...), nil
}

func (m *Memory) SetDoc(ctx context.Context, col, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.data[col] == nil {
		m.data[col] = map[string]json.RawMessage{}
	}
	m.data[col][id] = raw
	m.mu.Unlock()
	m.notify(col, id)
	return nil
}

func (m *Memory) UpdateDoc(ctx context.Context, col, id string, patch map[string]any) error {
	m.mu.Lock()
	existing, ok := m.data[col][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	merged, err := mergePatch(existing, patch)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.data[col][id] = merged
	m.mu.Unlock()
	m.notify(col, id)
	return nil
}

func (m *Memory) DeleteDoc(ctx context.Context, col, id string) error {
	m.mu.Lock()
	delete(m.data[col], id)
	m.mu.Unlock()
	m.notify(col, id)
	return nil
}

func (m *Memory) WatchCollection(col string, fn CollectionHandler) (cancel func()) {
	m.mu.Lock()
	if m.colSubs[col] == nil {
		m.colSubs[col] = map[int]CollectionHandler{}
	}
	id := m.nextSub
	m.nextSub++
	m.colSubs[col][id] = fn
	docs := m.snapshotLocked(col)
	m.mu.Unlock()

	// начальный снимок сразу, как делает удалённый стор
	fn(docs, nil)

	return func() {
		m.mu.Lock()
		delete(m.colSubs[col], id)
		m.mu.Unlock()
	}
}

func (m *Memory) WatchDoc(col, docID string, fn DocHandler) (cancel func()) {
	key := col + "/" + docID
	m.mu.Lock()
	if m.docSubs[key] == nil {
		m.docSubs[key] = map[int]DocHandler{}
	}
	id := m.nextSub
	m.nextSub++
	m.docSubs[key][id] = fn
	data, exists := m.data[col][docID]
	if exists {
		data = append(json.RawMessage(nil), data...)
	}
	m.mu.Unlock()

	fn(data, exists, nil)

	return func() {
		m.mu.Lock()
		delete(m.docSubs[key], id)
		m.mu.Unlock()
	}
}

func (m *Memory) snapshotLocked(col string) []Document {
	docs := make([]Document, 0, len(m.data[col]))
	for id, raw := range m.data[col] {
		docs = append(docs, Document{ID: id, Data: append(json.RawMessage(nil), raw...)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

func (m *Memory) notify(col, docID string) {
	m.mu.Lock()
	docs := m.snapshotLocked(col)
	colFns := make([]CollectionHandler, 0, len(m.colSubs[col]))
	for _, fn := range m.colSubs[col] {
		colFns = append(colFns, fn)
	}
	key := col + "/" + docID
	docFns := make([]DocHandler, 0, len(m.docSubs[key]))
	for _, fn := range m.docSubs[key] {
		docFns = append(docFns, fn)
	}
	data, exists := m.data[col][docID]
	if exists {
		data = append(json.RawMessage(nil), data...)
	}
	m.mu.Unlock()

	for _, fn := range colFns {
		fn(docs, nil)
	}
	for _, fn := range docFns {
		fn(data, exists, nil)
	}
}
