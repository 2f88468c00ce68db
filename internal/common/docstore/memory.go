// internal/common/docstore/memory.go
package docstore

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	apperrors "innovation-crm/internal/common/errors"

	"github.com/google/uuid"
)

type memoryEntry struct {
	seq  int64
	data map[string]interface{}
}

// MemoryStore is a process-local Store used by tests and single-node setups.
// Data is normalized through JSON on write so reads match PostgresStore.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memoryEntry
	seq         int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]*memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewDocumentStoreError("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.collections[collection][id]
	if !ok {
		return nil, apperrors.NewDocumentNotFoundError(collection, id)
	}
	return &Document{ID: id, Data: cloneData(entry.data)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewDocumentStoreError("set", err)
	}
	normalized, err := normalize(data)
	if err != nil {
		return apperrors.NewDocumentStoreError("set", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*memoryEntry)
		s.collections[collection] = docs
	}
	if existing, ok := docs[id]; ok {
		existing.data = normalized
		return nil
	}
	s.seq++
	docs[id] = &memoryEntry{seq: s.seq, data: normalized}
	return nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewDocumentStoreError("update", err)
	}
	normalized, err := normalize(fields)
	if err != nil {
		return apperrors.NewDocumentStoreError("update", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.collections[collection][id]
	if !ok {
		return apperrors.NewDocumentNotFoundError(collection, id)
	}
	for k, v := range normalized {
		entry.data[k] = v
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewDocumentStoreError("delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewDocumentStoreError("query", err)
	}
	want, err := normalize(nestFilters(q.Filters))
	if err != nil {
		return nil, apperrors.NewDocumentStoreError("query", err)
	}

	s.mu.RLock()
	type hit struct {
		id    string
		entry *memoryEntry
	}
	var hits []hit
	for id, entry := range s.collections[q.Collection] {
		if contains(entry.data, want) {
			hits = append(hits, hit{id: id, entry: entry})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].entry.seq < hits[j].entry.seq })
	if q.OrderBy != "" {
		path := splitPath(q.OrderBy)
		sort.SliceStable(hits, func(i, j int) bool {
			a := lookup(hits[i].entry.data, path)
			b := lookup(hits[j].entry.data, path)
			if q.Descending {
				return compareValues(b, a) < 0
			}
			return compareValues(a, b) < 0
		})
	}

	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, Document{ID: h.id, Data: cloneData(h.entry.data)})
	}
	s.mu.RUnlock()
	return docs, nil
}

func normalize(data map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneData(data map[string]interface{}) map[string]interface{} {
	out, err := normalize(data)
	if err != nil {
		return map[string]interface{}{}
	}
	return out
}

// contains mirrors JSONB @> for objects built from equality filters.
func contains(doc, want map[string]interface{}) bool {
	for k, wv := range want {
		dv, ok := doc[k]
		if !ok {
			return false
		}
		wm, wIsMap := wv.(map[string]interface{})
		dm, dIsMap := dv.(map[string]interface{})
		if wIsMap && dIsMap {
			if !contains(dm, wm) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(dv, wv) {
			return false
		}
	}
	return true
}

func lookup(data map[string]interface{}, path []string) interface{} {
	var cur interface{} = data
	for _, key := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}

// typeRank follows the JSONB sort order: null < string < number < boolean.
func typeRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 1
	case float64:
		return 2
	case bool:
		return 3
	default:
		return 4
	}
}

func compareValues(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case bool:
		bv := b.(bool)
		if av != bv {
			if !av {
				return -1
			}
			return 1
		}
	}
	return 0
}
