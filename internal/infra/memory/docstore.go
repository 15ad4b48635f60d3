package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"bookfair-service/internal/docstore"
)

// DocStore is an in-memory implementation of docstore.Store, used when no
// Postgres is configured and as the fixture store in tests.
type DocStore struct {
	mu          sync.RWMutex
	clock       func() time.Time
	collections map[string][]docstore.Document
}

func NewDocStore() *DocStore {
	return &DocStore{
		clock:       time.Now,
		collections: make(map[string][]docstore.Document),
	}
}

// NewDocStoreWithClock allows deterministic timestamps in tests.
func NewDocStoreWithClock(now func() time.Time) *DocStore {
	s := NewDocStore()
	s.clock = now
	return s
}

func (s *DocStore) Create(_ context.Context, collection string, data any) (docstore.Document, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("marshal document: %w", err)
	}
	doc := docstore.Document{
		ID:        docstore.NewID(),
		CreatedAt: s.clock(),
		Data:      raw,
	}
	s.mu.Lock()
	s.collections[collection] = append(s.collections[collection], doc)
	s.mu.Unlock()
	return doc, nil
}

func (s *DocStore) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.collections[collection] {
		if doc.ID == id {
			return doc, nil
		}
	}
	return docstore.Document{}, docstore.ErrNotFound
}

func (s *DocStore) List(_ context.Context, collection string, opts ...docstore.Option) ([]docstore.Document, error) {
	q := docstore.Build(opts...)

	s.mu.RLock()
	docs := make([]docstore.Document, len(s.collections[collection]))
	copy(docs, s.collections[collection])
	s.mu.RUnlock()

	if len(q.Filters) > 0 {
		filtered := docs[:0]
		for _, doc := range docs {
			if matches(doc, q.Filters) {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
	}

	if len(q.Orders) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			return less(docs[i], docs[j], q.Orders)
		})
	}

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func (s *DocStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.collections[collection])), nil
}

func (s *DocStore) Update(_ context.Context, collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, doc := range s.collections[collection] {
		if doc.ID == id {
			s.collections[collection][i].Data = raw
			return nil
		}
	}
	return docstore.ErrNotFound
}

func (s *DocStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	for i, doc := range docs {
		if doc.ID == id {
			s.collections[collection] = append(docs[:i], docs[i+1:]...)
			return nil
		}
	}
	return docstore.ErrNotFound
}

func matches(doc docstore.Document, filters []docstore.Filter) bool {
	fields := decodeFields(doc)
	for _, f := range filters {
		got, ok := fields[f.Field]
		if !ok || fmt.Sprint(got) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func less(a, b docstore.Document, orders []docstore.Order) bool {
	for _, o := range orders {
		cmp := compareField(a, b, o.Field)
		if cmp == 0 {
			continue
		}
		if o.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

func compareField(a, b docstore.Document, field string) int {
	if field == "created_at" {
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		default:
			return 0
		}
	}
	av, bv := decodeFields(a)[field], decodeFields(b)[field]
	if af, aok := av.(float64); aok {
		if bf, bok := bv.(float64); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := fmt.Sprint(av), fmt.Sprint(bv)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func decodeFields(doc docstore.Document) map[string]any {
	fields := map[string]any{}
	_ = json.Unmarshal(doc.Data, &fields)
	return fields
}
