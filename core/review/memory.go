package review

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/authenticwalk/context-grounded-bible/core/errors"
	"github.com/authenticwalk/context-grounded-bible/core/source"
)

// MemoryStore is an in-memory Store for tests and single-run pipelines.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Item)}
}

func (s *MemoryStore) Put(_ context.Context, it *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[it.ID]; ok {
		return errors.NewValidation("id", "duplicate item id "+it.ID)
	}
	for _, other := range s.items {
		if other.TokenID == it.TokenID && other.FieldName == it.FieldName && other.Version == it.Version {
			return errors.NewValidation("version",
				"duplicate version for "+it.TokenID+"/"+string(it.FieldName))
		}
	}
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, errors.NewNotFound("review item", id)
	}
	cp := *it
	return &cp, nil
}

func (s *MemoryStore) Latest(_ context.Context, tokenID string, field source.FieldName) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Item
	for _, it := range s.items {
		if it.TokenID != tokenID || it.FieldName != field {
			continue
		}
		if latest == nil || it.Version > latest.Version {
			latest = it
		}
	}
	if latest == nil {
		return nil, errors.NewNotFound("review item", tokenID+"/"+string(field))
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Item
	for _, it := range s.items {
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if f.Reason != "" && it.Reason != f.Reason {
			continue
		}
		if f.TokenPrefix != "" && !strings.HasPrefix(it.TokenID, f.TokenPrefix) {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, it *Item, from Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[it.ID]
	if !ok {
		return errors.NewNotFound("review item", it.ID)
	}
	if stored.Status != from {
		return &errors.VersionConflictError{ItemID: it.ID, Expected: string(from)}
	}
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &Stats{
		ByStatus: make(map[Status]int),
		ByReason: make(map[string]int),
	}
	for _, it := range s.items {
		st.Total++
		st.ByStatus[it.Status]++
		st.ByReason[it.Reason]++
	}
	return st, nil
}

func (s *MemoryStore) Close() error { return nil }
