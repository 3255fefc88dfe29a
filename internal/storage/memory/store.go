// Package memory provides in-process rule stores and catalogs.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// Store is a concurrent discount.Store keyed by record id with a secondary
// index by owning store.
type Store[R discount.Record] struct {
	kind string

	mu      sync.RWMutex
	byID    map[string]R
	byStore map[string]map[string]struct{}
}

var (
	_ discount.ConditionStore = (*Store[discount.ConditionRecord])(nil)
	_ discount.DiscountStore  = (*Store[discount.DiscountRecord])(nil)
)

// NewStore returns an empty store. kind names the records in not-found
// errors.
func NewStore[R discount.Record](kind string) *Store[R] {
	return &Store[R]{
		kind:    kind,
		byID:    make(map[string]R),
		byStore: make(map[string]map[string]struct{}),
	}
}

// NewConditionStore returns an empty condition store.
func NewConditionStore() *Store[discount.ConditionRecord] {
	return NewStore[discount.ConditionRecord](discount.KindCondition)
}

// NewDiscountStore returns an empty discount store.
func NewDiscountStore() *Store[discount.DiscountRecord] {
	return NewStore[discount.DiscountRecord](discount.KindDiscount)
}

func (s *Store[R]) Save(_ context.Context, r R) error {
	id := r.RecordID()
	if id == "" {
		return discount.Invalidf("%s id is required", s.kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[id]; ok {
		s.unindex(prev)
	}
	s.byID[id] = r
	ids, ok := s.byStore[r.RecordStoreID()]
	if !ok {
		ids = make(map[string]struct{})
		s.byStore[r.RecordStoreID()] = ids
	}
	ids[id] = struct{}{}
	return nil
}

func (s *Store[R]) FindByID(_ context.Context, id string) (R, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return r, &discount.NotFoundError{Kind: s.kind, ID: id}
	}
	return r, nil
}

func (s *Store[R]) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return &discount.NotFoundError{Kind: s.kind, ID: id}
	}
	delete(s.byID, id)
	s.unindex(r)
	return nil
}

func (s *Store[R]) FindAll(_ context.Context) ([]R, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]R, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	sortRecords(out)
	return out, nil
}

func (s *Store[R]) ExistsByID(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[id]
	return ok, nil
}

func (s *Store[R]) Size(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID), nil
}

func (s *Store[R]) FindByStore(_ context.Context, storeID string) ([]R, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byStore[storeID]
	out := make([]R, 0, len(ids))
	for id := range ids {
		out = append(out, s.byID[id])
	}
	sortRecords(out)
	return out, nil
}

// unindex must be called with mu held.
func (s *Store[R]) unindex(r R) {
	ids := s.byStore[r.RecordStoreID()]
	delete(ids, r.RecordID())
	if len(ids) == 0 {
		delete(s.byStore, r.RecordStoreID())
	}
}

func sortRecords[R discount.Record](rs []R) {
	slices.SortFunc(rs, func(a, b R) int {
		return strings.Compare(a.RecordID(), b.RecordID())
	})
}
