// Package memory is a process-local ReviewStore. It honours the same
// upsert, ordering and pagination contract as the SQL stores.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"flex_reviews/internal/domain"
)

type Store struct {
	mu   sync.RWMutex
	rows map[string]domain.Review // by id
	keys map[naturalKey]string    // (sourceId, source) -> id
	// FailOn, when set, is consulted before each UpsertBatch; a non-nil
	// result aborts the batch without applying any of it.
	FailOn func(batch []domain.Review) error
}

type naturalKey struct {
	sourceID string
	source   domain.Source
}

func New() *Store {
	return &Store{rows: map[string]domain.Review{}, keys: map[naturalKey]string{}}
}

func (s *Store) UpsertBatch(ctx context.Context, rs []domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailOn != nil {
		if err := s.FailOn(rs); err != nil {
			return err
		}
	}
	for _, r := range rs {
		r = clone(r)
		k := naturalKey{r.SourceID, r.Source}
		if id, ok := s.keys[k]; ok {
			prev := s.rows[id]
			r.ID, r.Approved, r.DisplayOnWebsite = id, prev.Approved, prev.DisplayOnWebsite
		} else {
			r.ID = uuid.NewString()
			r.Approved, r.DisplayOnWebsite = false, false
			s.keys[k] = r.ID
		}
		s.rows[r.ID] = r
	}
	return nil
}

func (s *Store) SetApproval(ctx context.Context, id string, approved, display bool) (domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	r.Approved, r.DisplayOnWebsite = approved, display
	s.rows[id] = r
	return clone(r), nil
}

func (s *Store) Find(ctx context.Context, q domain.StoreQuery) ([]domain.Review, error) {
	s.mu.RLock()
	out := make([]domain.Review, 0, len(s.rows))
	for _, r := range s.rows {
		if domain.Match(q.Where, r) {
			out = append(out, clone(r))
		}
	}
	s.mu.RUnlock()

	sortReviews(out, q.Order)
	if q.Skip >= len(out) {
		return []domain.Review{}, nil
	}
	out = out[q.Skip:]
	if q.Take > 0 && q.Take < len(out) {
		out = out[:q.Take]
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, where domain.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rows {
		if domain.Match(where, r) {
			n++
		}
	}
	return n, nil
}

// sortReviews orders by the requested field, then id, so pages are stable.
func sortReviews(rs []domain.Review, o domain.Order) {
	field := o.Field
	if field == "" {
		field = domain.FieldSubmittedAt
	}
	sort.Slice(rs, func(i, j int) bool {
		c, _ := domain.Compare(domain.FieldValue(rs[i], field), domain.FieldValue(rs[j], field))
		if c == 0 {
			return rs[i].ID < rs[j].ID
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	})
}

func clone(r domain.Review) domain.Review {
	r.ReviewCategories = cloneCategories(r.ReviewCategories)
	if r.PrivateNotes != nil {
		n := *r.PrivateNotes
		r.PrivateNotes = &n
	}
	return r
}

func cloneCategories(cs []domain.Category) []domain.Category {
	return append([]domain.Category{}, cs...)
}
