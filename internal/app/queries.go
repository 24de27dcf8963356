package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"flex_reviews/internal/domain"
)

// genKey holds the cache generation; bumping it orphans every cached result.
const genKey = "reviews:gen"

type QueryService struct {
	repo     domain.ReviewStore
	cache    domain.Cache
	cacheTTL time.Duration
	mode     domain.CategoryMode
}

func NewQueryService(r domain.ReviewStore, c domain.Cache, ttl time.Duration, mode domain.CategoryMode) *QueryService {
	if mode != domain.CategoryPageLocal {
		mode = domain.CategoryGlobal
	}
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, mode: mode}
}

func (s *QueryService) List(ctx context.Context, f domain.Filters) (domain.ReviewsPage, error) {
	f = withDefaults(f)
	key := s.key(ctx, "list:"+string(s.mode), f)
	var out domain.ReviewsPage
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	out, err := s.list(ctx, f)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// optional size guard
	if b, _ := json.Marshal(out); len(b) < 1_000_000 {
		s.store(ctx, key, out)
	}
	return out, nil
}

func (s *QueryService) list(ctx context.Context, f domain.Filters) (domain.ReviewsPage, error) {
	q := domain.StoreQuery{
		Where: BuildFilter(f),
		Order: OrderBy(f),
		Skip:  (f.Page - 1) * f.Limit,
		Take:  f.Limit,
	}

	var (
		items []domain.Review
		total int
		err   error
	)
	switch {
	case f.Category == "":
		if items, err = s.repo.Find(ctx, q); err != nil {
			return domain.ReviewsPage{}, err
		}
		if total, err = s.repo.Count(ctx, q.Where); err != nil {
			return domain.ReviewsPage{}, err
		}

	case s.mode == domain.CategoryPageLocal:
		// category only sees the fetched page; totals describe that slice
		if items, err = s.repo.Find(ctx, q); err != nil {
			return domain.ReviewsPage{}, err
		}
		items = filterCategory(items, f.Category)
		total = len(items)

	default:
		all, err := s.repo.Find(ctx, domain.StoreQuery{Where: q.Where, Order: q.Order})
		if err != nil {
			return domain.ReviewsPage{}, err
		}
		all = filterCategory(all, f.Category)
		total = len(all)
		items = window(all, q.Skip, q.Take)
	}

	if items == nil {
		items = []domain.Review{}
	}
	return domain.ReviewsPage{Reviews: items, Total: total, Pages: Pages(total, f.Limit)}, nil
}

// Analytics aggregates over the full filter-matched set, ignoring pagination.
func (s *QueryService) Analytics(ctx context.Context, f domain.Filters) (domain.AnalyticsReport, error) {
	f.Page, f.Limit, f.SortBy, f.SortOrder = 0, 0, "", ""
	key := s.key(ctx, "analytics", f)
	var out domain.AnalyticsReport
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	rs, err := s.repo.Find(ctx, domain.StoreQuery{
		Where: BuildFilter(f),
		Order: domain.Order{Field: domain.FieldSubmittedAt, Desc: true},
	})
	if err != nil {
		return domain.AnalyticsReport{}, err
	}
	if f.Category != "" {
		rs = filterCategory(rs, f.Category)
	}

	out = ComputeAnalytics(rs)
	s.store(ctx, key, out)
	return out, nil
}

func window(rs []domain.Review, skip, take int) []domain.Review {
	if skip >= len(rs) {
		return []domain.Review{}
	}
	end := len(rs)
	if take > 0 && skip+take < end {
		end = skip + take
	}
	return append([]domain.Review(nil), rs[skip:end]...)
}

/********** cache plumbing **********/

func (s *QueryService) key(ctx context.Context, kind string, f domain.Filters) string {
	b, _ := json.Marshal(f)
	sum := sha1.Sum(b)
	return fmt.Sprintf("reviews:%s:%d:%s", kind, generation(ctx, s.cache), hex.EncodeToString(sum[:]))
}

func (s *QueryService) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		// unreadable entry: evict so the recomputed result replaces it
		_ = s.cache.Del(ctx, key)
		return false
	}
	return ok
}

func (s *QueryService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, v, int(s.cacheTTL.Seconds()))
}

func generation(ctx context.Context, c domain.Cache) int64 {
	if c == nil {
		return 0
	}
	var gen int64
	if ok, err := c.Get(ctx, genKey, &gen); !ok || err != nil {
		return 0
	}
	return gen
}

func invalidate(ctx context.Context, c domain.Cache) {
	if c == nil {
		return
	}
	_, _ = c.Incr(ctx, genKey)
}
