package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
)

// SyncBatchSize bounds how many upserts share one store transaction.
const SyncBatchSize = 100

// SyncMetrics receives sync progress; observability.SyncMetrics implements it.
type SyncMetrics interface {
	Records(n int)
	Batch(ok bool)
	FetchFailed()
}

type noopMetrics struct{}

func (noopMetrics) Records(int)  {}
func (noopMetrics) Batch(bool)   {}
func (noopMetrics) FetchFailed() {}

type SyncService struct {
	source    domain.ReviewSource
	repo      domain.ReviewStore
	cache     domain.Cache
	metrics   SyncMetrics
	batchSize int
	now       func() time.Time
}

func NewSyncService(src domain.ReviewSource, r domain.ReviewStore, cache domain.Cache) *SyncService {
	return &SyncService{
		source:    src,
		repo:      r,
		cache:     cache,
		metrics:   noopMetrics{},
		batchSize: SyncBatchSize,
		now:       time.Now,
	}
}

// WithMetrics sets the sync progress sink.
func (s *SyncService) WithMetrics(m SyncMetrics) *SyncService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Sync pulls every review for the account and upserts it. It returns the
// number of records processed.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	return s.sync(ctx, "")
}

// SyncListing is Sync scoped to a single listing.
func (s *SyncService) SyncListing(ctx context.Context, listingID string) (int, error) {
	return s.sync(ctx, listingID)
}

func (s *SyncService) sync(ctx context.Context, listingID string) (int, error) {
	// 1) Fetch. Upstream failures degrade to an empty sync instead of an error.
	raw, err := s.source.GetReviews(ctx, listingID)
	if err != nil {
		s.metrics.FetchFailed()
		log.Warn().Err(err).Str("listing", listingID).Msg("review fetch failed; treating as empty")
		return 0, nil
	}
	if len(raw) == 0 {
		return 0, nil
	}

	// 2) Normalize with one ingestion timestamp for the whole run.
	reviews := NormalizeAll(raw, s.now())

	// 3) Upsert in independent batches; earlier batches stay committed
	// if a later one fails.
	done := 0
	defer func() {
		if done > 0 {
			invalidate(ctx, s.cache)
		}
	}()
	for start := 0; start < len(reviews); start += s.batchSize {
		end := min(start+s.batchSize, len(reviews))
		if err := s.repo.UpsertBatch(ctx, reviews[start:end]); err != nil {
			s.metrics.Batch(false)
			return done, fmt.Errorf("upsert batch [%d,%d): %w", start, end, err)
		}
		s.metrics.Batch(true)
		s.metrics.Records(end - start)
		done += end - start
		log.Debug().Int("from", start).Int("to", end).Msg("sync batch committed")
	}

	log.Info().Int("count", done).Str("listing", listingID).Msg("sync completed")
	return done, nil
}

type ApprovalService struct {
	repo  domain.ReviewStore
	cache domain.Cache
}

func NewApprovalService(r domain.ReviewStore, cache domain.Cache) *ApprovalService {
	return &ApprovalService{repo: r, cache: cache}
}

// SetApproval records the staff decision. When DisplayOnWebsite is omitted it
// follows Approved, so approving also publishes.
func (s *ApprovalService) SetApproval(ctx context.Context, id string, a domain.Approval) (domain.Review, error) {
	display := a.Approved
	if a.DisplayOnWebsite != nil {
		display = *a.DisplayOnWebsite
	}
	rv, err := s.repo.SetApproval(ctx, id, a.Approved, display)
	if err != nil {
		return domain.Review{}, err
	}
	invalidate(ctx, s.cache)
	return rv, nil
}
