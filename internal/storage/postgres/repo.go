package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/storage/sqlwhere"
)

const reviewColumns = `id::text, source_id, source, property_id, property_name, guest_name, rating,
public_review, private_notes, review_categories, channel, review_type, submitted_at, status,
approved, display_on_website`

// approved and display_on_website are left alone on conflict.
const upsertReviewSQL = `
INSERT INTO reviews
  (id, source_id, source, property_id, property_name, guest_name, rating, public_review,
   private_notes, review_categories, channel, review_type, submitted_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (source_id, source) DO UPDATE SET
  property_id       = EXCLUDED.property_id,
  property_name     = EXCLUDED.property_name,
  guest_name        = EXCLUDED.guest_name,
  rating            = EXCLUDED.rating,
  public_review     = EXCLUDED.public_review,
  private_notes     = EXCLUDED.private_notes,
  review_categories = EXCLUDED.review_categories,
  channel           = EXCLUDED.channel,
  review_type       = EXCLUDED.review_type,
  submitted_at      = EXCLUDED.submitted_at,
  status            = EXCLUDED.status,
  updated_at        = now()
`

const setApprovalSQL = `
UPDATE reviews
SET approved = $1, display_on_website = $2, updated_at = now()
WHERE id::text = $3
RETURNING ` + reviewColumns

type Repo struct{ db *pgxpool.Pool }

func New(db *pgxpool.Pool) *Repo { return &Repo{db: db} }

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: postgres %s: %w", domain.ErrStore, op, err)
}

// UpsertBatch queues one upsert per review and sends them in a single
// transaction; any failure rolls the whole batch back.
func (r *Repo) UpsertBatch(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rv := range rs {
		cats := rv.ReviewCategories
		if cats == nil {
			cats = []domain.Category{}
		}
		raw, err := json.Marshal(cats)
		if err != nil {
			return storeErr("encode categories", err)
		}
		batch.Queue(upsertReviewSQL,
			uuid.NewString(),
			rv.SourceID,
			string(rv.Source),
			rv.PropertyID,
			rv.PropertyName,
			rv.GuestName,
			rv.Rating,
			rv.PublicReview,
			rv.PrivateNotes,
			string(raw),
			rv.Channel,
			rv.ReviewType,
			rv.SubmittedAt.UTC(),
			rv.Status,
		)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return storeErr("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for i := range rs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return storeErr(fmt.Sprintf("upsert review[%d]", i), err)
		}
	}
	if err := br.Close(); err != nil {
		return storeErr("close batch", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func (r *Repo) SetApproval(ctx context.Context, id string, approved, display bool) (domain.Review, error) {
	rv, err := scanReview(r.db.QueryRow(ctx, setApprovalSQL, approved, display, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, storeErr("set approval", err)
	}
	return rv, nil
}

func (r *Repo) Find(ctx context.Context, q domain.StoreQuery) ([]domain.Review, error) {
	b := sqlwhere.New(sqlwhere.Postgres)
	where, err := b.Where(q.Where)
	if err != nil {
		return nil, err
	}
	order, err := b.OrderBy(q.Order)
	if err != nil {
		return nil, err
	}
	sqlStr := "SELECT " + reviewColumns + " FROM reviews" + where + order + b.Page(q.Skip, q.Take)

	rows, err := r.db.Query(ctx, sqlStr, b.Args...)
	if err != nil {
		return nil, storeErr("find reviews", err)
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, storeErr("scan review", err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate reviews", err)
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, where domain.Predicate) (int, error) {
	b := sqlwhere.New(sqlwhere.Postgres)
	w, err := b.Where(where)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM reviews"+w, b.Args...).Scan(&n); err != nil {
		return 0, storeErr("count reviews", err)
	}
	return n, nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var (
		rv      domain.Review
		source  string
		catsRaw []byte
	)
	if err := row.Scan(
		&rv.ID,
		&rv.SourceID,
		&source,
		&rv.PropertyID,
		&rv.PropertyName,
		&rv.GuestName,
		&rv.Rating,
		&rv.PublicReview,
		&rv.PrivateNotes,
		&catsRaw,
		&rv.Channel,
		&rv.ReviewType,
		&rv.SubmittedAt,
		&rv.Status,
		&rv.Approved,
		&rv.DisplayOnWebsite,
	); err != nil {
		return domain.Review{}, err
	}
	rv.Source = domain.Source(source)
	rv.SubmittedAt = rv.SubmittedAt.UTC()
	rv.ReviewCategories = []domain.Category{}
	if len(catsRaw) > 0 {
		if err := json.Unmarshal(catsRaw, &rv.ReviewCategories); err != nil {
			return domain.Review{}, fmt.Errorf("decode review_categories: %w", err)
		}
	}
	return rv, nil
}
