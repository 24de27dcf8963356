package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/storage/sqlwhere"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: mysql %s: %w", domain.ErrStore, op, err)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertBatch writes rs as one multi-row upsert inside a single transaction.
func (r *Repo) UpsertBatch(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*14) // 14 params per row
	for _, rv := range rs {
		cats, err := json.Marshal(categoriesOrEmpty(rv.ReviewCategories))
		if err != nil {
			return storeErr("encode categories", err)
		}
		values = append(values, upsertRow)
		args = append(args,
			uuid.NewString(), // id, kept only on insert
			rv.SourceID,
			string(rv.Source),
			rv.PropertyID,
			rv.PropertyName,
			rv.GuestName,
			rv.Rating,
			rv.PublicReview,
			valStr(rv.PrivateNotes),
			string(cats),
			rv.Channel,
			rv.ReviewType,
			rv.SubmittedAt.UTC(),
			rv.Status,
		)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return storeErr("upsert reviews", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func (r *Repo) SetApproval(ctx context.Context, id string, approved, display bool) (domain.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, storeErr("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// MySQL reports 0 affected rows for a no-op update, so existence is
	// decided by the read-back below rather than RowsAffected.
	if _, err := tx.ExecContext(ctx, setApprovalSQL, approved, display, id); err != nil {
		return domain.Review{}, storeErr("set approval", err)
	}
	rv, err := scanReview(tx.QueryRowContext(ctx, getReviewSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, storeErr("get review", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Review{}, storeErr("commit", err)
	}
	return rv, nil
}

func (r *Repo) Find(ctx context.Context, q domain.StoreQuery) ([]domain.Review, error) {
	b := sqlwhere.New(sqlwhere.MySQL)
	where, err := b.Where(q.Where)
	if err != nil {
		return nil, err
	}
	order, err := b.OrderBy(q.Order)
	if err != nil {
		return nil, err
	}
	sqlStr := selectReviewsSQL + where + order + b.Page(q.Skip, q.Take)

	rows, err := r.db.QueryContext(ctx, sqlStr, b.Args...)
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
	b := sqlwhere.New(sqlwhere.MySQL)
	w, err := b.Where(where)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, countReviewsSQL+w, b.Args...).Scan(&n); err != nil {
		return 0, storeErr("count reviews", err)
	}
	return n, nil
}

func scanReview(s scanner) (domain.Review, error) {
	var (
		rv      domain.Review
		source  string
		private sql.NullString
		catsRaw []byte
	)
	if err := s.Scan(
		&rv.ID,
		&rv.SourceID,
		&source,
		&rv.PropertyID,
		&rv.PropertyName,
		&rv.GuestName,
		&rv.Rating,
		&rv.PublicReview,
		&private,
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
	if private.Valid {
		s := private.String
		rv.PrivateNotes = &s
	}
	rv.ReviewCategories = []domain.Category{}
	if len(catsRaw) > 0 {
		if err := json.Unmarshal(catsRaw, &rv.ReviewCategories); err != nil {
			return domain.Review{}, fmt.Errorf("decode review_categories: %w", err)
		}
	}
	return rv, nil
}

func categoriesOrEmpty(cs []domain.Category) []domain.Category {
	if cs == nil {
		return []domain.Category{}
	}
	return cs
}
