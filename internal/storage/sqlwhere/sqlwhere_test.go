package sqlwhere_test

import (
	"reflect"
	"testing"
	"time"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/storage/sqlwhere"
)

func TestWhere_Postgres(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	q := sqlwhere.New(sqlwhere.Postgres)
	where, err := q.Where(domain.And{
		domain.Eq{Field: domain.FieldPropertyID, Value: "p1"},
		domain.Eq{Field: domain.FieldApproved, Value: true},
		domain.Range{Field: domain.FieldRating, Min: 3, Max: 5},
		domain.Gte{Field: domain.FieldSubmittedAt, Value: start},
		domain.Lte{Field: domain.FieldSubmittedAt, Value: end},
	})
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	want := " WHERE property_id = $1 AND approved = $2 AND rating BETWEEN $3 AND $4 AND submitted_at >= $5 AND submitted_at <= $6"
	if where != want {
		t.Fatalf("where =\n%q\nwant\n%q", where, want)
	}
	page := q.Page(40, 20)
	if page != " LIMIT $7 OFFSET $8" {
		t.Fatalf("page = %q", page)
	}
	wantArgs := []any{"p1", true, 3, 5, start, end, 20, 40}
	if !reflect.DeepEqual(q.Args, wantArgs) {
		t.Fatalf("args = %#v", q.Args)
	}
}

func TestWhere_MySQL(t *testing.T) {
	q := sqlwhere.New(sqlwhere.MySQL)
	where, err := q.Where(domain.And{
		domain.Eq{Field: domain.FieldChannel, Value: "airbnb"},
		domain.And{},
		domain.Lte{Field: domain.FieldRating, Value: 2},
	})
	if err != nil {
		t.Fatalf("Where: %v", err)
	}
	if where != " WHERE channel = ? AND rating <= ?" {
		t.Fatalf("where = %q", where)
	}
	if len(q.Args) != 2 {
		t.Fatalf("args = %#v", q.Args)
	}
}

func TestWhere_Empty(t *testing.T) {
	for _, p := range []domain.Predicate{nil, domain.And{}, domain.And{domain.And{}}} {
		q := sqlwhere.New(sqlwhere.MySQL)
		if where, err := q.Where(p); err != nil || where != "" || len(q.Args) != 0 {
			t.Fatalf("Where(%#v) = %q, %v", p, where, err)
		}
	}
}

func TestWhere_UnknownField(t *testing.T) {
	q := sqlwhere.New(sqlwhere.MySQL)
	if _, err := q.Where(domain.Eq{Field: "publicReview; DROP TABLE reviews", Value: 1}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestOrderBy(t *testing.T) {
	q := sqlwhere.New(sqlwhere.MySQL)
	cases := map[domain.Order]string{
		{}:                                           " ORDER BY submitted_at ASC, id ASC",
		{Field: domain.FieldRating, Desc: true}:      " ORDER BY rating DESC, id ASC",
		{Field: domain.FieldPropertyName}:            " ORDER BY property_name ASC, id ASC",
		{Field: domain.FieldSubmittedAt, Desc: true}: " ORDER BY submitted_at DESC, id ASC",
	}
	for o, want := range cases {
		got, err := q.OrderBy(o)
		if err != nil || got != want {
			t.Fatalf("OrderBy(%+v) = %q, %v", o, got, err)
		}
	}
}

func TestPage(t *testing.T) {
	cases := []struct {
		d          sqlwhere.Dialect
		skip, take int
		want       string
	}{
		{sqlwhere.MySQL, 0, 0, ""},
		{sqlwhere.MySQL, 0, 20, " LIMIT ?"},
		{sqlwhere.MySQL, 20, 20, " LIMIT ? OFFSET ?"},
		{sqlwhere.MySQL, 20, 0, " LIMIT 18446744073709551615 OFFSET ?"},
		{sqlwhere.Postgres, 20, 0, " OFFSET $1"},
	}
	for _, c := range cases {
		if got := sqlwhere.New(c.d).Page(c.skip, c.take); got != c.want {
			t.Fatalf("%s Page(%d,%d) = %q, want %q", c.d.Name, c.skip, c.take, got, c.want)
		}
	}
}
