// Package sqlwhere renders domain predicate trees as parameterised SQL.
package sqlwhere

import (
	"fmt"
	"strconv"
	"strings"

	"flex_reviews/internal/domain"
)

type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

var (
	MySQL    = Dialect{Name: "mysql", Placeholder: func(int) string { return "?" }}
	Postgres = Dialect{Name: "postgres", Placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
)

var columns = map[domain.Field]string{
	domain.FieldPropertyID:       "property_id",
	domain.FieldPropertyName:     "property_name",
	domain.FieldChannel:          "channel",
	domain.FieldRating:           "rating",
	domain.FieldSubmittedAt:      "submitted_at",
	domain.FieldApproved:         "approved",
	domain.FieldDisplayOnWebsite: "display_on_website",
}

// Column returns the column backing f.
func Column(f domain.Field) (string, error) {
	c, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("sqlwhere: unknown field %q", f)
	}
	return c, nil
}

// Query accumulates clauses and their bind arguments in order.
type Query struct {
	d    Dialect
	Args []any
}

func New(d Dialect) *Query { return &Query{d: d} }

func (q *Query) bind(v any) string {
	q.Args = append(q.Args, v)
	return q.d.Placeholder(len(q.Args))
}

// Where renders p as " WHERE ..." or "" when p matches everything.
func (q *Query) Where(p domain.Predicate) (string, error) {
	cond, err := q.cond(p)
	if err != nil || cond == "" {
		return "", err
	}
	return " WHERE " + cond, nil
}

func (q *Query) cond(p domain.Predicate) (string, error) {
	switch n := p.(type) {
	case nil:
		return "", nil
	case domain.And:
		parts := make([]string, 0, len(n))
		for _, c := range n {
			s, err := q.cond(c)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " AND "), nil
	case domain.Eq:
		return q.binary(n.Field, "=", n.Value)
	case domain.Gte:
		return q.binary(n.Field, ">=", n.Value)
	case domain.Lte:
		return q.binary(n.Field, "<=", n.Value)
	case domain.Range:
		col, err := Column(n.Field)
		if err != nil {
			return "", err
		}
		lo := q.bind(n.Min)
		hi := q.bind(n.Max)
		return col + " BETWEEN " + lo + " AND " + hi, nil
	}
	return "", fmt.Errorf("sqlwhere: unsupported predicate %T", p)
}

func (q *Query) binary(f domain.Field, op string, v any) (string, error) {
	col, err := Column(f)
	if err != nil {
		return "", err
	}
	return col + " " + op + " " + q.bind(v), nil
}

// OrderBy renders the sort with id as a stable tie-breaker.
func (q *Query) OrderBy(o domain.Order) (string, error) {
	f := o.Field
	if f == "" {
		f = domain.FieldSubmittedAt
	}
	col, err := Column(f)
	if err != nil {
		return "", err
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", id ASC", nil
}

// Page renders LIMIT/OFFSET. take == 0 means unbounded.
func (q *Query) Page(skip, take int) string {
	switch {
	case take > 0 && skip > 0:
		return " LIMIT " + q.bind(take) + " OFFSET " + q.bind(skip)
	case take > 0:
		return " LIMIT " + q.bind(take)
	case skip > 0 && q.d.Name == "mysql":
		// MySQL has no bare OFFSET
		return " LIMIT 18446744073709551615 OFFSET " + q.bind(skip)
	case skip > 0:
		return " OFFSET " + q.bind(skip)
	}
	return ""
}
