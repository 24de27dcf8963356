package app

import (
	"strings"

	"flex_reviews/internal/domain"
)

// BuildFilter translates the store-expressible dimensions of f into a
// predicate tree. Category is not included: it lives inside the nested
// sub-rating list and is applied by the caller.
func BuildFilter(f domain.Filters) domain.And {
	where := domain.And{}
	if f.PropertyID != "" {
		where = append(where, domain.Eq{Field: domain.FieldPropertyID, Value: f.PropertyID})
	}
	if f.Channel != "" {
		where = append(where, domain.Eq{Field: domain.FieldChannel, Value: f.Channel})
	}
	if f.Approved != nil {
		where = append(where, domain.Eq{Field: domain.FieldApproved, Value: *f.Approved})
	}
	if f.DisplayOnWebsite != nil {
		where = append(where, domain.Eq{Field: domain.FieldDisplayOnWebsite, Value: *f.DisplayOnWebsite})
	}

	// exact and range may both apply; a contradiction simply yields no rows
	if f.Rating != nil {
		where = append(where, domain.Eq{Field: domain.FieldRating, Value: *f.Rating})
	}
	if p := bounds(domain.FieldRating, intOrNil(f.MinRating), intOrNil(f.MaxRating)); p != nil {
		where = append(where, p)
	}

	var start, end any
	if f.StartDate != nil {
		start = f.StartDate.UTC()
	}
	if f.EndDate != nil {
		end = f.EndDate.UTC()
	}
	if p := bounds(domain.FieldSubmittedAt, start, end); p != nil {
		where = append(where, p)
	}
	return where
}

func bounds(field domain.Field, lo, hi any) domain.Predicate {
	switch {
	case lo != nil && hi != nil:
		return domain.Range{Field: field, Min: lo, Max: hi}
	case lo != nil:
		return domain.Gte{Field: field, Value: lo}
	case hi != nil:
		return domain.Lte{Field: field, Value: hi}
	}
	return nil
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// OrderBy maps the requested sort; propertyName defaults to ascending,
// everything else to descending.
func OrderBy(f domain.Filters) domain.Order {
	switch f.SortBy {
	case domain.SortRating:
		return domain.Order{Field: domain.FieldRating, Desc: f.SortOrder != domain.SortAsc}
	case domain.SortProperty:
		return domain.Order{Field: domain.FieldPropertyName, Desc: f.SortOrder == domain.SortDesc}
	}
	return domain.Order{Field: domain.FieldSubmittedAt, Desc: f.SortOrder != domain.SortAsc}
}

func withDefaults(f domain.Filters) domain.Filters {
	if f.Page < 1 {
		f.Page = domain.DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = domain.DefaultLimit
	}
	if f.Limit > domain.MaxLimit {
		f.Limit = domain.MaxLimit
	}
	return f
}

// Pages is ceil(total/limit).
func Pages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func filterCategory(rs []domain.Review, cat string) []domain.Review {
	cat = strings.TrimSpace(cat)
	out := make([]domain.Review, 0, len(rs))
	for _, r := range rs {
		if r.HasCategory(cat) {
			out = append(out, r)
		}
	}
	return out
}
