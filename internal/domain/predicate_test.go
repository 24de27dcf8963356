package domain_test

import (
	"testing"
	"time"

	"flex_reviews/internal/domain"
)

func TestMatch(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	r := domain.Review{
		PropertyID: "p1", Channel: "airbnb", Rating: 4,
		SubmittedAt: at, Approved: true,
	}

	cases := []struct {
		name string
		p    domain.Predicate
		want bool
	}{
		{"nil matches", nil, true},
		{"empty and matches", domain.And{}, true},
		{"eq string", domain.Eq{Field: domain.FieldChannel, Value: "airbnb"}, true},
		{"eq is case sensitive", domain.Eq{Field: domain.FieldChannel, Value: "Airbnb"}, false},
		{"eq bool", domain.Eq{Field: domain.FieldApproved, Value: true}, true},
		{"eq bool false", domain.Eq{Field: domain.FieldDisplayOnWebsite, Value: true}, false},
		{"gte inclusive", domain.Gte{Field: domain.FieldRating, Value: 4}, true},
		{"lte below", domain.Lte{Field: domain.FieldRating, Value: 3}, false},
		{"range inclusive", domain.Range{Field: domain.FieldSubmittedAt, Min: at, Max: at}, true},
		{"range outside", domain.Range{Field: domain.FieldRating, Min: 1, Max: 3}, false},
		{"type mismatch never matches", domain.Eq{Field: domain.FieldRating, Value: "4"}, false},
		{"unknown field never matches", domain.Eq{Field: "guestName", Value: ""}, false},
		{"and all", domain.And{
			domain.Eq{Field: domain.FieldPropertyID, Value: "p1"},
			domain.Gte{Field: domain.FieldSubmittedAt, Value: at.Add(-time.Hour)},
		}, true},
		{"and one fails", domain.And{
			domain.Eq{Field: domain.FieldPropertyID, Value: "p1"},
			domain.Lte{Field: domain.FieldSubmittedAt, Value: at.Add(-time.Hour)},
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.Match(tc.p, r); got != tc.want {
				t.Fatalf("Match = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasCategory(t *testing.T) {
	r := domain.Review{ReviewCategories: []domain.Category{{Category: "Cleanliness", Rating: 10}}}
	if !r.HasCategory("cleanliness") {
		t.Fatalf("category match should ignore case")
	}
	if r.HasCategory("value") {
		t.Fatalf("unexpected match")
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &domain.ValidationError{Issues: []domain.Issue{
		{Field: "rating", Message: "must be at most 5"},
		{Field: "limit", Message: "must be at least 1"},
	}}
	want := "validation failed: rating: must be at most 5; limit: must be at least 1"
	if err.Error() != want {
		t.Fatalf("Error() = %q", err.Error())
	}
}
