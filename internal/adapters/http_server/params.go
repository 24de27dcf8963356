package httpserver

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"flex_reviews/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// report issues under the wire names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			if name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

type filterQuery struct {
	PropertyID       string     `query:"propertyId" validate:"omitempty,max=191"`
	Channel          string     `query:"channel" validate:"omitempty,max=64"`
	Rating           *int       `query:"rating" validate:"omitempty,min=1,max=5"`
	MinRating        *int       `query:"minRating" validate:"omitempty,min=1,max=5"`
	MaxRating        *int       `query:"maxRating" validate:"omitempty,min=1,max=5"`
	Category         string     `query:"category" validate:"omitempty,max=64"`
	StartDate        *time.Time `query:"startDate"`
	EndDate          *time.Time `query:"endDate"`
	Approved         *bool      `query:"approved"`
	DisplayOnWebsite *bool      `query:"displayOnWebsite"`
	SortBy           string     `query:"sortBy" validate:"omitempty,oneof=submittedAt rating property propertyName"`
	SortOrder        string     `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page             int        `query:"page" validate:"min=1"`
	Limit            int        `query:"limit" validate:"min=1,max=100"`
}

type approvalBody struct {
	Approved         *bool `json:"approved" validate:"required"`
	DisplayOnWebsite *bool `json:"displayOnWebsite"`
}

// parseFilters reads and validates the list/analytics query string. All
// problems are collected into one ValidationError.
func parseFilters(q url.Values) (domain.Filters, error) {
	var (
		fq     = filterQuery{Page: domain.DefaultPage, Limit: domain.DefaultLimit}
		issues []domain.Issue
	)
	bad := func(field, msg string) { issues = append(issues, domain.Issue{Field: field, Message: msg}) }

	fq.PropertyID = strings.TrimSpace(q.Get("propertyId"))
	fq.Channel = strings.TrimSpace(q.Get("channel"))
	fq.Category = strings.TrimSpace(q.Get("category"))
	fq.SortBy = q.Get("sortBy")
	fq.SortOrder = strings.ToLower(q.Get("sortOrder"))

	for name, dst := range map[string]**int{
		"rating": &fq.Rating, "minRating": &fq.MinRating, "maxRating": &fq.MaxRating,
	} {
		if v, ok, err := optInt(q, name); err != nil {
			bad(name, "must be an integer")
		} else if ok {
			*dst = &v
		}
	}
	for name, dst := range map[string]*int{"page": &fq.Page, "limit": &fq.Limit} {
		if v, ok, err := optInt(q, name); err != nil {
			bad(name, "must be an integer")
		} else if ok {
			*dst = v
		}
	}
	for name, dst := range map[string]**bool{
		"approved": &fq.Approved, "displayOnWebsite": &fq.DisplayOnWebsite,
	} {
		if v, ok, err := optBool(q, name); err != nil {
			bad(name, "must be true or false")
		} else if ok {
			*dst = &v
		}
	}
	if t, ok, err := optDate(q, "startDate", false); err != nil {
		bad("startDate", "must be an RFC3339 timestamp or YYYY-MM-DD")
	} else if ok {
		fq.StartDate = &t
	}
	if t, ok, err := optDate(q, "endDate", true); err != nil {
		bad("endDate", "must be an RFC3339 timestamp or YYYY-MM-DD")
	} else if ok {
		fq.EndDate = &t
	}

	// contradictory bounds are not an error; they match nothing
	issues = append(issues, structIssues(fq)...)
	if len(issues) > 0 {
		sortIssues(issues)
		return domain.Filters{}, &domain.ValidationError{Issues: issues}
	}

	sortBy := domain.SortBy(fq.SortBy)
	if fq.SortBy == "propertyName" {
		sortBy = domain.SortProperty
	}

	return domain.Filters{
		PropertyID:       fq.PropertyID,
		Channel:          fq.Channel,
		Rating:           fq.Rating,
		MinRating:        fq.MinRating,
		MaxRating:        fq.MaxRating,
		Category:         fq.Category,
		StartDate:        fq.StartDate,
		EndDate:          fq.EndDate,
		Approved:         fq.Approved,
		DisplayOnWebsite: fq.DisplayOnWebsite,
		SortBy:           sortBy,
		SortOrder:        domain.SortOrder(fq.SortOrder),
		Page:             fq.Page,
		Limit:            fq.Limit,
	}, nil
}

func validateApproval(b approvalBody) error {
	if issues := structIssues(b); len(issues) > 0 {
		return &domain.ValidationError{Issues: issues}
	}
	return nil
}

func structIssues(v any) []domain.Issue {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []domain.Issue{{Field: "", Message: err.Error()}}
	}
	out := make([]domain.Issue, 0, len(ves))
	for _, fe := range ves {
		out = append(out, domain.Issue{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

// map iteration above is unordered; keep responses deterministic
func sortIssues(is []domain.Issue) {
	sort.SliceStable(is, func(i, j int) bool { return is[i].Field < is[j].Field })
}

func optInt(q url.Values, k string) (int, bool, error) {
	s := strings.TrimSpace(q.Get(k))
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	return n, err == nil, err
}

func optBool(q url.Values, k string) (bool, bool, error) {
	switch strings.ToLower(strings.TrimSpace(q.Get(k))) {
	case "":
		return false, false, nil
	case "true", "1":
		return true, true, nil
	case "false", "0":
		return false, true, nil
	}
	return false, false, fmt.Errorf("invalid boolean %q", q.Get(k))
}

// optDate accepts RFC3339 or a bare date. A bare endDate covers the whole day.
func optDate(q url.Values, k string, endOfDay bool) (time.Time, bool, error) {
	s := strings.TrimSpace(q.Get(k))
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, false, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true, nil
}
