package domain

import (
	"context"
	"time"
)

type ReviewStore interface {
	// Write paths
	UpsertBatch(ctx context.Context, rs []Review) error // one transaction per call
	SetApproval(ctx context.Context, id string, approved, displayOnWebsite bool) (Review, error)

	// Read paths
	Find(ctx context.Context, q StoreQuery) ([]Review, error)
	Count(ctx context.Context, where Predicate) (int, error)
}

// ReviewSource lists raw review records. An empty listingID means the whole account.
type ReviewSource interface {
	GetReviews(ctx context.Context, listingID string) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}

type SortBy string

const (
	SortSubmittedAt SortBy = "submittedAt"
	SortRating      SortBy = "rating"
	SortProperty    SortBy = "property"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filters is a validated list/analytics request. Nil pointers and empty
// strings mean "no constraint".
type Filters struct {
	PropertyID       string     `json:"propertyId,omitempty"`
	Channel          string     `json:"channel,omitempty"`
	Rating           *int       `json:"rating,omitempty"`
	MinRating        *int       `json:"minRating,omitempty"`
	MaxRating        *int       `json:"maxRating,omitempty"`
	Category         string     `json:"category,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	Approved         *bool      `json:"approved,omitempty"`
	DisplayOnWebsite *bool      `json:"displayOnWebsite,omitempty"`
	SortBy           SortBy     `json:"sortBy,omitempty"`
	SortOrder        SortOrder  `json:"sortOrder,omitempty"`
	Page             int        `json:"page"`
	Limit            int        `json:"limit"`
}

// CategoryMode selects how the category dimension composes with pagination.
type CategoryMode string

const (
	// CategoryGlobal filters the full matching set before paginating.
	CategoryGlobal CategoryMode = "global"
	// CategoryPageLocal filters only the already-paginated slice and reports
	// totals from that slice.
	CategoryPageLocal CategoryMode = "page"
)

type ReviewsPage struct {
	Reviews []Review `json:"reviews"`
	Total   int      `json:"total"`
	Pages   int      `json:"pages"`
}

type Approval struct {
	Approved         bool
	DisplayOnWebsite *bool
}

// Analytics read model
type RatingBucket struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

type MonthBucket struct {
	Month         string  `json:"month"` // YYYY-MM
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

type PropertyPerformance struct {
	PropertyID    string  `json:"propertyId"`
	PropertyName  string  `json:"propertyName"`
	TotalReviews  int     `json:"totalReviews"`
	AverageRating float64 `json:"averageRating"`
}

type AnalyticsReport struct {
	TotalReviews        int                   `json:"totalReviews"`
	AverageRating       float64               `json:"averageRating"`
	RatingDistribution  []RatingBucket        `json:"ratingDistribution"`
	ChannelBreakdown    map[string]int        `json:"channelBreakdown"`
	ReviewsOverTime     []MonthBucket         `json:"reviewsOverTime"`
	PropertyPerformance []PropertyPerformance `json:"propertyPerformance"`
	ApprovalRate        float64               `json:"approvalRate"`
}
