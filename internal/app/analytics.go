package app

import (
	"sort"

	"flex_reviews/internal/domain"
)

// ComputeAnalytics rolls up an already filtered review set. All averages are
// rounded half-up on integer sums, so results are exact and reproducible.
func ComputeAnalytics(rs []domain.Review) domain.AnalyticsReport {
	rep := domain.AnalyticsReport{
		TotalReviews:        len(rs),
		RatingDistribution:  make([]domain.RatingBucket, 5),
		ChannelBreakdown:    map[string]int{},
		ReviewsOverTime:     []domain.MonthBucket{},
		PropertyPerformance: []domain.PropertyPerformance{},
	}
	for i := range rep.RatingDistribution {
		rep.RatingDistribution[i].Rating = i + 1
	}
	if len(rs) == 0 {
		return rep
	}

	type acc struct {
		name       string
		count, sum int
	}
	months := map[string]*acc{}
	props := map[string]*acc{}
	sum, approved := 0, 0

	for _, r := range rs {
		sum += r.Rating
		if r.Approved {
			approved++
		}
		if r.Rating >= 1 && r.Rating <= 5 {
			rep.RatingDistribution[r.Rating-1].Count++
		}
		rep.ChannelBreakdown[r.Channel]++

		key := r.SubmittedAt.UTC().Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &acc{}
			months[key] = m
		}
		m.count++
		m.sum += r.Rating

		p, ok := props[r.PropertyID]
		if !ok {
			p = &acc{name: r.PropertyName}
			props[r.PropertyID] = p
		}
		p.count++
		p.sum += r.Rating
	}

	rep.AverageRating = meanHalfUp(sum, len(rs), 1)
	rep.ApprovalRate = float64(approved) / float64(len(rs))

	for k, m := range months {
		rep.ReviewsOverTime = append(rep.ReviewsOverTime, domain.MonthBucket{
			Month: k, Count: m.count, AverageRating: meanHalfUp(m.sum, m.count, 2),
		})
	}
	sort.Slice(rep.ReviewsOverTime, func(i, j int) bool {
		return rep.ReviewsOverTime[i].Month < rep.ReviewsOverTime[j].Month
	})

	for id, p := range props {
		rep.PropertyPerformance = append(rep.PropertyPerformance, domain.PropertyPerformance{
			PropertyID: id, PropertyName: p.name, TotalReviews: p.count,
			AverageRating: meanHalfUp(p.sum, p.count, 2),
		})
	}
	sort.Slice(rep.PropertyPerformance, func(i, j int) bool {
		a, b := rep.PropertyPerformance[i], rep.PropertyPerformance[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		return a.PropertyID < b.PropertyID
	})
	return rep
}

// meanHalfUp returns sum/n rounded half-up to the given decimals. sum >= 0, n > 0.
func meanHalfUp(sum, n, decimals int) float64 {
	scale := 1
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	return float64(divRoundHalfUp(sum*scale, n)) / float64(scale)
}
