package domain

import (
	"strings"
	"time"
)

type Source string

const SourceHostaway Source = "hostaway"

// Category is one named sub-rating on the source's 0–10 scale.
type Category struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

type Review struct {
	ID               string     `json:"id"`
	SourceID         string     `json:"sourceId"`
	Source           Source     `json:"source"`
	PropertyID       string     `json:"propertyId"`
	PropertyName     string     `json:"propertyName"`
	GuestName        string     `json:"guestName"`
	Rating           int        `json:"rating"` // 1..5, 0 = not derivable
	PublicReview     string     `json:"publicReview"`
	PrivateNotes     *string    `json:"privateNotes"`
	ReviewCategories []Category `json:"reviewCategories"`
	Channel          string     `json:"channel"`
	ReviewType       string     `json:"reviewType"`
	SubmittedAt      time.Time  `json:"submittedAt"`
	Status           string     `json:"status"`
	Approved         bool       `json:"approved"`
	DisplayOnWebsite bool       `json:"displayOnWebsite"`
}

// HasCategory reports whether any sub-rating is named cat, ignoring case.
func (r Review) HasCategory(cat string) bool {
	for _, c := range r.ReviewCategories {
		if strings.EqualFold(c.Category, cat) {
			return true
		}
	}
	return false
}
