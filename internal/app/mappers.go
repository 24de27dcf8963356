package app

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"flex_reviews/internal/domain"
)

/********** alias registry (single source of truth) **********/

var reviewAliases = map[string][]string{
	"source_id":     {"id", "reviewId", "review_id"},
	"guest":         {"guestName", "guest_name", "reviewerName"},
	"listing_id":    {"listingId", "listingMapId", "listing_id"},
	"listing_name":  {"listingName", "listing_name"},
	"public":        {"publicReview", "public_review"},
	"private":       {"privateNotes", "private_notes"},
	"categories":    {"reviewCategory", "reviewCategories"},
	"channel":       {"channel", "channelName"},
	"type":          {"type", "reviewType"},
	"status":        {"status"},
	"submitted_at":  {"submittedAt", "submitted_at"},
	"rating":        {"rating"},
	"category_name": {"category", "name"},
}

const (
	defaultGuest        = "Guest"
	defaultPropertyID   = "unknown"
	defaultPropertyName = "Unknown Property"
	defaultChannel      = "direct"
	defaultReviewType   = "guest-to-host"
	defaultStatus       = "published"
)

// Upstream timestamps are "YYYY-MM-DD HH:MM:SS" in UTC; ISO forms are accepted too.
var submittedLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-blank string for a named alias set.
func firstNonEmptyAlias(m map[string]any, key string) *string {
	for _, p := range reviewAliases[key] {
		if s := lookupStr(m, p); strings.TrimSpace(s) != "" {
			return &s
		}
	}
	return nil
}

func aliasOr(m map[string]any, key, def string) string {
	if s := firstNonEmptyAlias(m, key); s != nil {
		return *s
	}
	return def
}

// getFloatFlexible: finite number from several paths (float64/int/json.Number/string like "8,0").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		var f float64
		switch v := lookupAny(m, k).(type) {
		case float64:
			f = v
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		case json.Number:
			x, err := v.Float64()
			if err != nil {
				continue
			}
			f = x
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			x, err := strconv.ParseFloat(s, 64)
			if err != nil {
				continue
			}
			f = x
		default:
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return &f
	}
	return nil
}

// idString stringifies an identifier that may arrive as a number or a string.
func idString(m map[string]any, paths ...string) string {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case string:
			if t := strings.TrimSpace(v); t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func parseSubmitted(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range submittedLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// roundHalfUp rounds to the nearest integer, .5 going up.
func roundHalfUp(f float64) int { return int(math.Floor(f + 0.5)) }

// divRoundHalfUp returns num/den rounded half-up; both must be non-negative, den > 0.
func divRoundHalfUp(num, den int) int { return (2*num + den) / (2 * den) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

/********** categories **********/

func mapCategories(r map[string]any) []domain.Category {
	out := []domain.Category{}
	for _, path := range reviewAliases["categories"] {
		raw, ok := lookupAny(r, path).([]any)
		if !ok {
			continue
		}
		for _, it := range raw {
			obj, ok := it.(map[string]any)
			if !ok {
				continue
			}
			c := domain.Category{Category: aliasOr(obj, "category_name", "")}
			// kept as sent; non-numeric sub-ratings count towards the mean as 0
			if f := getFloatFlexible(obj, "rating"); f != nil {
				c.Rating = *f
			}
			out = append(out, c)
		}
		return out
	}
	return out
}

/********** rating **********/

// normalizeRating maps a raw record onto the 1–5 scale: an explicit rating
// wins, else the mean of the 0–10 sub-ratings halved, else 0.
func normalizeRating(r map[string]any, cats []domain.Category) int {
	if f := getFloatFlexible(r, reviewAliases["rating"]...); f != nil {
		return clamp(roundHalfUp(*f), 1, 5)
	}
	if len(cats) == 0 {
		return 0
	}
	// round once, on the halved mean
	sum := 0.0
	for _, c := range cats {
		sum += c.Rating
	}
	return clamp(roundHalfUp(sum/float64(2*len(cats))), 1, 5)
}

/********** review mapper **********/

// Normalize converts one raw source record into a canonical Review. It never
// fails: anything missing or malformed falls back to a default.
func Normalize(r map[string]any, now time.Time) domain.Review {
	cats := mapCategories(r)
	rv := domain.Review{
		Source:           domain.SourceHostaway,
		PropertyName:     aliasOr(r, "listing_name", defaultPropertyName),
		GuestName:        aliasOr(r, "guest", defaultGuest),
		Rating:           normalizeRating(r, cats),
		PublicReview:     aliasOr(r, "public", ""),
		ReviewCategories: cats,
		Channel:          aliasOr(r, "channel", defaultChannel),
		ReviewType:       aliasOr(r, "type", defaultReviewType),
		Status:           aliasOr(r, "status", defaultStatus),
		SubmittedAt:      now.UTC(),
	}
	if s := firstNonEmptyAlias(r, "private"); s != nil {
		rv.PrivateNotes = s
	}

	// property key: listing id, else listing name, else "unknown"
	rv.PropertyID = idString(r, reviewAliases["listing_id"]...)
	if rv.PropertyID == "" {
		rv.PropertyID = aliasOr(r, "listing_name", defaultPropertyID)
	}

	if s := firstNonEmptyAlias(r, "submitted_at"); s != nil {
		if t, ok := parseSubmitted(*s); ok {
			rv.SubmittedAt = t
		}
	}

	// SourceID → prefer explicit; else synthesize a stable hash.
	rv.SourceID = idString(r, reviewAliases["source_id"]...)
	if rv.SourceID == "" {
		sig := strings.Join([]string{
			rv.PropertyID, rv.GuestName, rv.PublicReview,
			lookupStr(r, "submittedAt"), strconv.Itoa(rv.Rating),
		}, "|")
		sum := sha1.Sum([]byte(sig))
		rv.SourceID = "h:" + hex.EncodeToString(sum[:])
	}
	return rv
}

// NormalizeAll maps every record with a shared ingestion timestamp.
func NormalizeAll(in []map[string]any, now time.Time) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		out = append(out, Normalize(r, now))
	}
	return out
}
