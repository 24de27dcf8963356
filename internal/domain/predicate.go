package domain

import (
	"strings"
	"time"
)

// Field names a filterable or sortable Review attribute.
type Field string

const (
	FieldPropertyID       Field = "propertyId"
	FieldPropertyName     Field = "propertyName"
	FieldChannel          Field = "channel"
	FieldRating           Field = "rating"
	FieldSubmittedAt      Field = "submittedAt"
	FieldApproved         Field = "approved"
	FieldDisplayOnWebsite Field = "displayOnWebsite"
)

// Predicate is a node of a store-independent filter tree. Values are
// string, int, bool or time.Time depending on the field.
type Predicate interface{ predicate() }

type Eq struct {
	Field Field
	Value any
}

type Gte struct {
	Field Field
	Value any
}

type Lte struct {
	Field Field
	Value any
}

// Range is inclusive on both ends.
type Range struct {
	Field    Field
	Min, Max any
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

func (Eq) predicate()    {}
func (Gte) predicate()   {}
func (Lte) predicate()   {}
func (Range) predicate() {}
func (And) predicate()   {}

type Order struct {
	Field Field
	Desc  bool
}

// StoreQuery is a find-many request. Take == 0 means no limit.
type StoreQuery struct {
	Where Predicate
	Order Order
	Skip  int
	Take  int
}

// Match evaluates p against r in memory. Values whose type does not fit
// the field never match.
func Match(p Predicate, r Review) bool {
	switch n := p.(type) {
	case nil:
		return true
	case And:
		for _, c := range n {
			if !Match(c, r) {
				return false
			}
		}
		return true
	case Eq:
		c, ok := Compare(FieldValue(r, n.Field), n.Value)
		return ok && c == 0
	case Gte:
		c, ok := Compare(FieldValue(r, n.Field), n.Value)
		return ok && c >= 0
	case Lte:
		c, ok := Compare(FieldValue(r, n.Field), n.Value)
		return ok && c <= 0
	case Range:
		v := FieldValue(r, n.Field)
		lo, ok1 := Compare(v, n.Min)
		hi, ok2 := Compare(v, n.Max)
		return ok1 && ok2 && lo >= 0 && hi <= 0
	}
	return false
}

// FieldValue returns the value of f on r, or nil for an unknown field.
func FieldValue(r Review, f Field) any {
	switch f {
	case FieldPropertyID:
		return r.PropertyID
	case FieldPropertyName:
		return r.PropertyName
	case FieldChannel:
		return r.Channel
	case FieldRating:
		return r.Rating
	case FieldSubmittedAt:
		return r.SubmittedAt
	case FieldApproved:
		return r.Approved
	case FieldDisplayOnWebsite:
		return r.DisplayOnWebsite
	}
	return nil
}

// Compare orders a and b. ok is false when they are not of the same
// supported type (string, int, bool, time.Time).
func Compare(a, b any) (c int, ok bool) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case int:
		if y, ok := b.(int); ok {
			return cmpInt(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			return cmpInt(b2i(x), b2i(y)), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

func cmpInt(x, y int) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
