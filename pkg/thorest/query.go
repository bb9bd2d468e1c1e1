package thorest

import (
	"net/url"
	"strconv"
)

// Query collects request query parameters, unset (nil) values are dropped.
type Query struct {
	values url.Values
}

// NewQuery creates an empty Query.
func NewQuery() *Query {
	return &Query{values: make(url.Values)}
}

// String sets a string parameter if v is not nil.
func (q *Query) String(name string, v *string) *Query {
	if v != nil {
		q.values.Set(name, *v)
	}
	return q
}

// Bool sets a boolean parameter if v is not nil.
func (q *Query) Bool(name string, v *bool) *Query {
	if v != nil {
		q.values.Set(name, strconv.FormatBool(*v))
	}
	return q
}

// Uint sets an integer parameter if v is not nil.
func (q *Query) Uint(name string, v *uint64) *Query {
	if v != nil {
		q.values.Set(name, strconv.FormatUint(*v, 10))
	}
	return q
}

// Values returns the collected parameters.
func (q *Query) Values() url.Values {
	return q.values
}

// Encode returns the URL-encoded query (without '?'), parameters are sorted
// by name.
func (q *Query) Encode() string {
	return q.values.Encode()
}
