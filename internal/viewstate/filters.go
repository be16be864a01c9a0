// Package viewstate keeps journal and feed view state as a pure function of a
// location (path + query string). The query string is the only copy of filters,
// tab and year; everything here parses or serializes it and never fails.
package viewstate

import (
	"net/url"
	"strings"
)

// Recognized filter query keys.
const (
	KeyRegion         = "region"
	KeyMinSwellHeight = "min_swell_height"
	KeyMaxSwellHeight = "max_swell_height"
	KeyMinSwellPeriod = "min_swell_period"
	KeyMaxSwellPeriod = "max_swell_period"
	KeySwellDirection = "swell_direction"
	KeyMinFunRating   = "min_fun_rating"
)

// View query keys.
const (
	KeyTab  = "tab"
	KeyYear = "year"
	KeyStat = "stat"
)

// FilterKeys lists the recognized filter keys in display order.
var FilterKeys = []string{
	KeyRegion,
	KeyMinSwellHeight,
	KeyMaxSwellHeight,
	KeyMinSwellPeriod,
	KeyMaxSwellPeriod,
	KeySwellDirection,
	KeyMinFunRating,
}

func IsFilterKey(key string) bool {
	for _, k := range FilterKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Filters holds the active constraints. Only recognized keys with non-empty values
// are present; an absent key means "no constraint".
type Filters map[string]string

// ParseQuery parses a raw query string (with or without a leading '?'). Malformed
// pairs are skipped.
func ParseQuery(raw string) url.Values {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "?")
	q, _ := url.ParseQuery(raw)
	if q == nil {
		q = url.Values{}
	}
	return q
}

// ParseFilters reads the recognized filter keys from q. Unknown keys are ignored.
func ParseFilters(q url.Values) Filters {
	f := Filters{}
	for _, k := range FilterKeys {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			f[k] = v
		}
	}
	return f
}

// Get returns the value for key, "" when unconstrained.
func (f Filters) Get(key string) string { return f[key] }

func (f Filters) Len() int { return len(f) }

func (f Filters) Equal(o Filters) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		if o[k] != v {
			return false
		}
	}
	return true
}

// Values returns f as query parameters. Values are trimmed the same way
// ParseFilters trims them; blank values are dropped.
func (f Filters) Values() url.Values {
	q := url.Values{}
	for k, v := range f {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// Encode serializes f in canonical (sorted) form.
func (f Filters) Encode() string { return f.Values().Encode() }

// Keys returns the constrained keys in display order.
func (f Filters) Keys() []string {
	var out []string
	for _, k := range FilterKeys {
		if f[k] != "" {
			out = append(out, k)
		}
	}
	return out
}

// ApplyFilterChange returns a copy of q with key set to value, or with key removed
// when value is empty. q is not modified.
func ApplyFilterChange(key, value string, q url.Values) url.Values {
	out := cloneValues(q)
	value = strings.TrimSpace(value)
	if value == "" {
		out.Del(key)
		return out
	}
	out.Set(key, value)
	return out
}

// ClearFilters returns a copy of q without any filter key.
func ClearFilters(q url.Values) url.Values {
	out := cloneValues(q)
	for _, k := range FilterKeys {
		out.Del(k)
	}
	return out
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
