// Package headers implements the capability/requirement multimap and the
// worker-side matchers used to compare them.
package headers

import "strings"

// Headers is a multimap of header name to value. Duplicate names are
// allowed, mirroring the wire protocol's repeated `name=value` frames.
type Headers map[string][]string

// New returns an empty header multimap.
func New() Headers {
	return make(Headers)
}

// Add appends value under name, preserving any existing values.
func (h Headers) Add(name, value string) {
	h[name] = append(h[name], value)
}

// Values returns all values stored under name, in insertion order.
func (h Headers) Values(name string) []string {
	return h[name]
}

// Equal reports whether h and other contain exactly the same
// (name, value) multiset — used on re-init to detect a changed
// advertisement from the same worker identity.
func (h Headers) Equal(other Headers) bool {
	if len(h) != len(other) {
		return false
	}
	for name, values := range h {
		otherValues, ok := other[name]
		if !ok || len(values) != len(otherValues) {
			return false
		}
		if !sameMultiset(values, otherValues) {
			return false
		}
	}
	return true
}

func sameMultiset(a, b []string) bool {
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// ParseFrame splits a `name=value` wire frame on the first '=', matching
// the round-trip law from spec §8: parse-then-serialize round-trips.
func ParseFrame(frame string) (name, value string, ok bool) {
	idx := strings.IndexByte(frame, '=')
	if idx < 0 {
		return "", "", false
	}
	return frame[:idx], frame[idx+1:], true
}

// Frame serializes a single header back into its wire form.
func Frame(name, value string) string {
	return name + "=" + value
}
