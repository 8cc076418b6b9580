package collect

import (
	"fmt"
	"strings"
)

// Range is an inclusive token-count range. A nil bound is unbounded.
type Range struct {
	Min *int `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`
}

// Bound returns a pointer to n, for building a Range or a limit.
func Bound(n int) *int { return &n }

// Between returns the inclusive range [lo, hi].
func Between(lo, hi int) Range { return Range{Min: Bound(lo), Max: Bound(hi)} }

// Contains reports whether n lies within the range.
func (r Range) Contains(n int) bool {
	if r.Min != nil && n < *r.Min {
		return false
	}
	if r.Max != nil && n > *r.Max {
		return false
	}
	return true
}

// String renders the range as "[min, max]" with "-inf"/"+inf" for open bounds.
func (r Range) String() string {
	var b strings.Builder
	b.WriteString("[")
	if r.Min != nil {
		fmt.Fprintf(&b, "%d", *r.Min)
	} else {
		b.WriteString("-inf")
	}
	b.WriteString(", ")
	if r.Max != nil {
		fmt.Fprintf(&b, "%d", *r.Max)
	} else {
		b.WriteString("+inf")
	}
	b.WriteString("]")
	return b.String()
}
