package dataset

import (
	"fmt"
	"regexp"
	"strconv"
)

// SplitExpr is a parsed split selection expression: a base split name with
// an optional half-open range, e.g. "train", "train[:80%]", "test[10:50]".
type SplitExpr struct {
	Base string
	Lo   Bound
	Hi   Bound
}

// Bound is one side of a split range: absent, an absolute record index, or
// a percentage of the base split size.
type Bound struct {
	Set     bool
	Percent bool
	Value   int
}

var splitRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)(?:\[([0-9]*%?):([0-9]*%?)\])?$`)

// ParseSplit parses a split expression.
func ParseSplit(expr string) (SplitExpr, error) {
	m := splitRe.FindStringSubmatch(expr)
	if m == nil {
		return SplitExpr{}, fmt.Errorf("malformed split expression %q", expr)
	}
	out := SplitExpr{Base: m[1]}
	var err error
	if out.Lo, err = parseBound(m[2]); err != nil {
		return SplitExpr{}, fmt.Errorf("split expression %q: %w", expr, err)
	}
	if out.Hi, err = parseBound(m[3]); err != nil {
		return SplitExpr{}, fmt.Errorf("split expression %q: %w", expr, err)
	}
	return out, nil
}

func parseBound(s string) (Bound, error) {
	if s == "" {
		return Bound{}, nil
	}
	b := Bound{Set: true}
	if s[len(s)-1] == '%' {
		b.Percent = true
		s = s[:len(s)-1]
		if s == "" {
			return Bound{}, fmt.Errorf("missing percent value")
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return Bound{}, fmt.Errorf("invalid bound %q", s)
	}
	if b.Percent && v > 100 {
		return Bound{}, fmt.Errorf("percent bound %d out of range", v)
	}
	b.Value = v
	return b, nil
}

// Bounds resolves the range against a base split of n records. Percent
// boundaries floor, so "[:p%]" and "[p%:]" of the same base partition it
// exactly.
func (e SplitExpr) Bounds(n int) (lo, hi int, err error) {
	lo, hi = 0, n
	if e.Lo.Set {
		lo = e.Lo.resolve(n)
	}
	if e.Hi.Set {
		hi = e.Hi.resolve(n)
	}
	if lo > n || hi > n {
		return 0, 0, fmt.Errorf("split range [%d:%d] out of bounds for %d records", lo, hi, n)
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("empty split range [%d:%d]", lo, hi)
	}
	return lo, hi, nil
}

func (b Bound) resolve(n int) int {
	if b.Percent {
		return n * b.Value / 100
	}
	return b.Value
}
