package features

import (
	"fmt"
	"strconv"
	"strings"
)

// Record maps column names to values conforming to the schema.
type Record map[string]any

// Copy returns a shallow copy of the record.
func (r Record) Copy() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Coerce converts a raw decoded value (e.g. a json float64 or []any) into
// the canonical in-memory representation declared by the feature:
// int64, float64, string, bool, []int64, []float64, []string, []bool,
// nested []any for composite sequences and map[string]any for structs.
func Coerce(v any, f Feature) (any, error) {
	switch ft := f.(type) {
	case Value:
		return coerceScalar(v, ft.Kind)
	case ClassLabel:
		return coerceLabel(v, ft)
	case Sequence:
		return coerceSequence(v, ft)
	case Struct:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected struct, got %T", v)
		}
		out := make(map[string]any, len(ft))
		for k, sub := range ft {
			raw, ok := m[k]
			if !ok {
				return nil, fmt.Errorf("struct field %q missing", k)
			}
			cv, err := Coerce(raw, sub)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = cv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported feature %s", f)
	}
}

func coerceScalar(v any, k Kind) (any, error) {
	switch k {
	case KindInt:
		switch t := v.(type) {
		case int:
			return int64(t), nil
		case int64:
			return t, nil
		case float64:
			return int64(t), nil
		case string:
			if s := strings.TrimSpace(t); s != "" {
				if x, err := strconv.ParseInt(s, 10, 64); err == nil {
					return x, nil
				}
			}
		}
	case KindFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case float32:
			return float64(t), nil
		case int:
			return float64(t), nil
		case int64:
			return float64(t), nil
		case string:
			if s := strings.TrimSpace(t); s != "" {
				if x, err := strconv.ParseFloat(s, 64); err == nil {
					return x, nil
				}
			}
		}
	case KindBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			if x, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(t))); err == nil {
				return x, nil
			}
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %T to %s", v, k)
}

func coerceLabel(v any, c ClassLabel) (any, error) {
	switch t := v.(type) {
	case string:
		id, ok := c.ID(t)
		if !ok {
			return nil, fmt.Errorf("unknown class label %q", t)
		}
		return id, nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	}
	return nil, fmt.Errorf("cannot coerce %T to class label", v)
}

func coerceSequence(v any, s Sequence) (any, error) {
	items, err := anySlice(v)
	if err != nil {
		return nil, err
	}
	if s.Length >= 0 && len(items) != s.Length {
		return nil, fmt.Errorf("sequence length %d, expected %d", len(items), s.Length)
	}
	switch of := s.Of.(type) {
	case Value:
		switch of.Kind {
		case KindInt:
			out := make([]int64, len(items))
			for i, it := range items {
				cv, err := coerceScalar(it, KindInt)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = cv.(int64)
			}
			return out, nil
		case KindFloat:
			out := make([]float64, len(items))
			for i, it := range items {
				cv, err := coerceScalar(it, KindFloat)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = cv.(float64)
			}
			return out, nil
		case KindString:
			out := make([]string, len(items))
			for i, it := range items {
				cv, err := coerceScalar(it, KindString)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = cv.(string)
			}
			return out, nil
		case KindBool:
			out := make([]bool, len(items))
			for i, it := range items {
				cv, err := coerceScalar(it, KindBool)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = cv.(bool)
			}
			return out, nil
		}
	case ClassLabel:
		out := make([]int64, len(items))
		for i, it := range items {
			cv, err := coerceLabel(it, of)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = cv.(int64)
		}
		return out, nil
	default:
		out := make([]any, len(items))
		for i, it := range items {
			cv, err := Coerce(it, s.Of)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported sequence of %s", s.Of)
}

func anySlice(v any) ([]any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case []int64:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out, nil
	case []float64:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out, nil
	case []bool:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected sequence, got %T", v)
}

// Ints extracts an integer sequence from a record value.
func Ints(v any) ([]int64, bool) {
	switch t := v.(type) {
	case []int64:
		return t, true
	case []any:
		out := make([]int64, len(t))
		for i, x := range t {
			switch n := x.(type) {
			case int64:
				out[i] = n
			case int:
				out[i] = int64(n)
			case float64:
				out[i] = int64(n)
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// Strings extracts a string sequence from a record value.
func Strings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, len(t))
		for i, x := range t {
			s, ok := x.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// SeqLen returns the element count of a sequence value, or -1 when the value
// is not a sequence.
func SeqLen(v any) int {
	switch t := v.(type) {
	case []int64:
		return len(t)
	case []float64:
		return len(t)
	case []string:
		return len(t)
	case []bool:
		return len(t)
	case []any:
		return len(t)
	}
	return -1
}
