package expr

import (
	"fmt"
	"math"

	"go.starlark.net/syntax"
)

func applyUnary(op syntax.Token, v any) (any, error) {
	switch op {
	case syntax.NOT:
		t, err := Truth(v)
		if err != nil {
			return nil, err
		}
		return !t, nil
	case syntax.PLUS:
		switch v.(type) {
		case int64, float64, []int64, []float64:
			return v, nil
		}
		return nil, fmt.Errorf("unary +: unsupported type %T", v)
	case syntax.MINUS:
		switch t := v.(type) {
		case int64:
			return -t, nil
		case float64:
			return -t, nil
		case []int64:
			out := make([]int64, len(t))
			for i, x := range t {
				out[i] = -x
			}
			return out, nil
		case []float64:
			out := make([]float64, len(t))
			for i, x := range t {
				out[i] = -x
			}
			return out, nil
		}
		return nil, fmt.Errorf("unary -: unsupported type %T", v)
	}
	return nil, fmt.Errorf("unsupported unary operator %s", op)
}

// applyBinary applies op with broadcasting: scalar∘scalar, vector∘scalar,
// scalar∘vector elementwise, and vector∘vector when lengths match.
func applyBinary(op syntax.Token, x, y any) (any, error) {
	xv, xIsVec := asVector(x)
	yv, yIsVec := asVector(y)

	switch {
	case xIsVec && yIsVec:
		if len(xv) != len(yv) {
			return nil, fmt.Errorf("sequence length mismatch: %d != %d", len(xv), len(yv))
		}
		out := make([]any, len(xv))
		for i := range xv {
			v, err := scalarBinary(op, xv[i], yv[i])
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return packVector(out)
	case xIsVec:
		out := make([]any, len(xv))
		for i := range xv {
			v, err := scalarBinary(op, xv[i], y)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return packVector(out)
	case yIsVec:
		out := make([]any, len(yv))
		for i := range yv {
			v, err := scalarBinary(op, x, yv[i])
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return packVector(out)
	default:
		return scalarBinary(op, x, y)
	}
}

func asVector(v any) ([]any, bool) {
	switch t := v.(type) {
	case []int64:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out, true
	case []float64:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

// packVector narrows a generic element slice back to []int64, []float64 or
// []bool when homogeneous.
func packVector(elems []any) (any, error) {
	allInt, allFloat, allBool := true, true, true
	for _, e := range elems {
		switch e.(type) {
		case int64:
			allFloat, allBool = false, false
		case float64:
			allInt, allBool = false, false
		case bool:
			allInt, allFloat = false, false
		default:
			return nil, fmt.Errorf("unsupported element type %T", e)
		}
	}
	switch {
	case len(elems) == 0, allInt:
		out := make([]int64, len(elems))
		for i, e := range elems {
			out[i] = e.(int64)
		}
		return out, nil
	case allFloat:
		out := make([]float64, len(elems))
		for i, e := range elems {
			out[i] = e.(float64)
		}
		return out, nil
	case allBool:
		out := make([]bool, len(elems))
		for i, e := range elems {
			out[i] = e.(bool)
		}
		return out, nil
	default:
		// mixed int/float arithmetic promotes to float
		out := make([]float64, len(elems))
		for i, e := range elems {
			switch n := e.(type) {
			case int64:
				out[i] = float64(n)
			case float64:
				out[i] = n
			default:
				return nil, fmt.Errorf("mixed element type %T", e)
			}
		}
		return out, nil
	}
}

func scalarBinary(op syntax.Token, x, y any) (any, error) {
	switch op {
	case syntax.EQL, syntax.NEQ, syntax.LT, syntax.LE, syntax.GT, syntax.GE:
		return compare(op, x, y)
	}

	xi, xIsInt := asInt(x)
	yi, yIsInt := asInt(y)
	xf, xIsNum := asFloat(x)
	yf, yIsNum := asFloat(y)
	if !xIsNum || !yIsNum {
		if op == syntax.PLUS {
			// string concatenation
			if xs, ok := x.(string); ok {
				if ys, ok := y.(string); ok {
					return xs + ys, nil
				}
			}
		}
		return nil, fmt.Errorf("%s: unsupported operand types %T and %T", op, x, y)
	}

	// integer arithmetic stays integral except true division
	if xIsInt && yIsInt && op != syntax.SLASH {
		switch op {
		case syntax.PLUS:
			return xi + yi, nil
		case syntax.MINUS:
			return xi - yi, nil
		case syntax.STAR:
			return xi * yi, nil
		case syntax.PERCENT:
			if yi == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return xi % yi, nil
		case syntax.STARSTAR:
			if yi >= 0 {
				out := int64(1)
				for k := int64(0); k < yi; k++ {
					out *= xi
				}
				return out, nil
			}
			return math.Pow(float64(xi), float64(yi)), nil
		}
	}

	switch op {
	case syntax.PLUS:
		return xf + yf, nil
	case syntax.MINUS:
		return xf - yf, nil
	case syntax.STAR:
		return xf * yf, nil
	case syntax.SLASH:
		if yf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return xf / yf, nil
	case syntax.PERCENT:
		if yf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(xf, yf), nil
	case syntax.STARSTAR:
		return math.Pow(xf, yf), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

func compare(op syntax.Token, x, y any) (any, error) {
	if xs, ok := x.(string); ok {
		ys, ok := y.(string)
		if !ok {
			return nil, fmt.Errorf("%s: cannot compare string with %T", op, y)
		}
		return orderResult(op, compareOrdered(xs, ys))
	}
	if xb, ok := x.(bool); ok {
		yb, ok := y.(bool)
		if !ok {
			return nil, fmt.Errorf("%s: cannot compare bool with %T", op, y)
		}
		switch op {
		case syntax.EQL:
			return xb == yb, nil
		case syntax.NEQ:
			return xb != yb, nil
		}
		return nil, fmt.Errorf("%s: bools are not ordered", op)
	}
	cmp, err := compareScalars(x, y)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orderResult(op, cmp)
}

func compareScalars(x, y any) (int, error) {
	xf, ok := asFloat(x)
	if !ok {
		return 0, fmt.Errorf("cannot compare %T", x)
	}
	yf, ok := asFloat(y)
	if !ok {
		return 0, fmt.Errorf("cannot compare %T", y)
	}
	return compareOrdered(xf, yf), nil
}

func compareOrdered[T int64 | float64 | string](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func orderResult(op syntax.Token, cmp int) (any, error) {
	switch op {
	case syntax.EQL:
		return cmp == 0, nil
	case syntax.NEQ:
		return cmp != 0, nil
	case syntax.LT:
		return cmp < 0, nil
	case syntax.LE:
		return cmp <= 0, nil
	case syntax.GT:
		return cmp > 0, nil
	case syntax.GE:
		return cmp >= 0, nil
	}
	return nil, fmt.Errorf("unsupported comparison %s", op)
}

func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
