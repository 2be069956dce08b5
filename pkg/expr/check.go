package expr

import (
	"fmt"

	"go.starlark.net/syntax"

	"github.com/prepline/prepline/pkg/features"
)

// Check infers the output feature of the expression against a schema without
// touching data. Unknown columns, non-numeric operands and fixed-length
// sequence mismatches are reported here, before streaming begins.
func (e *Expr) Check(feats features.Features) (features.Feature, error) {
	return e.check(e.root, feats)
}

func (e *Expr) check(node syntax.Expr, feats features.Features) (features.Feature, error) {
	switch n := node.(type) {
	case *syntax.Literal:
		switch n.Value.(type) {
		case int64:
			return features.Int(), nil
		case float64:
			return features.Float(), nil
		case string:
			return features.Str(), nil
		}
		return nil, fmt.Errorf("unsupported literal %v", n.Value)
	case *syntax.Ident:
		switch n.Name {
		case "index":
			return features.Int(), nil
		case "True", "False":
			return features.Bool(), nil
		}
		return nil, fmt.Errorf("undefined name %q", n.Name)
	case *syntax.DotExpr:
		f, ok := feats[n.Name.Name]
		if !ok {
			return nil, fmt.Errorf("column %q not present in features but referenced in expression", n.Name.Name)
		}
		return f, nil
	case *syntax.ParenExpr:
		return e.check(n.X, feats)
	case *syntax.UnaryExpr:
		f, err := e.check(n.X, feats)
		if err != nil {
			return nil, err
		}
		if n.Op == syntax.NOT {
			return features.Bool(), nil
		}
		if !isNumericElem(elemOf(f)) {
			return nil, fmt.Errorf("unary %s: non-numeric operand %s", n.Op, f)
		}
		return f, nil
	case *syntax.BinaryExpr:
		x, err := e.check(n.X, feats)
		if err != nil {
			return nil, err
		}
		y, err := e.check(n.Y, feats)
		if err != nil {
			return nil, err
		}
		return combine(n.Op, x, y)
	case *syntax.CallExpr:
		return e.checkCall(n, feats)
	default:
		return nil, fmt.Errorf("unsupported syntax %T", node)
	}
}

func (e *Expr) checkCall(n *syntax.CallExpr, feats features.Features) (features.Feature, error) {
	name := n.Fn.(*syntax.Ident).Name
	args := make([]features.Feature, len(n.Args))
	for i, a := range n.Args {
		f, err := e.check(a, feats)
		if err != nil {
			return nil, err
		}
		args[i] = f
	}
	switch name {
	case "len":
		if _, ok := args[0].(features.Sequence); ok {
			return features.Int(), nil
		}
		if features.Equal(args[0], features.Str()) {
			return features.Int(), nil
		}
		return nil, fmt.Errorf("len: %s has no length", args[0])
	case "abs":
		if !isNumericElem(elemOf(args[0])) {
			return nil, fmt.Errorf("abs: non-numeric operand %s", args[0])
		}
		return args[0], nil
	case "min", "max":
		out := features.Feature(features.Int())
		for _, a := range args {
			el := elemOf(a)
			if !isNumericElem(el) {
				return nil, fmt.Errorf("%s: non-numeric operand %s", name, a)
			}
			if features.Equal(el, features.Float()) {
				out = features.Float()
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown builtin %q", name)
}

// combine infers the feature of a binary operation, broadcasting sequences.
func combine(op syntax.Token, x, y features.Feature) (features.Feature, error) {
	xs, xIsSeq := x.(features.Sequence)
	ys, yIsSeq := y.(features.Sequence)

	elem, err := combineScalar(op, elemOf(x), elemOf(y))
	if err != nil {
		return nil, err
	}

	switch {
	case xIsSeq && yIsSeq:
		if xs.Length >= 0 && ys.Length >= 0 && xs.Length != ys.Length {
			return nil, fmt.Errorf("sequence length mismatch: %d != %d", xs.Length, ys.Length)
		}
		length := xs.Length
		if length < 0 {
			length = ys.Length
		}
		return features.Sequence{Of: elem, Length: length}, nil
	case xIsSeq:
		return features.Sequence{Of: elem, Length: xs.Length}, nil
	case yIsSeq:
		return features.Sequence{Of: elem, Length: ys.Length}, nil
	default:
		return elem, nil
	}
}

func combineScalar(op syntax.Token, x, y features.Feature) (features.Feature, error) {
	switch op {
	case syntax.EQL, syntax.NEQ, syntax.LT, syntax.LE, syntax.GT, syntax.GE, syntax.AND, syntax.OR:
		return features.Bool(), nil
	}
	if !isNumericElem(x) || !isNumericElem(y) {
		if op == syntax.PLUS && features.Equal(x, features.Str()) && features.Equal(y, features.Str()) {
			return features.Str(), nil
		}
		return nil, fmt.Errorf("%s: non-numeric operands %s and %s", op, x, y)
	}
	if op == syntax.SLASH || features.Equal(x, features.Float()) || features.Equal(y, features.Float()) {
		return features.Float(), nil
	}
	return features.Int(), nil
}

// elemOf unwraps one level of sequence.
func elemOf(f features.Feature) features.Feature {
	if s, ok := f.(features.Sequence); ok {
		return s.Of
	}
	return f
}

// isNumericElem reports whether a scalar feature participates in arithmetic.
// Class labels count as their integer ids, matching record representation.
func isNumericElem(f features.Feature) bool {
	switch t := f.(type) {
	case features.Value:
		return t.Kind == features.KindInt || t.Kind == features.KindFloat || t.Kind == features.KindBool
	case features.ClassLabel:
		return true
	}
	return false
}
