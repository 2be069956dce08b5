// Package expr evaluates small arithmetic/logical expressions over the
// columns of a record, with elementwise broadcasting when values are
// sequences. The grammar is parsed once per expression with the starlark
// parser; evaluation is a restricted tree walk, never host-language
// execution.
//
// Supported: literals, `item.<column>`, `index`, unary + - not, binary
// + - * / % **, comparisons, and/or, and the builtins len, abs, min, max.
package expr

import (
	"fmt"
	"math"
	"sort"

	"go.starlark.net/syntax"

	"github.com/prepline/prepline/pkg/features"
)

// Expr is a compiled expression, reusable across records.
type Expr struct {
	Source string
	root   syntax.Expr
	vars   map[string]struct{}
}

// Compile parses and validates the expression. Unsupported syntax is
// rejected here, not at evaluation time.
func Compile(src string) (*Expr, error) {
	root, err := syntax.ParseExpr("expr", src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	e := &Expr{Source: src, root: root, vars: make(map[string]struct{})}
	if err := e.validate(root); err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return e, nil
}

// Vars returns the record columns referenced as item.<column>, sorted.
func (e *Expr) Vars() []string {
	out := make([]string, 0, len(e.vars))
	for v := range e.vars {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (e *Expr) validate(node syntax.Expr) error {
	switch n := node.(type) {
	case *syntax.Literal:
		switch n.Value.(type) {
		case int64, float64, string:
			return nil
		}
		return fmt.Errorf("unsupported literal %v", n.Value)
	case *syntax.Ident:
		switch n.Name {
		case "index", "True", "False":
			return nil
		}
		return fmt.Errorf("undefined name %q (columns are accessed as item.<column>)", n.Name)
	case *syntax.DotExpr:
		ident, ok := n.X.(*syntax.Ident)
		if !ok || ident.Name != "item" {
			return fmt.Errorf("attribute access is limited to item.<column>")
		}
		e.vars[n.Name.Name] = struct{}{}
		return nil
	case *syntax.ParenExpr:
		return e.validate(n.X)
	case *syntax.UnaryExpr:
		switch n.Op {
		case syntax.PLUS, syntax.MINUS, syntax.NOT:
			return e.validate(n.X)
		}
		return fmt.Errorf("unsupported unary operator %s", n.Op)
	case *syntax.BinaryExpr:
		switch n.Op {
		case syntax.PLUS, syntax.MINUS, syntax.STAR, syntax.SLASH, syntax.PERCENT, syntax.STARSTAR,
			syntax.LT, syntax.GT, syntax.LE, syntax.GE, syntax.EQL, syntax.NEQ,
			syntax.AND, syntax.OR:
			if err := e.validate(n.X); err != nil {
				return err
			}
			return e.validate(n.Y)
		}
		return fmt.Errorf("unsupported operator %s", n.Op)
	case *syntax.CallExpr:
		ident, ok := n.Fn.(*syntax.Ident)
		if !ok {
			return fmt.Errorf("only builtin calls are supported")
		}
		switch ident.Name {
		case "len", "abs":
			if len(n.Args) != 1 {
				return fmt.Errorf("%s takes exactly one argument", ident.Name)
			}
		case "min", "max":
			if len(n.Args) == 0 {
				return fmt.Errorf("%s takes at least one argument", ident.Name)
			}
		default:
			return fmt.Errorf("unknown builtin %q", ident.Name)
		}
		for _, a := range n.Args {
			if err := e.validate(a); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported syntax %T", node)
	}
}

// Eval evaluates the expression against one record. Returned values are
// int64, float64, bool, string, []int64, []float64 or []bool.
func (e *Expr) Eval(rec features.Record, index int) (any, error) {
	return e.eval(e.root, rec, index)
}

func (e *Expr) eval(node syntax.Expr, rec features.Record, index int) (any, error) {
	switch n := node.(type) {
	case *syntax.Literal:
		return n.Value, nil
	case *syntax.Ident:
		switch n.Name {
		case "index":
			return int64(index), nil
		case "True":
			return true, nil
		case "False":
			return false, nil
		}
		return nil, fmt.Errorf("undefined name %q", n.Name)
	case *syntax.DotExpr:
		v, ok := rec[n.Name.Name]
		if !ok {
			return nil, fmt.Errorf("column %q not present in record", n.Name.Name)
		}
		return bindValue(v)
	case *syntax.ParenExpr:
		return e.eval(n.X, rec, index)
	case *syntax.UnaryExpr:
		v, err := e.eval(n.X, rec, index)
		if err != nil {
			return nil, err
		}
		return applyUnary(n.Op, v)
	case *syntax.BinaryExpr:
		if n.Op == syntax.AND || n.Op == syntax.OR {
			return e.evalBool(n, rec, index)
		}
		x, err := e.eval(n.X, rec, index)
		if err != nil {
			return nil, err
		}
		y, err := e.eval(n.Y, rec, index)
		if err != nil {
			return nil, err
		}
		return applyBinary(n.Op, x, y)
	case *syntax.CallExpr:
		return e.evalCall(n, rec, index)
	default:
		return nil, fmt.Errorf("unsupported syntax %T", node)
	}
}

func (e *Expr) evalBool(n *syntax.BinaryExpr, rec features.Record, index int) (any, error) {
	x, err := e.eval(n.X, rec, index)
	if err != nil {
		return nil, err
	}
	xt, err := Truth(x)
	if err != nil {
		return nil, err
	}
	// short-circuit
	if n.Op == syntax.AND && !xt {
		return false, nil
	}
	if n.Op == syntax.OR && xt {
		return true, nil
	}
	y, err := e.eval(n.Y, rec, index)
	if err != nil {
		return nil, err
	}
	return Truth(y)
}

func (e *Expr) evalCall(n *syntax.CallExpr, rec features.Record, index int) (any, error) {
	name := n.Fn.(*syntax.Ident).Name
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := e.eval(a, rec, index)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch name {
	case "len":
		if n := features.SeqLen(args[0]); n >= 0 {
			return int64(n), nil
		}
		if s, ok := args[0].(string); ok {
			return int64(len(s)), nil
		}
		return nil, fmt.Errorf("len: %T has no length", args[0])
	case "abs":
		switch v := args[0].(type) {
		case int64:
			if v < 0 {
				return -v, nil
			}
			return v, nil
		case float64:
			return math.Abs(v), nil
		case []int64:
			out := make([]int64, len(v))
			for i, x := range v {
				if x < 0 {
					x = -x
				}
				out[i] = x
			}
			return out, nil
		case []float64:
			out := make([]float64, len(v))
			for i, x := range v {
				out[i] = math.Abs(x)
			}
			return out, nil
		}
		return nil, fmt.Errorf("abs: unsupported type %T", args[0])
	case "min", "max":
		return reduceMinMax(name, args)
	}
	return nil, fmt.Errorf("unknown builtin %q", name)
}

func reduceMinMax(name string, args []any) (any, error) {
	var flat []any
	for _, a := range args {
		switch v := a.(type) {
		case []int64:
			for _, x := range v {
				flat = append(flat, x)
			}
		case []float64:
			for _, x := range v {
				flat = append(flat, x)
			}
		case int64, float64:
			flat = append(flat, v)
		default:
			return nil, fmt.Errorf("%s: unsupported type %T", name, a)
		}
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("%s of empty sequence", name)
	}
	best := flat[0]
	for _, v := range flat[1:] {
		cmp, err := compareScalars(v, best)
		if err != nil {
			return nil, err
		}
		if (name == "min" && cmp < 0) || (name == "max" && cmp > 0) {
			best = v
		}
	}
	return best, nil
}

// Truth converts a scalar result to a bool, the filter-predicate contract.
func Truth(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		return t != "", nil
	}
	return false, fmt.Errorf("expected a scalar boolean result, got %T", v)
}

// bindValue normalizes a record value into the evaluator's value model.
func bindValue(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64, float64, bool, string, []int64, []float64:
		return t, nil
	case []any:
		if ints, ok := features.Ints(t); ok {
			return ints, nil
		}
		out := make([]float64, len(t))
		for i, x := range t {
			switch n := x.(type) {
			case float64:
				out[i] = n
			case int64:
				out[i] = float64(n)
			case int:
				out[i] = float64(n)
			default:
				return nil, fmt.Errorf("unsupported sequence element %T", x)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}
