package filter

import (
	"fmt"

	"github.com/prepline/prepline/pkg/expr"
	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/prepline"
)

// ExprConfig are the expr filter parameters.
type ExprConfig struct {
	Expression string `mapstructure:"expression"`
}

// Expr keeps records for which the expression evaluates truthy.
type Expr struct {
	cfg  ExprConfig
	expr *expr.Expr
}

func init() {
	prepline.RegisterFilter("expr", func(params map[string]any) (prepline.Filter, error) {
		var cfg ExprConfig
		if err := prepline.DecodeParams(params, &cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return NewExpr(cfg)
	})
}

// NewExpr compiles the predicate expression.
func NewExpr(cfg ExprConfig) (*Expr, error) {
	if cfg.Expression == "" {
		return nil, fmt.Errorf("expression not defined")
	}
	ex, err := expr.Compile(cfg.Expression)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return &Expr{cfg: cfg, expr: ex}, nil
}

func (f *Expr) Name() string { return "expr" }

func (f *Expr) Check(feats features.Features) error {
	_, err := f.expr.Check(feats)
	return err
}

func (f *Expr) Keep(rec features.Record, index int) (bool, error) {
	v, err := f.expr.Eval(rec, index)
	if err != nil {
		return false, &prepline.EvaluationError{Expression: f.cfg.Expression, RecordIndex: index, Err: err}
	}
	keep, err := expr.Truth(v)
	if err != nil {
		return false, &prepline.EvaluationError{Expression: f.cfg.Expression, RecordIndex: index, Err: err}
	}
	return keep, nil
}
