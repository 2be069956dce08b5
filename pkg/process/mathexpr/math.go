// Package mathexpr implements the "math" processor, which evaluates an
// arithmetic expression over record columns and stores the result in a new
// column. Integer arithmetic broadcasts elementwise over sequences.
package mathexpr

import (
	"fmt"

	"github.com/prepline/prepline/pkg/expr"
	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/prepline"
)

// Config are the expr processor parameters. Both fields are required.
type Config struct {
	Expression   string `mapstructure:"expression"`
	OutputColumn string `mapstructure:"output_column"`
}

// Processor evaluates one compiled expression per record.
type Processor struct {
	cfg  Config
	expr *expr.Expr
}

func init() {
	prepline.RegisterProcessor("math", func(params map[string]any) (prepline.Processor, error) {
		var cfg Config
		if err := prepline.DecodeParams(params, &cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return New(cfg)
	})
}

// New compiles the expression and validates the config.
func New(cfg Config) (*Processor, error) {
	if cfg.Expression == "" {
		return nil, fmt.Errorf("expression not defined")
	}
	if cfg.OutputColumn == "" {
		return nil, fmt.Errorf("output_column not defined")
	}
	ex, err := expr.Compile(cfg.Expression)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return &Processor{cfg: cfg, expr: ex}, nil
}

func (p *Processor) Name() string { return "math" }

// MapFeatures type-checks the expression against the input schema and
// declares the inferred output feature.
func (p *Processor) MapFeatures(in features.Features) (features.Features, error) {
	f, err := p.expr.Check(in)
	if err != nil {
		return nil, err
	}
	return features.Features{p.cfg.OutputColumn: f}, nil
}

func (p *Processor) Process(rec features.Record, index int) (features.Record, error) {
	v, err := p.expr.Eval(rec, index)
	if err != nil {
		return nil, &prepline.EvaluationError{Expression: p.cfg.Expression, RecordIndex: index, Err: err}
	}
	return features.Record{p.cfg.OutputColumn: v}, nil
}
