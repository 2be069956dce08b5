// Package jinja implements the "jinja" processor, which renders a template
// against each record and stores the result in a new string column.
package jinja

import (
	"fmt"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/prepline"
	"github.com/prepline/prepline/pkg/render"
)

// Config are the jinja processor parameters. Both fields are required.
type Config struct {
	Template     string `mapstructure:"template"`
	OutputColumn string `mapstructure:"output_column"`
}

// Processor renders one template per record. The template is compiled once
// at build time; render failures are per-record and fatal.
type Processor struct {
	cfg   Config
	tpl   *render.Template
	feats features.Features
}

func init() {
	prepline.RegisterProcessor("jinja", func(params map[string]any) (prepline.Processor, error) {
		var cfg Config
		if err := prepline.DecodeParams(params, &cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return New(cfg)
	})
}

// New compiles the template and validates the config.
func New(cfg Config) (*Processor, error) {
	if cfg.Template == "" {
		return nil, fmt.Errorf("template not defined")
	}
	if cfg.OutputColumn == "" {
		return nil, fmt.Errorf("output_column not defined")
	}
	tpl, err := render.Compile(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("compile template: %w", err)
	}
	return &Processor{cfg: cfg, tpl: tpl}, nil
}

func (p *Processor) Name() string { return "jinja" }

// MapFeatures checks every column the template references against the input
// schema, records it for rendering and declares the output column.
func (p *Processor) MapFeatures(in features.Features) (features.Features, error) {
	for _, col := range p.tpl.Columns() {
		if _, ok := in[col]; !ok {
			return nil, fmt.Errorf("column %q not present in features but referenced in template", col)
		}
	}
	p.feats = in.Copy()
	return features.Features{p.cfg.OutputColumn: features.Str()}, nil
}

func (p *Processor) Process(rec features.Record, index int) (features.Record, error) {
	out, err := p.tpl.Render(rec, p.feats, index)
	if err != nil {
		return nil, &prepline.TemplateError{Source: p.cfg.Template, RecordIndex: index, Err: err}
	}
	return features.Record{p.cfg.OutputColumn: out}, nil
}
