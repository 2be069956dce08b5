// Package debuglog implements the "debug.log" processor, which renders a
// template per record and writes it to the log. It adds no columns and never
// modifies the record.
package debuglog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/prepline"
	"github.com/prepline/prepline/pkg/render"
)

// Config are the debug.log processor parameters.
type Config struct {
	Template string `mapstructure:"template"`
	Level    string `mapstructure:"level"`
}

func defaultConfig() Config {
	return Config{Template: "{{ item }}", Level: "DEBUG"}
}

// Processor logs one rendered line per record.
type Processor struct {
	cfg    Config
	tpl    *render.Template
	level  slog.Level
	logger *slog.Logger
	feats  features.Features
}

func init() {
	prepline.RegisterProcessor("debug.log", func(params map[string]any) (prepline.Processor, error) {
		cfg := defaultConfig()
		if err := prepline.DecodeParams(params, &cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
		return New(cfg, slog.Default())
	})
}

// New compiles the template and resolves the log level.
func New(cfg Config, logger *slog.Logger) (*Processor, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid level %q", cfg.Level)
	}
	tpl, err := render.Compile(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("compile template: %w", err)
	}
	return &Processor{cfg: cfg, tpl: tpl, level: level, logger: logger}, nil
}

func (p *Processor) Name() string { return "debug.log" }

// MapFeatures checks the template's column references and records the schema
// for rendering; the schema passes through unchanged.
func (p *Processor) MapFeatures(in features.Features) (features.Features, error) {
	for _, col := range p.tpl.Columns() {
		if _, ok := in[col]; !ok {
			return nil, fmt.Errorf("column %q not present in features but referenced in template", col)
		}
	}
	p.feats = in.Copy()
	return features.Features{}, nil
}

func (p *Processor) Process(rec features.Record, index int) (features.Record, error) {
	out, err := p.tpl.Render(rec, p.feats, index)
	if err != nil {
		return nil, &prepline.TemplateError{Source: p.cfg.Template, RecordIndex: index, Err: err}
	}
	if len(out) > 0 {
		p.logger.Log(context.Background(), p.level, out, "index", index)
	}
	return features.Record{}, nil
}
