package prepline

import (
	"errors"
	"fmt"

	"github.com/prepline/prepline/pkg/features"
)

// Pipeline composes an ordered processor sequence with row filters and an
// output column map. Build a fresh instance per worker: compiled templates,
// expressions and tokenizer handles are private to a pipeline.
type Pipeline struct {
	procs   []Processor
	filters []Filter
	columns map[string]string
}

// Build constructs every processor and filter named by the config. Unknown
// type tags and invalid parameters fail here, before any dataset IO.
func Build(cfg *Config) (*Pipeline, error) {
	p := &Pipeline{columns: cfg.Columns}
	for i, step := range cfg.Pipeline {
		tag, err := stepTag(step, "processor_type")
		if err != nil {
			return nil, &ConfigError{Section: fmt.Sprintf("pipeline[%d]", i), Msg: err.Error()}
		}
		proc, err := newProcessor(tag, stepParams(step, "processor_type"))
		if err != nil {
			return nil, wrapBuildErr(fmt.Sprintf("pipeline[%d]", i), tag, err)
		}
		p.procs = append(p.procs, proc)
	}
	for i, step := range cfg.Filters {
		tag, err := stepTag(step, "filter_type")
		if err != nil {
			return nil, &ConfigError{Section: fmt.Sprintf("filters[%d]", i), Msg: err.Error()}
		}
		f, err := newFilter(tag, stepParams(step, "filter_type"))
		if err != nil {
			return nil, wrapBuildErr(fmt.Sprintf("filters[%d]", i), tag, err)
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

// wrapBuildErr keeps resource failures (e.g. an unresolvable checkpoint)
// distinguishable from plain configuration mistakes.
func wrapBuildErr(section, tag string, err error) error {
	var re *ResourceError
	if errors.As(err, &re) {
		return fmt.Errorf("%s (%s): %w", section, tag, err)
	}
	return &ConfigError{Section: section, Msg: tag, Err: err}
}

// Steps returns the ordered processor sequence.
func (p *Pipeline) Steps() []Processor { return p.procs }

// Prepare runs schema inference: every processor's MapFeatures in declared
// order, each consuming its predecessor's output schema, followed by filter
// and column-map validation against the final schema. Pure: calling it twice
// with the same input yields the same result.
func (p *Pipeline) Prepare(in features.Features) (features.Features, error) {
	feats := in.Copy()
	for i, proc := range p.procs {
		step := fmt.Sprintf("pipeline[%d] (%s)", i, proc.Name())
		add, err := proc.MapFeatures(feats)
		if err != nil {
			return nil, &SchemaError{Step: step, Msg: "map features", Err: err}
		}
		feats, err = feats.Merge(add)
		if err != nil {
			return nil, &SchemaError{Step: step, Msg: "merge features", Err: err}
		}
	}
	for i, f := range p.filters {
		if err := f.Check(feats); err != nil {
			return nil, &SchemaError{Step: fmt.Sprintf("filters[%d] (%s)", i, f.Name()), Msg: "check", Err: err}
		}
	}
	for target, source := range p.columns {
		if _, ok := feats[source]; !ok {
			return nil, &ConfigError{
				Section: "columns",
				Msg:     fmt.Sprintf("output column %q references %q, not present in final schema %s", target, source, feats),
			}
		}
	}
	return feats, nil
}

// Process applies the processor sequence to one record. The input record is
// never mutated; each processor sees the record state left by its
// predecessor.
func (p *Pipeline) Process(rec features.Record, index int) (features.Record, error) {
	cur := rec.Copy()
	for i, proc := range p.procs {
		add, err := proc.Process(cur, index)
		if err != nil {
			return nil, fmt.Errorf("pipeline[%d] (%s): %w", i, proc.Name(), err)
		}
		for k, v := range add {
			cur[k] = v
		}
	}
	return cur, nil
}

// Keep applies the filters in declared order, short-circuiting on the first
// failing predicate. An empty filter list keeps everything.
func (p *Pipeline) Keep(rec features.Record, index int) (bool, error) {
	for i, f := range p.filters {
		ok, err := f.Keep(rec, index)
		if err != nil {
			return false, fmt.Errorf("filters[%d] (%s): %w", i, f.Name(), err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Project restricts a record to the canonical output columns.
func (p *Pipeline) Project(rec features.Record) features.Record {
	out := make(features.Record, len(p.columns))
	for target, source := range p.columns {
		out[target] = rec[source]
	}
	return out
}

// ProjectFeatures restricts a schema to the canonical output columns.
func (p *Pipeline) ProjectFeatures(feats features.Features) features.Features {
	out := make(features.Features, len(p.columns))
	for target, source := range p.columns {
		out[target] = feats[source]
	}
	return out
}
