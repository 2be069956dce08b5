// Package profile collects per-split run statistics while records stream
// through the pipeline: record counts, filter drops, and sequence length
// distributions of the prepared output.
package profile

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/prepline/prepline/pkg/features"
)

// SeqStats summarizes the lengths of one sequence column across a split.
type SeqStats struct {
	Count int   `json:"count"`
	Min   int   `json:"min"`
	Max   int   `json:"max"`
	Sum   int64 `json:"-"`
}

// Mean returns the average sequence length.
func (s *SeqStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Sum) / float64(s.Count)
}

// Collector accumulates statistics for one split. Not safe for concurrent
// use; each split worker owns its own collector.
type Collector struct {
	split   string
	in      int
	out     int
	dropped int
	seq     map[string]*SeqStats
}

// NewCollector tracks the sequence columns of the prepared output schema.
func NewCollector(split string, feats features.Features) *Collector {
	c := &Collector{split: split, seq: make(map[string]*SeqStats)}
	for name, f := range feats {
		if _, ok := f.(features.Sequence); ok {
			c.seq[name] = &SeqStats{}
		}
	}
	return c
}

// RecordIn counts a record read from the source split.
func (c *Collector) RecordIn() { c.in++ }

// RecordDropped counts a record rejected by a filter.
func (c *Collector) RecordDropped() { c.dropped++ }

// RecordOut counts a prepared record and folds its sequence lengths into
// the distribution.
func (c *Collector) RecordOut(rec features.Record) {
	c.out++
	for name, st := range c.seq {
		n := features.SeqLen(rec[name])
		if n < 0 {
			continue
		}
		if st.Count == 0 || n < st.Min {
			st.Min = n
		}
		if n > st.Max {
			st.Max = n
		}
		st.Count++
		st.Sum += int64(n)
	}
}

// Report is the final per-split summary.
type Report struct {
	Split   string               `json:"split"`
	In      int                  `json:"records_in"`
	Out     int                  `json:"records_out"`
	Dropped int                  `json:"records_dropped"`
	Seq     map[string]*SeqStats `json:"sequence_lengths,omitempty"`
}

func (c *Collector) Report() Report {
	return Report{Split: c.split, In: c.in, Out: c.out, Dropped: c.dropped, Seq: c.seq}
}

func (r Report) String() string {
	s := fmt.Sprintf("split %s: in=%d out=%d dropped=%d", r.Split, r.In, r.Out, r.Dropped)
	names := make([]string, 0, len(r.Seq))
	for name := range r.Seq {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := r.Seq[name]
		s += fmt.Sprintf(" %s[min=%d mean=%.1f max=%d]", name, st.Min, st.Mean(), st.Max)
	}
	return s
}

// LogValue renders the report as structured log attributes.
func (r Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("split", r.Split),
		slog.Int("in", r.In),
		slog.Int("out", r.Out),
		slog.Int("dropped", r.Dropped),
	}
	for name, st := range r.Seq {
		attrs = append(attrs, slog.Group(name,
			slog.Int("min", st.Min),
			slog.Float64("mean", st.Mean()),
			slog.Int("max", st.Max),
		))
	}
	return slog.GroupValue(attrs...)
}
