// Package prepline implements the data-preparation pipeline engine: processor
// and filter contracts, a pipeline that composes them with deterministic
// schema propagation, and the per-split executor.
package prepline

import (
	"github.com/prepline/prepline/pkg/features"
)

// Processor is a single pipeline step. Implementations must keep both phases
// pure: MapFeatures is a function of the input schema and the processor's own
// config only, and Process must not mutate its input record.
type Processor interface {
	// Name returns the processor_type discriminator.
	Name() string

	// MapFeatures computes the new (or overwritten) columns this processor
	// emits given the input schema. Called once, before any record is seen.
	MapFeatures(in features.Features) (features.Features, error)

	// Process computes the emitted column values for one record. The engine
	// merges the result over the input record; untouched columns pass
	// through unchanged.
	Process(rec features.Record, index int) (features.Record, error)
}

// Filter is a pure row predicate, applied after the full processor sequence.
type Filter interface {
	// Name returns the filter_type discriminator.
	Name() string

	// Check validates the filter against the final pipeline schema.
	Check(feats features.Features) error

	// Keep reports whether the record survives the filter.
	Keep(rec features.Record, index int) (bool, error)
}
