package csvio

import (
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/io/ioutils"
)

// WriteAll writes flat records to a CSV file with a header row. Columns are
// emitted in sorted name order; sequence and struct features are rejected.
func WriteAll(path string, feats features.Features, recs []features.Record) error {
	names := make([]string, 0, len(feats))
	for name, f := range feats {
		switch f.(type) {
		case features.Value, features.ClassLabel:
		default:
			return fmt.Errorf("column %q: csv output supports scalar columns only, got %s", name, f)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out, err := ioutils.CreateMaybeCompressed(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if err := w.Write(names); err != nil {
		out.Close()
		return err
	}
	row := make([]string, len(names))
	for _, rec := range recs {
		for i, name := range names {
			row[i] = formatScalar(rec[name])
		}
		if err := w.Write(row); err != nil {
			out.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
