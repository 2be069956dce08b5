package prepline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prepline/prepline/pkg/dataset"
	"github.com/prepline/prepline/pkg/features"
	"github.com/prepline/prepline/pkg/io/jsonlio"
	"github.com/prepline/prepline/pkg/io/parquetio"
	"github.com/prepline/prepline/pkg/profile"
)

// RunOptions control a preparation run.
type RunOptions struct {
	// OutDir receives one file per prepared split plus dataset_info.json.
	OutDir string
	// Splits restricts the run to a subset of the configured splits. Empty
	// means all.
	Splits []string
	// MaxSize bounds the number of records read per split. 0 means all.
	MaxSize int
	// Format selects the output sink: "jsonl" (default) or "parquet".
	Format string
	Logger *slog.Logger
}

// SplitSource is a resolved split: schema, size and restartable record
// streaming.
type SplitSource interface {
	Schema() features.Features
	Len() int
	Open() (dataset.RecordReader, error)
}

// Resolver binds split expressions to record sources.
type Resolver interface {
	Resolve(expr string) (SplitSource, error)
}

type datasetResolver struct {
	ds *dataset.Dataset
}

func (r datasetResolver) Resolve(expr string) (SplitSource, error) {
	return r.ds.Resolve(expr)
}

// splitInfo is the per-split entry of dataset_info.json.
type splitInfo struct {
	NumRecords int               `json:"num_records"`
	Features   features.Features `json:"features"`
}

type datasetInfo struct {
	Format string               `json:"format"`
	Splits map[string]splitInfo `json:"splits"`
}

// Run prepares every configured split and persists the results. The config
// is validated and the pipeline built once up front so that configuration
// mistakes, malformed split expressions included, surface before any dataset
// IO; the pipeline is then rebuilt per split so workers never share compiled
// state.
func Run(ctx context.Context, cfg *Config, opts RunOptions) (map[string]profile.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := Build(cfg); err != nil {
		return nil, err
	}
	ds, err := dataset.Open(cfg.Data.Dataset)
	if err != nil {
		return nil, &ResourceError{Identifier: cfg.Data.Dataset, Err: err}
	}
	return run(ctx, cfg, opts, datasetResolver{ds: ds})
}

func run(ctx context.Context, cfg *Config, opts RunOptions, res Resolver) (map[string]profile.Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch opts.Format {
	case "", "jsonl", "parquet":
	default:
		return nil, &ConfigError{Section: "format", Msg: fmt.Sprintf("unsupported output format %q", opts.Format)}
	}

	selected, err := selectSplits(cfg, opts.Splits)
	if err != nil {
		return nil, err
	}
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return nil, &ResourceError{Identifier: opts.OutDir, Err: err}
		}
	}

	var (
		mu      sync.Mutex
		reports = make(map[string]profile.Report, len(selected))
		info    = datasetInfo{Format: format(opts), Splits: make(map[string]splitInfo, len(selected))}
	)
	g, ctx := errgroup.WithContext(ctx)
	for name, expr := range selected {
		name, expr := name, expr
		g.Go(func() error {
			report, feats, err := runSplit(ctx, cfg, name, expr, res, opts)
			if err != nil {
				return fmt.Errorf("split %q: %w", name, err)
			}
			logger.Info("prepared split", "report", report)
			mu.Lock()
			reports[name] = report
			info.Splits[name] = splitInfo{NumRecords: report.Out, Features: feats}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.OutDir != "" {
		if err := writeInfo(filepath.Join(opts.OutDir, "dataset_info.json"), info); err != nil {
			return nil, &ResourceError{Identifier: opts.OutDir, Err: err}
		}
	}
	return reports, nil
}

func selectSplits(cfg *Config, subset []string) (map[string]string, error) {
	if len(subset) == 0 {
		return cfg.Data.Splits, nil
	}
	out := make(map[string]string, len(subset))
	for _, name := range subset {
		expr, ok := cfg.Data.Splits[name]
		if !ok {
			return nil, &ConfigError{Section: "data", Msg: fmt.Sprintf("split %q not declared in config", name)}
		}
		out[name] = expr
	}
	return out, nil
}

func format(opts RunOptions) string {
	if opts.Format == "" {
		return "jsonl"
	}
	return opts.Format
}

func runSplit(ctx context.Context, cfg *Config, name, expr string, res Resolver, opts RunOptions) (profile.Report, features.Features, error) {
	pipe, err := Build(cfg)
	if err != nil {
		return profile.Report{}, nil, err
	}
	src, err := res.Resolve(expr)
	if err != nil {
		return profile.Report{}, nil, &ResourceError{Identifier: cfg.Data.Dataset + "/" + expr, Err: err}
	}
	feats, err := pipe.Prepare(src.Schema())
	if err != nil {
		return profile.Report{}, nil, err
	}
	outFeats := pipe.ProjectFeatures(feats)

	reader, err := src.Open()
	if err != nil {
		return profile.Report{}, nil, &ResourceError{Identifier: cfg.Data.Dataset + "/" + expr, Err: err}
	}
	defer reader.Close()

	collector := profile.NewCollector(name, outFeats)
	sink, err := newSink(opts, name)
	if err != nil {
		return profile.Report{}, nil, err
	}

	for index := 0; opts.MaxSize <= 0 || index < opts.MaxSize; index++ {
		select {
		case <-ctx.Done():
			sink.abort()
			return profile.Report{}, nil, ctx.Err()
		default:
		}
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			sink.abort()
			return profile.Report{}, nil, &ResourceError{Identifier: cfg.Data.Dataset + "/" + expr, Err: err}
		}
		collector.RecordIn()

		out, err := pipe.Process(rec, index)
		if err != nil {
			sink.abort()
			return profile.Report{}, nil, err
		}
		keep, err := pipe.Keep(out, index)
		if err != nil {
			sink.abort()
			return profile.Report{}, nil, err
		}
		if !keep {
			collector.RecordDropped()
			continue
		}
		projected := pipe.Project(out)
		collector.RecordOut(projected)
		if err := sink.write(projected); err != nil {
			sink.abort()
			return profile.Report{}, nil, &ResourceError{Identifier: opts.OutDir, Err: err}
		}
	}

	if err := sink.close(outFeats); err != nil {
		return profile.Report{}, nil, &ResourceError{Identifier: opts.OutDir, Err: err}
	}
	return collector.Report(), outFeats, nil
}

// sink hides the difference between the streaming jsonl writer and the
// buffered parquet writer.
type sink struct {
	jsonl *jsonlio.Writer
	// parquet needs the full record set and the schema at close time.
	parquetPath string
	buf         []features.Record
	discard     bool
}

func newSink(opts RunOptions, split string) (*sink, error) {
	if opts.OutDir == "" {
		return &sink{discard: true}, nil
	}
	switch format(opts) {
	case "parquet":
		return &sink{parquetPath: filepath.Join(opts.OutDir, split+".parquet")}, nil
	default:
		w, err := jsonlio.NewWriter(filepath.Join(opts.OutDir, split+".jsonl"))
		if err != nil {
			return nil, &ResourceError{Identifier: opts.OutDir, Err: err}
		}
		return &sink{jsonl: w}, nil
	}
}

func (s *sink) write(rec features.Record) error {
	switch {
	case s.discard:
		return nil
	case s.jsonl != nil:
		return s.jsonl.Write(rec)
	default:
		s.buf = append(s.buf, rec)
		return nil
	}
}

func (s *sink) close(feats features.Features) error {
	switch {
	case s.discard:
		return nil
	case s.jsonl != nil:
		return s.jsonl.Close()
	default:
		return parquetio.WriteAll(s.parquetPath, feats, s.buf)
	}
}

func (s *sink) abort() {
	if s.jsonl != nil {
		s.jsonl.Close()
	}
}

func writeInfo(path string, info datasetInfo) error {
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
