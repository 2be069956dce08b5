// Command prepline runs a configured data preparation pipeline over a
// dataset and writes the prepared splits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prepline/prepline/pkg/prepline"

	_ "github.com/prepline/prepline/pkg/filter"
	_ "github.com/prepline/prepline/pkg/process/biolabels"
	_ "github.com/prepline/prepline/pkg/process/debuglog"
	_ "github.com/prepline/prepline/pkg/process/jinja"
	_ "github.com/prepline/prepline/pkg/process/mathexpr"
	_ "github.com/prepline/prepline/pkg/process/tokenizer"
)

var version = "0.1.0-dev"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	configPath := flag.String("config", "", "Path to pipeline config (.yaml, .toml or .json)")
	outDir := flag.String("out", "out", "Output directory for prepared splits")
	splits := flag.String("splits", "", "Comma-separated subset of configured splits to prepare")
	maxSize := flag.Int("max-size", 0, "Limit records read per split (0 = all)")
	format := flag.String("format", "jsonl", "Output format: jsonl or parquet")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	flag.Parse()

	if *showVersion {
		fmt.Println("prepline", version)
		return
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "no config provided; nothing to do. try -config <file> or -version")
		os.Exit(2)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level", *logLevel)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := prepline.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := prepline.RunOptions{
		OutDir:  *outDir,
		MaxSize: *maxSize,
		Format:  *format,
		Logger:  logger,
	}
	if *splits != "" {
		opts.Splits = strings.Split(*splits, ",")
	}

	reports, err := prepline.Run(context.Background(), cfg, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, r := range reports {
		fmt.Println(r)
	}
}
