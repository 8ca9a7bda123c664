package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightdelivered/sms-transaction-parser/internal/api"
	"github.com/insightdelivered/sms-transaction-parser/internal/classifier"
	"github.com/insightdelivered/sms-transaction-parser/internal/config"
	"github.com/insightdelivered/sms-transaction-parser/internal/enrich"
	"github.com/insightdelivered/sms-transaction-parser/internal/extractor"
	"github.com/insightdelivered/sms-transaction-parser/internal/logger"
	"github.com/insightdelivered/sms-transaction-parser/internal/models"
	"github.com/insightdelivered/sms-transaction-parser/internal/pipeline"
	"github.com/insightdelivered/sms-transaction-parser/internal/store"
	"github.com/insightdelivered/sms-transaction-parser/internal/transfer"
	"github.com/insightdelivered/sms-transaction-parser/internal/writer"
)

const version = "2.0.0"

// modelLoader builds the sequence-classifier engine. Builds that link an
// inference runtime set it; without one the regex analysis is used.
var modelLoader classifier.Loader

func main() {
	configFlag := flag.String("config", "", "Path to YAML config file")
	dbFlag := flag.String("db", "", "SQLite database path (in-memory store if empty)")
	serveFlag := flag.Bool("serve", false, "Start the HTTP API instead of processing files")
	addrFlag := flag.String("addr", "", "HTTP listen address (default :8080)")
	workersFlag := flag.Int("workers", 0, "Concurrent message workers (default 4)")
	windowFlag := flag.Duration("window", 0, "Offsetting-pair window (default 3m)")
	headerFlag := flag.Bool("header", true, "Include summary metadata rows in the CSV report")
	levelFlag := flag.String("log-level", "", "Log level: debug, info, warn, error")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `SMS Transaction Parser
by Insight Delivered (QEA AutoLens)

Extracts and classifies financial transactions from Indian bank and
fintech SMS messages.

Usage:
  sms-transaction-parser [flags] <export> [export2 ...]
  sms-transaction-parser -serve [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Print a CSV report for an SMS Backup & Restore export
  sms-transaction-parser sms-20240812.xml

  # Persist into SQLite and widen the pairing window
  sms-transaction-parser -db tx.db -window 5m inbox.csv

  # Serve the HTTP API
  sms-transaction-parser -serve -config config.yaml

Supported exports:
  .csv  sender,body,timestamp rows
  .xml  SMS Backup & Restore
  .txt  From:/Date: conversation dumps
  .pdf  From:/Date: conversation dumps printed to PDF
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("sms-transaction-parser v%s\n", version)
		os.Exit(0)
	}
	if *helpFlag || (!*serveFlag && flag.NArg() == 0) {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatalf("Invalid configuration: %v\n", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			cfg.DBPath = *dbFlag
		case "addr":
			cfg.Server.Addr = *addrFlag
		case "workers":
			cfg.Workers = *workersFlag
		case "window":
			cfg.Pairing.Window = *windowFlag
		case "log-level":
			cfg.Log.Level = *levelFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid configuration: %v\n", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Console)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	if err := run(ctx, cfg, *serveFlag, *headerFlag, flag.Args()); err != nil {
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, serve, header bool, files []string) error {
	log := logger.FromContext(ctx)

	st, closeStore, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Oracle.Provider == config.ProviderGemini {
		o, err := enrich.NewGeminiOracle(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model)
		if err != nil {
			return fmt.Errorf("creating oracle: %w", err)
		}
		if err := enrich.SetDefault(o); err != nil {
			return err
		}
		log.Info().Str("model", cfg.Oracle.Model).Msg("enrichment oracle enabled")
	}

	adapter := classifier.NewAdapter(classifier.Config{
		ModelPath: cfg.Model.Path,
		VocabPath: cfg.Model.VocabPath,
		MaxTokens: cfg.Model.MaxTokens,
		Timeout:   cfg.Model.Timeout,
	}, modelLoader, log)
	defer adapter.Release()
	if cfg.Model.Path != "" {
		if err := adapter.Init(); err != nil {
			log.Warn().Err(err).Msg("classifier model not loaded, using regex analysis")
		}
	}

	p := pipeline.New(
		pipeline.WithLogger(log),
		pipeline.WithStore(st),
		pipeline.WithPairWindow(transfer.NewPairWindow(cfg.Pairing.Window, cfg.Pairing.BucketSize)),
		pipeline.WithOracleTimeout(cfg.Oracle.Timeout),
		pipeline.WithClassifier(adapter),
	)

	if serve {
		return serveAPI(ctx, cfg, p, log)
	}
	return processFiles(ctx, cfg, p, header, files)
}

func openStore(path string) (store.Store, func(), error) {
	if path == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	s, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

func serveAPI(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, log zerolog.Logger) error {
	apiLog := logger.WithFields(log, map[string]interface{}{"component": "api", "version": version})
	app := api.NewApp(&api.Handler{Pipeline: p, Workers: cfg.Workers, Log: apiLog})

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		errc <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	}
}

func processFiles(ctx context.Context, cfg config.Config, p *pipeline.Pipeline, header bool, files []string) error {
	var msgs []models.RawMessage
	for _, path := range files {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("input file not found: %s", path)
		}
		fileMsgs, err := extractor.ExtractMessages(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Read %d message(s) from %s\n", len(fileMsgs), path)
		msgs = append(msgs, fileMsgs...)
	}

	results, err := p.ProcessBatch(ctx, msgs, cfg.Workers)
	if err != nil {
		return err
	}
	var inserted, duplicates, paired int
	for _, res := range results {
		switch {
		case res.Duplicate:
			duplicates++
		case !res.Rejected():
			inserted++
		}
		if res.PairedWith != "" {
			paired++
		}
	}
	fmt.Fprintf(os.Stderr, "  %d transaction(s), %d duplicate(s), %d offsetting pair(s), %d rejected\n",
		inserted, duplicates, paired, len(results)-inserted-duplicates)

	records, err := p.Store().Range(ctx, 0, 0)
	if err != nil {
		return err
	}
	sum := pipeline.Summarize(records)
	w := &writer.CSVWriter{IncludeHeader: header}
	if err := w.Write(os.Stdout, records, &sum); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
