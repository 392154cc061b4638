package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"retailpulse/internal/app"
	"retailpulse/internal/config"
	"retailpulse/internal/infrastructure"
	"retailpulse/internal/operations"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		return 1
	}
	if err := applyFlags(cfg, args); err != nil {
		slog.Error("Invalid arguments", slog.String("error", err.Error()))
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, runErr := application.RunPipeline(ctx)
	logSummary(ctx, logger, resp)

	if err := application.Close(context.Background()); err != nil {
		logger.Warn("Shutdown completed with errors", slog.String("error", err.Error()))
	}

	if runErr != nil || !resp.Succeeded() {
		return 1
	}
	return 0
}

// applyFlags parses args and overrides the configuration with the flags that
// were set explicitly.
func applyFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	source := fs.String("source", cfg.Source.Location, "source workbook or CSV (local path or http(s) URL)")
	data := fs.String("data", cfg.Storage.Root, "data root holding the bronze, silver and gold layers")
	top := fs.Int("top", cfg.Aggregation.TopProducts, "number of products in the top products view")
	backend := fs.String("backend", cfg.Storage.Backend, "layer store backend: file or sqlite")
	dropInvalid := fs.Bool("drop-invalid-timestamps", cfg.Cleaning.DropInvalidTimestamps, "drop rows whose timestamp cannot be parsed")
	workbook := fs.Bool("workbook", cfg.Storage.Workbook, "export the gold views to an xlsx report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source.Location = *source
		case "data":
			cfg.Storage.Root = *data
			cfg.Storage.SQLitePath = filepath.Join(*data, filepath.Base(cfg.Storage.SQLitePath))
		case "top":
			cfg.Aggregation.TopProducts = *top
		case "backend":
			cfg.Storage.Backend = *backend
		case "drop-invalid-timestamps":
			cfg.Cleaning.DropInvalidTimestamps = *dropInvalid
		case "workbook":
			cfg.Storage.Workbook = *workbook
		}
	})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// logSummary prints the outcome of a run through the logger
func logSummary(ctx context.Context, logger *slog.Logger, resp *operations.RunResponse) {
	if resp == nil {
		return
	}

	logger.InfoContext(ctx, "Pipeline finished",
		slog.String("run_id", resp.RunID),
		slog.String("status", string(resp.Status)),
		slog.Duration("duration", resp.Duration),
		slog.Int("warnings", len(resp.Warnings)))

	if q := resp.Quality; q != nil {
		attrs := []any{slog.Int("total_rows", q.TotalRows)}
		for _, m := range q.Metrics() {
			attrs = append(attrs, slog.Group(m.Name,
				slog.Int("count", m.Value),
				slog.Float64("percent", q.Percent(m.Value))))
		}
		logger.InfoContext(ctx, "Data quality report", attrs...)
	}

	if s := resp.Summary; s != nil {
		logger.InfoContext(ctx, "Transformation summary",
			slog.Int("initial_rows", s.InitialRows),
			slog.Int("final_rows", s.FinalRows),
			slog.Int("rows_removed", s.RowsRemoved),
			slog.Float64("removal_ratio", s.RemovalRatio),
			slog.Int("invalid_timestamps", s.InvalidTimestamps))
	}

	for name, gt := range resp.GoldTables {
		if gt.Available {
			logger.InfoContext(ctx, "Gold table",
				slog.String("table", name),
				slog.Int("rows", gt.Rows),
				slog.String("location", gt.Location))
			continue
		}
		logger.WarnContext(ctx, "Gold table unavailable",
			slog.String("table", name),
			slog.String("error", gt.Error))
	}

	if resp.Report != "" {
		logger.InfoContext(ctx, "Gold report written", slog.String("path", resp.Report))
	}
	for _, w := range resp.Warnings {
		logger.WarnContext(ctx, "Run warning", slog.String("warning", w))
	}
	if resp.Error != "" {
		logger.ErrorContext(ctx, "Pipeline failed", slog.String("error", resp.Error))
	}
}
