// Command ledgerctl provisions the catalog and prints ledger projections
// against the configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/internal/app"
	"github.com/noah-isme/sma-merit-api/internal/service"
	"github.com/noah-isme/sma-merit-api/pkg/config"
	"github.com/noah-isme/sma-merit-api/pkg/export"
	"github.com/noah-isme/sma-merit-api/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage()
		return errors.New("subcommand required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return dispatch(ctx, cfg, logr, args, stdout)
}

func dispatch(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, stdout io.Writer) error {
	switch args[0] {
	case "seed":
		return runSeed(ctx, cfg, logr, args[1:], stdout)
	case "report":
		return runReport(ctx, cfg, logr, args[1:], stdout)
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: ledgerctl <subcommand> [flags]

Subcommands:
  seed      Provision students, staff and criteria into empty tables
  report    Print a projection: ranking, teachers or meals

Configuration is read from the environment and .env, like the API server.
`)
}

func runSeed(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, stdout io.Writer) error {
	var file string
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&file, "file", cfg.Seed.File, "YAML seed document (default: built-in catalog)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	container, cleanup, err := app.Build(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer cleanup()

	written, err := container.Provision(ctx, file)
	if err != nil {
		return err
	}
	if written == 0 {
		fmt.Fprintln(stdout, "catalog already provisioned, nothing written")
		return nil
	}
	fmt.Fprintf(stdout, "provisioned %d rows into %s storage\n", written, cfg.Storage.Backend)
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string, stdout io.Writer) error {
	var (
		date   string
		format string
	)
	flagSet := pflag.NewFlagSet("report", pflag.ContinueOnError)
	flagSet.StringVar(&date, "date", "", "day for the meal count, YYYY-MM-DD (default: today)")
	flagSet.StringVar(&format, "format", "table", "output format: table or csv")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("report requires one projection: ranking, teachers or meals")
	}
	projection, err := service.ProjectionName(flagSet.Arg(0))
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "table" && format != string(export.FormatCSV) {
		return fmt.Errorf("unsupported output format %q", format)
	}

	container, cleanup, err := app.Build(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Seed.ProvisionOnBoot {
		if _, err := container.Provision(ctx, cfg.Seed.File); err != nil {
			return err
		}
	}

	data, err := projectionDataset(ctx, container.Aggregation, projection, date)
	if err != nil {
		return err
	}
	if format == string(export.FormatCSV) {
		return export.NewCSVExporter().Write(stdout, data)
	}
	return writeTable(stdout, data)
}

func projectionDataset(ctx context.Context, agg *service.AggregationService, projection, date string) (export.Dataset, error) {
	switch projection {
	case "ranking":
		ranking, _, err := agg.ClassRanking(ctx)
		if err != nil {
			return export.Dataset{}, err
		}
		return service.RankingDataset(ranking), nil
	case "teachers":
		stats, _, err := agg.TeacherStats(ctx)
		if err != nil {
			return export.Dataset{}, err
		}
		return service.TeacherStatsDataset(stats), nil
	default:
		report, _, err := agg.MealCount(ctx, date)
		if err != nil {
			return export.Dataset{}, err
		}
		return service.MealDataset(report), nil
	}
}

func writeTable(w io.Writer, data export.Dataset) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, data.Title)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(data.Headers, "\t")))
	for i := range data.Rows {
		fmt.Fprintln(tw, strings.Join(data.Record(i), "\t"))
	}
	return tw.Flush()
}
