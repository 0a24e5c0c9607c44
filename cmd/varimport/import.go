package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/genomehub/varimport/internal/audit"
	"github.com/genomehub/varimport/internal/ingest"
	"github.com/genomehub/varimport/internal/store"
)

func newImportCmd() *cobra.Command {
	var (
		driver     string
		dsn        string
		batchSize  int
		padding    int64
		workers    int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.vcf> [file.vcf...]",
		Short: "Import VCF files into the variant store",
		Long: `Import one or more VCF files. Each file is parsed, its variants are
resolved to genes (creating inferred placeholders where necessary),
deduplicated, and committed in batched transactions. Independent files
are imported concurrently; batches within one file stay sequential.

Every import is recorded as an audit run retrievable with 'varimport runs'.`,
		Example: `  varimport import sample.vcf
  varimport import --driver pgx --dsn "postgres://localhost/genomics" *.vcf
  varimport import --batch-size 500 cohort1.vcf.gz cohort2.vcf.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver == "" {
				driver = viper.GetString("store.driver")
			}
			if dsn == "" {
				dsn = viper.GetString("store.dsn")
			}
			if batchSize == 0 {
				batchSize = viper.GetInt("import.batch_size")
			}
			if padding == 0 {
				padding = viper.GetInt64("import.padding")
			}
			if workers == 0 {
				workers = viper.GetInt("import.workers")
			}

			return runImport(driver, dsn, batchSize, padding, workers, noProgress, args)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "store driver: sqlite, duckdb, or pgx")
	cmd.Flags().StringVar(&dsn, "dsn", "", "store DSN (file path or connection string)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per transaction")
	cmd.Flags().Int64Var(&padding, "padding", 0, "placeholder gene window in bp")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent file imports")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

func runImport(driver, dsn string, batchSize int, padding int64, workers int, noProgress bool, paths []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if driver == "sqlite" && dsn != "" && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	s, err := store.Open(driver, dsn)
	if err != nil {
		return err
	}
	defer s.Close()

	sink, err := audit.NewSQLSink(s.DB())
	if err != nil {
		return err
	}

	opts := []ingest.Option{
		ingest.WithBatchSize(batchSize),
		ingest.WithPadding(padding),
		ingest.WithLogger(logger),
	}

	// A progress bar only makes sense for a single, non-interleaved import.
	var bar *pb.ProgressBar
	if len(paths) == 1 && !noProgress {
		opts = append(opts, ingest.WithProgress(func(processed, total int) {
			if bar == nil {
				bar = pb.Full.Start(total)
				bar.Set("prefix", "Importing variants: ")
				bar.Set(pb.CleanOnFinish, true)
			}
			bar.SetCurrent(int64(processed))
		}))
	}

	imp := ingest.New(s, opts...)
	results := imp.ImportFiles(context.Background(), paths, workers)

	if bar != nil {
		bar.Finish()
	}

	var failedFiles int
	for _, fr := range results {
		if err := reportFile(sink, fr); err != nil {
			failedFiles++
		}
	}

	if failedFiles > 0 {
		return fmt.Errorf("%d of %d files failed to import", failedFiles, len(paths))
	}
	return nil
}

// reportFile records the audit run and prints a per-file summary.
// Returns the import error, if any, after reporting.
func reportFile(sink audit.Sink, fr ingest.FileResult) error {
	name := filepath.Base(fr.Path)

	if fr.Result != nil {
		jobID := uuid.NewString()
		if err := sink.Record(context.Background(), jobID, fr.Path, fr.Result); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record audit run for %s: %v\n", name, err)
		} else {
			fmt.Printf("%s: job %s\n", name, jobID)
		}

		res := fr.Result
		fmt.Printf("  %s records, %s imported, %s failed, %s warnings\n",
			humanize.Comma(int64(res.Total)),
			humanize.Comma(int64(res.Successful)),
			humanize.Comma(int64(res.Failed)),
			humanize.Comma(int64(len(res.Warnings))))
		if res.SkippedLines > 0 {
			fmt.Printf("  %s malformed lines skipped\n", humanize.Comma(int64(res.SkippedLines)))
		}
	}

	if fr.Err != nil {
		fmt.Fprintf(os.Stderr, "%s: import failed: %v\n", name, fr.Err)
	}
	return fr.Err
}
