package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/genomehub/varimport/internal/audit"
	"github.com/genomehub/varimport/internal/store"
)

func newRunsCmd() *cobra.Command {
	var (
		driver string
		dsn    string
	)

	cmd := &cobra.Command{
		Use:   "runs [job-id]",
		Short: "List recorded import runs",
		Long: `List the audit log of past imports, or show the full detail of one run
by job id.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver == "" {
				driver = viper.GetString("store.driver")
			}
			if dsn == "" {
				dsn = viper.GetString("store.dsn")
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

			if len(args) == 1 {
				return showRun(sink, args[0])
			}
			return listRuns(sink)
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "store driver: sqlite, duckdb, or pgx")
	cmd.Flags().StringVar(&dsn, "dsn", "", "store DSN (file path or connection string)")

	return cmd
}

func listRuns(sink *audit.SQLSink) error {
	entries, err := sink.Runs(context.Background())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No import runs recorded.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s  total=%d successful=%d failed=%d  %s\n",
			e.JobID, e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Total, e.Successful, e.Failed, e.Source)
	}
	return nil
}

func showRun(sink *audit.SQLSink, jobID string) error {
	e, err := sink.Run(context.Background(), jobID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("no import run with job id %q", jobID)
	}

	res, err := e.Result()
	if err != nil {
		return err
	}

	fmt.Printf("Job:        %s\n", e.JobID)
	fmt.Printf("Source:     %s\n", e.Source)
	fmt.Printf("Imported:   %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Total:      %d\n", res.Total)
	fmt.Printf("Successful: %d\n", res.Successful)
	fmt.Printf("Failed:     %d\n", res.Failed)

	if len(res.Errors) > 0 {
		fmt.Println("Errors:")
		for _, issue := range res.Errors {
			fmt.Printf("  %s: %s\n", issue.RecordID, issue.Message)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Println("Warnings:")
		for _, issue := range res.Warnings {
			fmt.Printf("  %s: %s\n", issue.RecordID, issue.Message)
		}
	}

	return nil
}
