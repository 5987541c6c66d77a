// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CarbonMon/CLARA/internal/export"
	"github.com/CarbonMon/CLARA/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List past analysis jobs",
	Long: `Jobs lists all saved analysis runs, newest first, with their query
and result count. Use 'clara export --job <id>' to export one.`,
	RunE: runJobs,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a saved job's results to an XLSX workbook",
	Long: `Export renders the result records of a saved job as an XLSX workbook.
Without --job, the most recent job is exported.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("job", "", "job ID to export (default: most recent)")
	exportCmd.Flags().String("out", "", "output path (default: <job-id>.xlsx)")

	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(exportCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	jobs, err := st.ListJobs(context.Background())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No saved jobs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-22s  %-19s  %-8s  %s\n", "ID", "Created", "Results", "Query")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, j := range jobs {
		created := ""
		if !j.CreatedAt.IsZero() {
			created = j.CreatedAt.Local().Format("2006-01-02 15:04:05")
		}
		query := j.Query
		if query == "" {
			query = "(" + j.Source + ")"
		}
		fmt.Fprintf(os.Stdout, "%-22s  %-19s  %-8d  %s\n", j.ID, created, j.ResultCount, query)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	st, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	jobID, _ := cmd.Flags().GetString("job")
	if jobID == "" {
		jobID, err = st.LatestJobID(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no saved jobs to export")
		}
		if err != nil {
			return err
		}
	}

	records, err := st.JobResults(ctx, jobID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("job %s has no results", jobID)
	}

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" {
		outPath = jobID + ".xlsx"
	}
	if !strings.HasSuffix(outPath, ".xlsx") {
		outPath += ".xlsx"
	}

	data, err := export.ResultsXLSX(records, time.Now())
	if err != nil {
		return fmt.Errorf("rendering workbook: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	fmt.Printf("Exported %d results to %s\n", len(records), outPath)
	return nil
}
