// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CarbonMon/CLARA/internal/analyze"
	"github.com/CarbonMon/CLARA/internal/document"
	"github.com/CarbonMon/CLARA/internal/export"
	"github.com/CarbonMon/CLARA/internal/job"
	"github.com/CarbonMon/CLARA/internal/pubmed"
	"github.com/CarbonMon/CLARA/internal/resolve"
	"github.com/CarbonMon/CLARA/internal/store"
	"github.com/CarbonMon/CLARA/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Search PubMed and extract a structured record per paper",
	Long: `Analyze searches PubMed for papers matching a query, then runs each
through the AI backend to extract a structured result record. With
--full-text, open-access full text (PubMed Central, then Unpaywall) is
used to enrich each abstract-based result where reachable.

Results are saved to the job database and can be exported with
'clara export'.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int("max-results", 20, "maximum number of papers to analyze (capped at 400)")
	analyzeCmd.Flags().Bool("all-types", false, "do not restrict to clinical trials")
	analyzeCmd.Flags().Bool("full-text", false, "attempt full-text enrichment per paper")
	analyzeCmd.Flags().String("provider", "", "AI provider: openai or anthropic")
	analyzeCmd.Flags().String("model", "", "model identifier (provider default if empty)")
	analyzeCmd.Flags().String("api-key", "", "AI API key (overrides .secrets/)")
	analyzeCmd.Flags().String("email", "", "contact email sent with NCBI requests")
	analyzeCmd.Flags().String("out", "", "also write results to this .xlsx file")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(cmd, args)
	if err != nil {
		return err
	}

	aCfg, err := analysisConfig(cmd)
	if err != nil {
		return err
	}
	backend, err := analyze.NewBackend(aCfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Validate credentials up front so a bad key fails in seconds, not
	// after the PubMed fetch.
	if err := backend.Ping(ctx); err != nil {
		return fmt.Errorf("AI backend unreachable: %w", err)
	}

	pCfg := pubmedConfig(cmd)
	pCfg.MaxResults, _ = cmd.Flags().GetInt("max-results")
	client := pubmed.NewClient(pCfg)

	citations, err := client.SearchAndFetch(ctx, query, pCfg.MaxResults)
	if err != nil {
		return err
	}
	if len(citations) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Fprintf(os.Stderr, "Analyzing %d papers\n", len(citations))

	sources := make([]types.SourceDocument, len(citations))
	for i, c := range citations {
		sources[i] = c
	}

	resolver := resolve.NewResolver(client, pCfg, os.Stderr)
	orch := job.NewOrchestrator(backend, resolver, document.NewExtractor(), os.Stdout)

	records, runErr := runWithProgress(ctx, orch, sources, job.Options{
		UseFullText: aCfg.UseFullText,
	})

	if len(records) > 0 {
		if err := saveResults(ctx, cmd, query, "pubmed", records); err != nil {
			return err
		}
	}
	return runErr
}

// runWithProgress runs the orchestrator while a poller prints progress
// lines to stderr.
func runWithProgress(ctx context.Context, orch *job.Orchestrator, sources []types.SourceDocument, opts job.Options) ([]*types.Record, error) {
	done := make(chan struct{})
	go pollProgress(orch.Progress(), done)

	records, err := orch.Run(ctx, sources, opts)
	close(done)
	return records, err
}

func pollProgress(tracker *job.ProgressTracker, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s := tracker.Snapshot()
			if s.Status != job.StatusRunning {
				continue
			}
			line := fmt.Sprintf("progress: %d/%d", s.Completed, s.Total)
			if s.ETASeconds != nil {
				line += fmt.Sprintf(" (about %s remaining)", (time.Duration(*s.ETASeconds) * time.Second).Round(time.Second))
			}
			fmt.Fprintln(os.Stderr, line)
		}
	}
}

// saveResults writes records to the job database, a YAML result file,
// and optionally an XLSX workbook.
func saveResults(ctx context.Context, cmd *cobra.Command, query, source string, records []*types.Record) error {
	st, err := store.NewStore(storeConfig())
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now()
	j := store.Job{
		ID:        store.NewJobID(now),
		Query:     query,
		Source:    source,
		CreatedAt: now,
	}
	if err := st.SaveJob(ctx, j, records); err != nil {
		return fmt.Errorf("saving job: %w", err)
	}

	yamlPath := filepath.Join(storeConfig().DataDir, j.ID+".yaml")
	if err := store.WriteResultsYAML(yamlPath, j, records); err != nil {
		return fmt.Errorf("writing result file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Saved %d results as %s\n", len(records), j.ID)

	outPath, _ := cmd.Flags().GetString("out")
	if outPath != "" {
		if !strings.HasSuffix(outPath, ".xlsx") {
			outPath += ".xlsx"
		}
		data, err := export.ResultsXLSX(records, now)
		if err != nil {
			return fmt.Errorf("rendering workbook: %w", err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
	}
	return nil
}
