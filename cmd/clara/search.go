package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CarbonMon/CLARA/internal/pubmed"
)

// clinicalTrialFilter narrows a PubMed query to clinical trial records.
const clinicalTrialFilter = " AND (clinicaltrial[filter])"

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search PubMed for clinical research papers",
	Long: `Search queries PubMed via the NCBI E-utilities for papers matching a
query. By default the query is restricted to clinical trials; pass
--all-types to search the whole of PubMed.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 20, "maximum number of results (capped at 400)")
	searchCmd.Flags().Bool("all-types", false, "do not restrict to clinical trials")
	searchCmd.Flags().Bool("count-only", false, "print only the total match count")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("email", "", "contact email sent with NCBI requests")

	rootCmd.AddCommand(searchCmd)
}

// buildQuery joins the args and applies the clinical trial filter unless
// disabled.
func buildQuery(cmd *cobra.Command, args []string) (string, error) {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return "", fmt.Errorf("provide a search query")
	}
	if allTypes, _ := cmd.Flags().GetBool("all-types"); !allTypes {
		query += clinicalTrialFilter
	}
	return query, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query, err := buildQuery(cmd, args)
	if err != nil {
		return err
	}

	cfg := pubmedConfig(cmd)
	cfg.MaxResults, _ = cmd.Flags().GetInt("max-results")
	client := pubmed.NewClient(cfg)

	ctx := context.Background()

	if countOnly, _ := cmd.Flags().GetBool("count-only"); countOnly {
		count, err := client.Count(ctx, query)
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	}

	citations, err := client.SearchAndFetch(ctx, query, cfg.MaxResults)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(citations)
	}

	if len(citations) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-10s  %-60s  %-30s  %s\n", "PMID", "Title", "Journal", "Date")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 115))
	for _, c := range citations {
		title := c.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		journal := c.Journal
		if len(journal) > 30 {
			journal = journal[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-10s  %-60s  %-30s  %s\n", c.PMID, title, journal, c.PubDate)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(citations))
	return nil
}
