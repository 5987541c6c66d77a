package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CarbonMon/CLARA/internal/analyze"
	"github.com/CarbonMon/CLARA/internal/document"
	"github.com/CarbonMon/CLARA/internal/job"
	"github.com/CarbonMon/CLARA/pkg/types"
)

var filesCmd = &cobra.Command{
	Use:   "files [paths...]",
	Short: "Analyze local PDF or image files",
	Long: `Files runs each given PDF or image through the AI backend and extracts
a structured result record. PDFs use their embedded text layer unless
--ocr is set; images are always recognized with OCR.`,
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().Bool("ocr", false, "force OCR for PDF files")
	filesCmd.Flags().String("lang", "English", "OCR language: "+strings.Join(languageNames(), ", "))
	filesCmd.Flags().String("provider", "", "AI provider: openai or anthropic")
	filesCmd.Flags().String("model", "", "model identifier (provider default if empty)")
	filesCmd.Flags().String("api-key", "", "AI API key (overrides .secrets/)")
	filesCmd.Flags().String("out", "", "also write results to this .xlsx file")

	rootCmd.AddCommand(filesCmd)
}

func languageNames() []string {
	names := make([]string, 0, len(document.OCRLanguages))
	for name := range document.OCRLanguages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runFiles(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more PDF or image files")
	}

	lang, _ := cmd.Flags().GetString("lang")
	if _, ok := document.OCRLanguages[lang]; !ok {
		return fmt.Errorf("unsupported language %q: use one of %s", lang, strings.Join(languageNames(), ", "))
	}

	sources := make([]types.SourceDocument, 0, len(args))
	for _, path := range args {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		sources = append(sources, types.LocalFile{
			Path: path,
			Name: filepath.Base(path),
		})
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
	if err := backend.Ping(ctx); err != nil {
		return fmt.Errorf("AI backend unreachable: %w", err)
	}

	useOCR, _ := cmd.Flags().GetBool("ocr")
	orch := job.NewOrchestrator(backend, nil, document.NewExtractor(), os.Stdout)

	records, runErr := runWithProgress(ctx, orch, sources, job.Options{
		UseOCR:   useOCR,
		Language: lang,
	})

	if len(records) > 0 {
		if err := saveResults(ctx, cmd, "", "files", records); err != nil {
			return err
		}
	}
	return runErr
}
