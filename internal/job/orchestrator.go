// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package job

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/CarbonMon/CLARA/internal/analyze"
	"github.com/CarbonMon/CLARA/internal/document"
	"github.com/CarbonMon/CLARA/internal/resolve"
	"github.com/CarbonMon/CLARA/pkg/types"
)

// Backend is the slice of the AI backend the orchestrator needs.
// Satisfied by analyze.Backend; tests supply a mock.
type Backend interface {
	Analyze(ctx context.Context, content string, fullDocument bool) (string, error)
}

// ContentResolver locates full text for a citation. Satisfied by
// *resolve.Resolver.
type ContentResolver interface {
	FullText(ctx context.Context, c types.Citation) (string, types.Provenance, bool)
}

// Extractor turns a local file into text. Satisfied by *document.Extractor.
type Extractor interface {
	Extract(ctx context.Context, file types.LocalFile, useOCR bool, lang string) (string, error)
}

// Options control how a batch is processed.
type Options struct {
	// UseFullText enables the full-text enrichment pass after the
	// abstract analysis of each citation.
	UseFullText bool
	// UseOCR forces OCR for PDF files. Images are always OCRed.
	UseOCR bool
	// Language is the OCR language name, one of document.OCRLanguages.
	Language string
}

// Orchestrator processes source documents sequentially and collects one
// record per source. Per-item failures are contained as error records;
// only fatal backend errors and context cancellation abort a run.
type Orchestrator struct {
	backend   Backend
	resolver  ContentResolver
	extractor Extractor
	progress  *ProgressTracker
	w         io.Writer
}

// NewOrchestrator wires an orchestrator over the given backend, resolver,
// and extractor. Status lines go to w.
func NewOrchestrator(backend Backend, resolver ContentResolver, extractor Extractor, w io.Writer) *Orchestrator {
	return &Orchestrator{
		backend:   backend,
		resolver:  resolver,
		extractor: extractor,
		progress:  NewProgressTracker(),
		w:         w,
	}
}

// Progress returns the tracker for this orchestrator, for pollers.
func (o *Orchestrator) Progress() *ProgressTracker {
	return o.progress
}

// Run processes sources in order and returns one record per source, same
// length, same order. A fatal backend error (bad credentials, exhausted
// billing) aborts the run and Run returns the records produced so far
// along with the error; any other per-item failure becomes an error
// record in the result list and processing continues.
func (o *Orchestrator) Run(ctx context.Context, sources []types.SourceDocument, opts Options) ([]*types.Record, error) {
	o.progress.Start(len(sources))

	results := make([]*types.Record, 0, len(sources))
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			o.progress.Fail(err.Error())
			return results, err
		}

		o.progress.SetLabel(fmt.Sprintf("Processing %d/%d: %s", i+1, len(sources), src.SourceLabel()))

		rec, err := o.processOne(ctx, src, opts)
		if err != nil {
			o.progress.Fail(err.Error())
			fmt.Fprintf(o.w, "aborted %s: %v\n", src.SourceLabel(), err)
			return results, err
		}
		results = append(results, rec)

		if rec.Error != "" {
			fmt.Fprintf(o.w, "failed  %s: %s\n", src.SourceLabel(), rec.Error)
		} else {
			fmt.Fprintf(o.w, "analyzed %s (%s)\n", src.SourceLabel(), rec.AnalysisSource)
		}
		o.progress.Advance(i + 1)
	}

	o.progress.Finish()
	return results, nil
}

// processOne dispatches on the source type. The returned error is non-nil
// only for fatal conditions that must abort the whole run.
func (o *Orchestrator) processOne(ctx context.Context, src types.SourceDocument, opts Options) (*types.Record, error) {
	switch s := src.(type) {
	case types.Citation:
		return o.processCitation(ctx, s, opts)
	case types.LocalFile:
		return o.processFile(ctx, s, opts)
	default:
		return &types.Record{
			Title: fmt.Sprintf("Error processing %s", src.SourceLabel()),
			Error: fmt.Sprintf("unsupported source type %T", src),
		}, nil
	}
}

// processCitation always analyzes the abstract first, then, when full
// text is requested and reachable, re-analyzes the full document and
// promotes that result on success. A failed enrichment keeps the
// abstract-based record.
func (o *Orchestrator) processCitation(ctx context.Context, c types.Citation, opts Options) (*types.Record, error) {
	rec, err := o.analyzeContent(ctx, resolve.AbstractText(c), false)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		return citationErrorRecord(c, err), nil
	}
	finishCitationRecord(rec, c, types.ProvenanceAbstract)

	if opts.UseFullText {
		full, err := o.tryFullText(ctx, c)
		if err != nil {
			return nil, err
		}
		if full != nil {
			return full, nil
		}
	}
	return rec, nil
}

// tryFullText attempts the full-text enrichment pass. It returns
// (nil, nil) when no full text was reachable or its analysis failed
// non-fatally, so the caller keeps the abstract record.
func (o *Orchestrator) tryFullText(ctx context.Context, c types.Citation) (*types.Record, error) {
	text, prov, ok := o.resolver.FullText(ctx, c)
	if !ok {
		return nil, nil
	}

	rec, err := o.analyzeContent(ctx, text, true)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		fmt.Fprintf(o.w, "full text analysis failed for %s, keeping abstract result: %v\n", c.SourceLabel(), err)
		return nil, nil
	}
	if rec.Error != "" {
		// The model answered but the response did not parse. The
		// abstract record is strictly better than an error record.
		return nil, nil
	}
	finishCitationRecord(rec, c, prov)
	return rec, nil
}

func (o *Orchestrator) processFile(ctx context.Context, f types.LocalFile, opts Options) (*types.Record, error) {
	lang := document.OCRLanguages[opts.Language]
	if lang == "" {
		lang = "eng"
	}

	text, err := o.extractor.Extract(ctx, f, opts.UseOCR, lang)
	if err != nil {
		return fileErrorRecord(f, err), nil
	}

	rec, err := o.analyzeContent(ctx, text, true)
	if err != nil {
		if isFatal(err) {
			return nil, err
		}
		return fileErrorRecord(f, err), nil
	}
	rec.AnalysisSource = string(types.ProvenanceLocalFile)
	rec.Filename = f.Name
	return rec, nil
}

// analyzeContent runs one backend call under the retry policy and parses
// the response. An unparseable response comes back as an error record,
// not an error; the error return is reserved for exhausted retries and
// fatal conditions.
func (o *Orchestrator) analyzeContent(ctx context.Context, content string, fullDocument bool) (*types.Record, error) {
	raw, err := analyze.CallWithRetry(ctx, func(ctx context.Context) (string, error) {
		return o.backend.Analyze(ctx, content, fullDocument)
	})
	if err != nil {
		return nil, err
	}
	return analyze.ExtractRecord(raw), nil
}

// finishCitationRecord stamps citation identity onto a parsed record.
// PMID and link come from the citation, not the model, so they survive
// model omissions and hallucinations.
func finishCitationRecord(rec *types.Record, c types.Citation, prov types.Provenance) {
	rec.PMID = c.PMID
	if rec.Title == "" {
		rec.Title = c.Title
	}
	if c.FullTextLink != "" {
		rec.FullTextLink = c.FullTextLink
	}
	rec.AnalysisSource = string(prov)
}

func citationErrorRecord(c types.Citation, err error) *types.Record {
	return &types.Record{
		Title:          "Error analyzing paper",
		PMID:           c.PMID,
		Error:          err.Error(),
		AnalysisSource: string(types.ProvenanceFailed),
	}
}

func fileErrorRecord(f types.LocalFile, err error) *types.Record {
	return &types.Record{
		Title:    fmt.Sprintf("Error processing %s", f.Name),
		Filename: f.Name,
		Error:    err.Error(),
	}
}

func isFatal(err error) bool {
	var fe *analyze.FatalError
	return errors.As(err, &fe)
}
