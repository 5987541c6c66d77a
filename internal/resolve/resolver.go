// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve picks the best available content for a citation through
// an ordered fallback chain: PubMed Central full text, then an open-access
// copy located via the DOI, then the abstract already in hand. External
// sources being unreachable is normal here; failures downgrade to the next
// tier and are never propagated.
package resolve

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/CarbonMon/CLARA/internal/analyze"
	"github.com/CarbonMon/CLARA/internal/document"
	"github.com/CarbonMon/CLARA/pkg/types"
)

// doiUnavailable is returned by DOIFromLink when no identifier can be
// derived; callers skip the open-access tier on it.
const doiUnavailable = "unavailable"

// PMCSource retrieves full text by stable identifier. *pubmed.Client
// implements it.
type PMCSource interface {
	FullTextPMC(ctx context.Context, pmid string) (string, error)
}

// Resolver walks the fallback chain for one citation.
type Resolver struct {
	pmc       PMCSource
	unpaywall *unpaywallClient

	// pdfText converts a downloaded open-access PDF to text. Var-style
	// indirection so tests can stub the PDF dependency.
	pdfText func(path string) (string, error)

	w io.Writer
}

// NewResolver creates a Resolver. Tier-miss diagnostics are written to w.
func NewResolver(pmc PMCSource, cfg types.PubMedConfig, w io.Writer) *Resolver {
	if w == nil {
		w = io.Discard
	}
	return &Resolver{
		pmc:       pmc,
		unpaywall: newUnpaywallClient(cfg),
		pdfText: func(path string) (string, error) {
			text, _, err := document.PDFText(path)
			return text, err
		},
		w: w,
	}
}

// Resolve returns the content to analyze for c. It never fails: when no
// full-text tier produces text, the citation's abstract is used, so every
// citation yields exactly one piece of analyzable text.
func (r *Resolver) Resolve(ctx context.Context, c types.Citation) types.ResolvedContent {
	if text, prov, ok := r.FullText(ctx, c); ok {
		return resolved(text, prov)
	}
	return resolved(AbstractText(c), types.ProvenanceAbstract)
}

// FullText attempts the full-text tiers only: PMC by PMID, then an
// open-access PDF by DOI. ok is false when neither tier produced text.
func (r *Resolver) FullText(ctx context.Context, c types.Citation) (text string, prov types.Provenance, ok bool) {
	if pmid := strings.TrimSpace(c.PMID); pmid != "" && pmid != "NA" {
		text, err := r.pmc.FullTextPMC(ctx, pmid)
		if err != nil {
			fmt.Fprintf(r.w, "  full text: PMC unavailable for PMID %s (%v)\n", pmid, err)
		} else if text != "" {
			return text, types.ProvenancePMC, true
		}
	}

	doi := DOIFromLink(c.FullTextLink)
	if doi == doiUnavailable && c.DOI != "" {
		doi = c.DOI
	}
	if doi != doiUnavailable {
		text, err := r.openAccessText(ctx, doi)
		if err != nil {
			fmt.Fprintf(r.w, "  full text: open access unavailable for DOI %s (%v)\n", doi, err)
		} else if text != "" {
			return text, types.ProvenanceDOI, true
		}
	}

	return "", "", false
}

// openAccessText locates an open-access PDF for doi, downloads it to a
// temporary file, and extracts its text.
func (r *Resolver) openAccessText(ctx context.Context, doi string) (string, error) {
	pdfPath, cleanup, err := r.unpaywall.fetchPDF(ctx, doi)
	if err != nil {
		return "", err
	}
	if pdfPath == "" {
		return "", nil
	}
	defer cleanup()

	text, err := r.pdfText(pdfPath)
	if err != nil {
		return "", fmt.Errorf("extracting open-access PDF text: %w", err)
	}
	return text, nil
}

// DOIFromLink derives a DOI from a full-text link by taking the last two
// path segments when the link points at the doi.org resolver. Atypically
// formatted links can defeat this heuristic; a link without the host
// marker or with too few segments yields "unavailable" and the open-access
// tier is skipped.
func DOIFromLink(link string) string {
	if !strings.Contains(link, "doi.org") {
		return doiUnavailable
	}
	parts := strings.Split(link, "/")
	if len(parts) < 2 {
		return doiUnavailable
	}
	doi := strings.Join(parts[len(parts)-2:], "/")
	if trimmed := strings.TrimPrefix(doi, "/"); trimmed == "" || strings.HasPrefix(trimmed, "doi.org") {
		return doiUnavailable
	}
	return doi
}

// AbstractText formats the citation's own metadata as analyzable content.
func AbstractText(c types.Citation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", c.Title)
	fmt.Fprintf(&b, "PMID: %s\n", c.PMID)
	if c.Journal != "" {
		fmt.Fprintf(&b, "Journal: %s\n", c.Journal)
	}
	if c.PubDate != "" {
		fmt.Fprintf(&b, "Publication Date: %s\n", c.PubDate)
	}
	if len(c.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(c.Authors, "; "))
	}
	if c.FullTextLink != "" {
		fmt.Fprintf(&b, "Full Text Link: %s\n", c.FullTextLink)
	}
	fmt.Fprintf(&b, "\nAbstract:\n%s\n", c.Abstract)
	return b.String()
}

func resolved(text string, prov types.Provenance) types.ResolvedContent {
	return types.ResolvedContent{
		Text:       text,
		Provenance: prov,
		Truncated:  len(text) > analyze.MaxContentChars,
	}
}
