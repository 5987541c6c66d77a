// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarbonMon/CLARA/internal/analyze"
	"github.com/CarbonMon/CLARA/pkg/types"
)

// stubPMC returns canned full text per PMID.
type stubPMC struct {
	texts map[string]string
	err   error
	calls []string
}

func (s *stubPMC) FullTextPMC(_ context.Context, pmid string) (string, error) {
	s.calls = append(s.calls, pmid)
	if s.err != nil {
		return "", s.err
	}
	return s.texts[pmid], nil
}

func newTestResolver(pmc PMCSource) *Resolver {
	return NewResolver(pmc, types.PubMedConfig{Email: "test@example.com"}, io.Discard)
}

func TestDOIFromLink(t *testing.T) {
	tests := []struct {
		name string
		link string
		want string
	}{
		{name: "standard resolver link", link: "https://doi.org/10.1056/NEJMoa2034577", want: "10.1056/NEJMoa2034577"},
		{name: "dx resolver link", link: "http://dx.doi.org/10.1001/jama.2020.1585", want: "10.1001/jama.2020.1585"},
		{name: "no doi host", link: "https://pubmed.ncbi.nlm.nih.gov/33301246/", want: "unavailable"},
		{name: "empty link", link: "", want: "unavailable"},
		{name: "bare host", link: "doi.org", want: "unavailable"},
		{name: "host with scheme only", link: "https://doi.org", want: "unavailable"},
		{name: "trailing slash defeats heuristic", link: "https://doi.org/10.1056/NEJMoa2034577/", want: "NEJMoa2034577/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DOIFromLink(tt.link))
		})
	}
}

func TestAbstractText(t *testing.T) {
	c := types.Citation{
		PMID:         "12345",
		Title:        "A study of things",
		Abstract:     "We studied things.",
		Journal:      "Journal of Things",
		PubDate:      "2024-01-15",
		Authors:      []string{"Smith J", "Jones K"},
		FullTextLink: "https://doi.org/10.1000/thing",
	}

	text := AbstractText(c)
	assert.Contains(t, text, "Title: A study of things")
	assert.Contains(t, text, "PMID: 12345")
	assert.Contains(t, text, "Journal: Journal of Things")
	assert.Contains(t, text, "Publication Date: 2024-01-15")
	assert.Contains(t, text, "Authors: Smith J; Jones K")
	assert.Contains(t, text, "Full Text Link: https://doi.org/10.1000/thing")
	assert.Contains(t, text, "Abstract:\nWe studied things.")
}

func TestAbstractTextOmitsEmptySections(t *testing.T) {
	text := AbstractText(types.Citation{PMID: "1", Title: "T", Abstract: "A"})
	assert.NotContains(t, text, "Journal:")
	assert.NotContains(t, text, "Authors:")
	assert.NotContains(t, text, "Full Text Link:")
}

func TestResolvePrefersPMC(t *testing.T) {
	pmc := &stubPMC{texts: map[string]string{"111": "full body text from PMC"}}
	r := newTestResolver(pmc)

	got := r.Resolve(context.Background(), types.Citation{PMID: "111", Title: "T", Abstract: "A"})
	assert.Equal(t, "full body text from PMC", got.Text)
	assert.Equal(t, types.ProvenancePMC, got.Provenance)
	assert.False(t, got.Truncated)
}

func TestResolveFallsBackToAbstract(t *testing.T) {
	pmc := &stubPMC{err: errors.New("elink failed")}
	r := newTestResolver(pmc)

	// No DOI link either, so the chain ends at the abstract.
	c := types.Citation{PMID: "222", Title: "T", Abstract: "the abstract"}
	got := r.Resolve(context.Background(), c)
	assert.Equal(t, types.ProvenanceAbstract, got.Provenance)
	assert.Contains(t, got.Text, "the abstract")
}

func TestFullTextSkipsPMCForMissingPMID(t *testing.T) {
	pmc := &stubPMC{}
	r := newTestResolver(pmc)

	for _, pmid := range []string{"", "NA", "  "} {
		_, _, ok := r.FullText(context.Background(), types.Citation{PMID: pmid})
		assert.False(t, ok)
	}
	assert.Empty(t, pmc.calls, "PMC must not be queried without a usable PMID")
}

func TestFullTextOpenAccessTier(t *testing.T) {
	pdfServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("%PDF-1.4 fake body"))
	}))
	defer pdfServer.Close()

	var gotPath string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		fmt.Fprintf(w, `{"is_oa": true, "best_oa_location": {"url_for_pdf": %q}}`, pdfServer.URL)
	}))
	defer api.Close()

	orig := unpaywallAPIBase
	unpaywallAPIBase = api.URL + "/"
	t.Cleanup(func() { unpaywallAPIBase = orig })

	r := newTestResolver(&stubPMC{})
	r.pdfText = func(path string) (string, error) {
		return "text extracted from the OA PDF", nil
	}

	c := types.Citation{PMID: "NA", FullTextLink: "https://doi.org/10.1000/oa.1"}
	text, prov, ok := r.FullText(context.Background(), c)
	require.True(t, ok)
	assert.Equal(t, "text extracted from the OA PDF", text)
	assert.Equal(t, types.ProvenanceDOI, prov)
	assert.Contains(t, gotPath, "10.1000/oa.1")
	assert.Contains(t, gotPath, "email=test@example.com")
}

func TestFullTextClosedAccessMissesQuietly(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"is_oa": false, "best_oa_location": null}`))
	}))
	defer api.Close()

	orig := unpaywallAPIBase
	unpaywallAPIBase = api.URL + "/"
	t.Cleanup(func() { unpaywallAPIBase = orig })

	r := newTestResolver(&stubPMC{})
	_, _, ok := r.FullText(context.Background(), types.Citation{
		PMID:         "NA",
		FullTextLink: "https://doi.org/10.1000/closed",
	})
	assert.False(t, ok)
}

func TestFullTextFallsBackToCitationDOI(t *testing.T) {
	var gotPath string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"is_oa": false}`))
	}))
	defer api.Close()

	orig := unpaywallAPIBase
	unpaywallAPIBase = api.URL + "/"
	t.Cleanup(func() { unpaywallAPIBase = orig })

	r := newTestResolver(&stubPMC{})
	// The link has no doi.org marker, so the citation's own DOI is used.
	r.FullText(context.Background(), types.Citation{
		PMID:         "NA",
		DOI:          "10.1000/fromfield",
		FullTextLink: "https://journals.example.com/article/9",
	})
	assert.Contains(t, gotPath, "10.1000/fromfield")
}

func TestResolveMarksTruncated(t *testing.T) {
	long := strings.Repeat("a", analyze.MaxContentChars+1)
	pmc := &stubPMC{texts: map[string]string{"333": long}}
	r := newTestResolver(pmc)

	got := r.Resolve(context.Background(), types.Citation{PMID: "333"})
	assert.True(t, got.Truncated)
}
