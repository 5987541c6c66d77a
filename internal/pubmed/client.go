// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed implements a client for the NCBI E-utilities API:
// searching PubMed, fetching citation records, and retrieving open-access
// full text from PubMed Central.
package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// eutilsBase is the E-utilities endpoint. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	// DefaultTimeout bounds every E-utilities request.
	DefaultTimeout = 30 * time.Second

	// NCBI allows 3 requests/second without an API key, 10 with one.
	rateWithoutKey = 3.0
	rateWithKey    = 10.0

	// MaxSearchResults is the hard cap on one search.
	MaxSearchResults = 400

	toolName = "clara"
)

// Client is a rate-limited HTTP client for the E-utilities API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	email      string
	apiKey     string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom E-utilities base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// NewClient creates an E-utilities client. The request rate is limited per
// NCBI policy, depending on whether an API key is configured.
func NewClient(cfg types.PubMedConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limit := rateWithoutKey
	if cfg.APIKey != "" {
		limit = rateWithKey
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		baseURL:    eutilsBase,
		email:      cfg.Email,
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs one rate-limited E-utilities request against endpoint
// (e.g. "esearch.fcgi") with the given query parameters. Identification
// parameters (tool, email, api_key) are added to every request.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("tool", toolName)
	if c.email != "" {
		params.Set("email", c.email)
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("E-utilities request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("E-utilities %s returned HTTP %d", endpoint, resp.StatusCode)
	}
	return resp, nil
}

// Count returns the total number of PubMed records matching query.
func (c *Client) Count(ctx context.Context, query string) (int, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {"0"},
		"retmode": {"xml"},
	}
	resp, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	result, err := decodeSearchResult(resp.Body)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Search runs a PubMed query and returns up to maxResults PMIDs in rank
// order. maxResults is clamped to MaxSearchResults.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if maxResults <= 0 || maxResults > MaxSearchResults {
		maxResults = MaxSearchResults
	}

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"xml"},
	}
	resp, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result, err := decodeSearchResult(resp.Body)
	if err != nil {
		return nil, err
	}
	return result.IDs, nil
}

// Fetch retrieves full citation records for the given PMIDs.
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]types.Citation, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}
	resp, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeCitations(resp.Body)
}

// SearchAndFetch combines Search and Fetch into one call.
func (c *Client) SearchAndFetch(ctx context.Context, query string, maxResults int) ([]types.Citation, error) {
	pmids, err := c.Search(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching PubMed: %w", err)
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	citations, err := c.Fetch(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("fetching citations: %w", err)
	}
	return citations, nil
}

// linkPMC resolves the PMC article ID linked to a PMID. It returns the
// empty string when the article has no PMC deposit.
func (c *Client) linkPMC(ctx context.Context, pmid string) (string, error) {
	params := url.Values{
		"dbfrom":  {"pubmed"},
		"db":      {"pmc"},
		"id":      {pmid},
		"retmode": {"xml"},
	}
	resp, err := c.get(ctx, "elink.fcgi", params)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return decodeFirstLink(resp.Body)
}

// FullTextPMC attempts to retrieve the full text of an article from
// PubMed Central. It returns ("", nil) when the article is not deposited
// in PMC or when the retrieved document's embedded PMID does not match
// the requested one; a mismatch is discarded rather than risk silently
// attributing another article's text.
func (c *Client) FullTextPMC(ctx context.Context, pmid string) (string, error) {
	pmcID, err := c.linkPMC(ctx, pmid)
	if err != nil {
		return "", fmt.Errorf("resolving PMC link for PMID %s: %w", pmid, err)
	}
	if pmcID == "" {
		return "", nil
	}

	params := url.Values{
		"db":      {"pmc"},
		"id":      {pmcID},
		"rettype": {"xml"},
	}
	resp, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return "", fmt.Errorf("fetching PMC %s: %w", pmcID, err)
	}
	defer resp.Body.Close()

	text, embeddedPMID, err := extractArticleText(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parsing PMC article %s: %w", pmcID, err)
	}

	// Cross-validate the embedded identifier. If the document carries no
	// PMID at all, skip it for safety.
	if strings.TrimSpace(embeddedPMID) != strings.TrimSpace(pmid) {
		return "", nil
	}
	return text, nil
}
