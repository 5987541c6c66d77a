// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// unpaywallAPIBase is the Unpaywall works endpoint. Declared as a var so
// tests can substitute an httptest server.
var unpaywallAPIBase = "https://api.unpaywall.org/v2/"

const unpaywallTimeout = 30 * time.Second

// unpaywallResponse captures the fields we need from an Unpaywall record.
type unpaywallResponse struct {
	IsOA           bool               `json:"is_oa"`
	BestOALocation *unpaywallLocation `json:"best_oa_location"`
}

// unpaywallLocation is an open-access location in the Unpaywall response.
type unpaywallLocation struct {
	PDFURL     string `json:"url_for_pdf"`
	LandingURL string `json:"url"`
}

type unpaywallClient struct {
	httpClient *http.Client
	email      string
	userAgent  string
}

func newUnpaywallClient(cfg types.PubMedConfig) *unpaywallClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = unpaywallTimeout
	}
	return &unpaywallClient{
		httpClient: &http.Client{Timeout: timeout},
		email:      cfg.Email,
		userAgent:  cfg.UserAgent,
	}
}

// fetchPDF queries Unpaywall for doi and, when the record is open access
// with a retrievable PDF URL, downloads the PDF to a temporary file. It
// returns ("", noop, nil) when the work is closed or has no PDF location;
// both conditions are expected, not errors.
func (u *unpaywallClient) fetchPDF(ctx context.Context, doi string) (path string, cleanup func(), err error) {
	noop := func() {}

	apiURL := unpaywallAPIBase + doi + "?email=" + u.email
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", noop, fmt.Errorf("creating Unpaywall request: %w", err)
	}
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("Unpaywall API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", noop, fmt.Errorf("Unpaywall API returned HTTP %d", resp.StatusCode)
	}

	var uw unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&uw); err != nil {
		return "", noop, fmt.Errorf("parsing Unpaywall response: %w", err)
	}

	// Only usable when the open-access flag and a PDF URL are both present.
	if !uw.IsOA || uw.BestOALocation == nil || uw.BestOALocation.PDFURL == "" {
		return "", noop, nil
	}

	return u.downloadPDF(ctx, uw.BestOALocation.PDFURL)
}

func (u *unpaywallClient) downloadPDF(ctx context.Context, pdfURL string) (string, func(), error) {
	noop := func() {}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", noop, fmt.Errorf("creating PDF request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("downloading open-access PDF: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", noop, fmt.Errorf("open-access PDF returned HTTP %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "clara-oa-*.pdf")
	if err != nil {
		return "", noop, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	cleanup := func() { os.Remove(tmpPath) }

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		cleanup()
		return "", noop, fmt.Errorf("writing PDF download: %w", copyErr)
	}
	if closeErr != nil {
		cleanup()
		return "", noop, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return tmpPath, cleanup, nil
}
