// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze submits resolved document content to a structured-
// extraction service and turns the raw model output into schema records.
// It owns the retry policy for those calls and the tolerant response
// parser.
package analyze

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// DefaultTimeout bounds one extraction request. Model calls over large
// payloads are slow, so this is deliberately generous.
const DefaultTimeout = 120 * time.Second

// Backend abstracts the extraction service so tests can supply a mock and
// the orchestrator never branches on the provider. Each implementation
// sends the fixed instruction template plus its provider addendum and
// returns the raw response text; interpreting that text is the parser's
// job, and transport errors propagate to the retry policy unchanged.
type Backend interface {
	// Analyze submits content for structured extraction. fullDocument
	// selects the full-document prompt addendum.
	Analyze(ctx context.Context, content string, fullDocument bool) (string, error)

	// Ping verifies the configured credential with a minimal request.
	Ping(ctx context.Context) error

	// Provider reports which vendor this backend talks to.
	Provider() types.Provider
}

// NewBackend constructs the backend for cfg.Provider. The provider is
// chosen once here; callers hold only the Backend interface afterwards.
func NewBackend(cfg types.AnalysisConfig) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case types.ProviderOpenAI:
		return &OpenAIBackend{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}, nil
	case types.ProviderAnthropic:
		return &AnthropicBackend{APIKey: cfg.APIKey, Model: cfg.Model, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
