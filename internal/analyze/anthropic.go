// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/CarbonMon/CLARA/pkg/types"
)

// Anthropic API endpoints. Package-level vars for test substitution.
var (
	anthropicAPIURL    = "https://api.anthropic.com/v1/messages"
	anthropicModelsURL = "https://api.anthropic.com/v1/models"
)

const anthropicVersion = "2023-06-01"

// AnthropicBackend calls the Anthropic Messages API.
type AnthropicBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (b *AnthropicBackend) Provider() types.Provider { return types.ProviderAnthropic }

// Analyze submits content with the extraction schema as the system prompt
// and returns the concatenated text blocks of the response.
func (b *AnthropicBackend) Analyze(ctx context.Context, content string, fullDocument bool) (string, error) {
	payload, _ := Truncate(content)

	reqBody := anthropicRequest{
		Model:     b.Model,
		System:    systemPrompt(types.ProviderAnthropic, fullDocument),
		MaxTokens: 4096,
		Messages: []anthropicMessage{
			{Role: "user", Content: payload},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := b.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Anthropic API returned %d: %s", resp.StatusCode, string(body))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return "", fmt.Errorf("decoding Anthropic response: %w", err)
	}

	var out string
	for _, block := range aResp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("Anthropic API returned empty content")
	}
	return out, nil
}

// Ping lists models to verify the API key without spending tokens.
func (b *AnthropicBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, anthropicModelsURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-api-key", b.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := b.client().Do(req)
	if err != nil {
		return fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Anthropic API returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (b *AnthropicBackend) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}
