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

// OpenAI API endpoints. Package-level vars for test substitution.
var (
	openaiAPIURL    = "https://api.openai.com/v1/chat/completions"
	openaiModelsURL = "https://api.openai.com/v1/models"
)

// OpenAIBackend calls the OpenAI Chat Completions API.
type OpenAIBackend struct {
	APIKey string
	Model  string
	Client *http.Client
}

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []openaiMessage `json:"messages"`
	ResponseFormat *openaiRespFmt  `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRespFmt struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

func (b *OpenAIBackend) Provider() types.Provider { return types.ProviderOpenAI }

// Analyze submits content as a system+user conversation, requesting JSON
// output mode, and returns the first choice's message content.
func (b *OpenAIBackend) Analyze(ctx context.Context, content string, fullDocument bool) (string, error) {
	payload, _ := Truncate(content)

	reqBody := openaiRequest{
		Model: b.Model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemPrompt(types.ProviderOpenAI, fullDocument)},
			{Role: "user", Content: payload},
		},
		ResponseFormat: &openaiRespFmt{Type: "json_object"},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openaiAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	resp, err := b.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}

	if len(oResp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}
	return oResp.Choices[0].Message.Content, nil
}

// Ping lists models to verify the API key without spending tokens.
func (b *OpenAIBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openaiModelsURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	resp, err := b.client().Do(req)
	if err != nil {
		return fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (b *OpenAIBackend) client() *http.Client {
	if b.Client != nil {
		return b.Client
	}
	return http.DefaultClient
}
