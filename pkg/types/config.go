package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout. Every external call is
	// bounded by it so one unresponsive source cannot stall a job.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "clara/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Provider identifies the extraction service vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// AIConfig holds settings for the structured-extraction backend. The
// provider is selected once at job construction, not re-checked per call.
type AIConfig struct {
	// Provider selects the backend: openai or anthropic.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "gpt-4o", "claude-3-haiku-20240307").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the extraction API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// AnalysisConfig holds settings for the analysis stage.
type AnalysisConfig struct {
	AIConfig   `yaml:",inline"`
	HTTPConfig `yaml:",inline"`

	// UseFullText controls whether full-text enrichment is attempted for
	// bibliographic sources after the abstract-based analysis.
	UseFullText bool `json:"use_full_text" yaml:"use_full_text"`
}

// PubMedConfig holds settings for the NCBI E-utilities client.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is sent with every E-utilities request, as NCBI requires.
	Email string `json:"email" yaml:"email"`

	// APIKey raises the NCBI rate allowance from 3 to 10 requests/second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults caps a search (default 20, hard cap 400).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// StoreConfig holds settings for result persistence.
type StoreConfig struct {
	// DataDir is the base directory for the results database and YAML
	// result sets (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// Config groups all stage configurations.
type Config struct {
	PubMed   PubMedConfig   `json:"pubmed" yaml:"pubmed"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Store    StoreConfig    `json:"store" yaml:"store"`
}
