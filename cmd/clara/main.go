// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the clara CLI. clara searches
// PubMed for clinical research papers, analyzes them with a generative
// AI backend, and manages the resulting extraction records.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CarbonMon/CLARA/internal/secrets"
	"github.com/CarbonMon/CLARA/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the clara CLI.
var rootCmd = &cobra.Command{
	Use:   "clara",
	Short: "Clinical literature analysis and research assistant",
	Long: `clara automates clinical literature review. It searches PubMed for
papers matching a query, resolves full text where openly available,
extracts a structured result record per paper using a generative AI
backend, and exports results as spreadsheets.

Each operation is a subcommand: search, analyze, files, jobs, and
export. Past analysis runs are kept in a local database so results can
be listed and re-exported without re-analysis.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./clara.yaml or ~/.config/clara/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory for the job database and result files")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("clara")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "clara"))
		}
	}

	viper.SetEnvPrefix("CLARA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pubmedConfig builds the PubMed client configuration from flags,
// config file, and secrets, in that order of precedence.
func pubmedConfig(cmd *cobra.Command) types.PubMedConfig {
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = viper.GetString("pubmed.email")
	}
	apiKey := viper.GetString("pubmed.api_key")

	return types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "clara/" + version,
		},
		Email:  secretDefault("ncbi-email", email),
		APIKey: secretDefault("ncbi-api-key", apiKey),
	}
}

// analysisConfig builds the AI backend configuration. The API key comes
// from the flag, the provider-specific secret file, or the environment by
// way of viper.
func analysisConfig(cmd *cobra.Command) (types.AnalysisConfig, error) {
	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = viper.GetString("analysis.provider")
	}
	if provider == "" {
		provider = string(types.ProviderOpenAI)
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("analysis.model")
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	switch types.Provider(provider) {
	case types.ProviderOpenAI:
		apiKey = secretDefault("openai-api-key", apiKey)
	case types.ProviderAnthropic:
		apiKey = secretDefault("anthropic-api-key", apiKey)
	default:
		return types.AnalysisConfig{}, fmt.Errorf("unknown provider %q: use openai or anthropic", provider)
	}
	if apiKey == "" {
		return types.AnalysisConfig{}, fmt.Errorf("no API key for provider %s: pass --api-key or add a .secrets/ entry", provider)
	}

	fullText, _ := cmd.Flags().GetBool("full-text")

	return types.AnalysisConfig{
		AIConfig: types.AIConfig{
			Provider: types.Provider(provider),
			Model:    model,
			APIKey:   apiKey,
		},
		HTTPConfig: types.HTTPConfig{
			Timeout:   120 * time.Second,
			UserAgent: "clara/" + version,
		},
		UseFullText: fullText,
	}, nil
}

func storeConfig() types.StoreConfig {
	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
	if dataDir == "" {
		dataDir = "data"
	}
	return types.StoreConfig{DataDir: dataDir}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
