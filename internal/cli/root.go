package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"domainmap/config"
	"domainmap/internal/adapter/llm"
	"domainmap/internal/adapter/store"
	"domainmap/internal/port"
)

var (
	cfgFile string
	outDir  string
	debug   bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "domainmap",
	Short: "Map a codebase's classes to business domains using an LLM",
	Long: `domainmap batches a codebase's source files under a token budget,
summarizes each batch with a text-generation model, derives a business
domain catalog from the summaries, and classifies every class into one
of the derived domains.

Example usage:
  domainmap scan .                       # Generate class_mapping.json
  domainmap run class_mapping.json       # Build batches (stage 1)
  domainmap summarize class_mapping.json # Summarize batches
  domainmap domains                      # Derive the domain catalog
  domainmap classify class_mapping.json  # Assign every class a domain`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./domainmap.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", ".", "directory for pipeline artifacts")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable development logging")
}

func artifacts() *store.Artifacts {
	return store.NewArtifacts(outDir)
}

// newLLM builds the configured text-generation client. Credentials come
// from the environment.
func newLLM() (port.LLM, error) {
	if cfg.LLM.Provider == "mock" {
		return llm.NewMockClient(), nil
	}
	return llm.NewClient(llm.Options{
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
		BaseURL:        cfg.LLM.BaseURL,
		APIKeyEnv:      cfg.LLM.APIKeyEnv,
		MaxTokens:      cfg.LLM.MaxTokens,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Temperature:    cfg.LLM.Temperature,
	})
}
