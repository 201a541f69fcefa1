package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neuraforge/neuraforge-ai/internal/config"
	"github.com/neuraforge/neuraforge-ai/internal/engine"
	"github.com/neuraforge/neuraforge-ai/internal/flows"
	"github.com/neuraforge/neuraforge-ai/internal/llm"
	"github.com/neuraforge/neuraforge-ai/internal/logger"
)

var (
	configPath string
	logLevel   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "neuraforge",
	Short: "AI dashboards and business insights from raw business data",
	Long: `NeuraForge turns business data into a dashboard description or an
insights report by prompting a hosted LLM with structured output.

Run "neuraforge serve" for the HTTP API, or use the dashboard and insights
subcommands to run a single flow from the terminal.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: ./configs or working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(insightsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds everything a subcommand needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *flows.Service
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	provider, err := llm.New(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	eng := engine.NewLLMEngine(provider, cfg.LLM.Timeout, log)
	return &app{
		cfg:     cfg,
		logger:  log,
		service: flows.New(eng, log),
	}, nil
}
