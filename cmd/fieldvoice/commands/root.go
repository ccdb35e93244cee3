package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldvoice/fieldvoice/pkg/cli"
)

var (
	// Global flags.
	verbose      bool
	contextName  string
	outputFormat string

	// Global configuration, loaded lazily.
	globalConfig  *cli.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "fieldvoice",
	Short: "Voice job diary for the field",
	Long: `fieldvoice - talk your job diary instead of typing it.

A capture session streams your speech to a realtime transcription peer.
Plain speech accumulates into a draft entry; phrases like "save it",
"new job Smith Kitchen" or "mark it done" act as commands against the
diary service.

Configuration lives in ~/.fieldvoice/config.yaml as named contexts:

  # Create and select a context
  fieldvoice config add site --user-id dave --diary-url https://diary.example.com \
      --diary-api-key KEY --token-url https://issuer.example.com/realtime/credentials \
      --realtime-url https://peer.example.com/offer
  fieldvoice config use site

  # Capture, then browse
  fieldvoice record
  fieldvoice jobs list
  fieldvoice entries search "tile grout"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "config context to use (default: current)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: yaml, json, table")
}

func initConfig() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		// Deferred reporting so commands like `version` still work.
		configLoadErr = err
		return
	}
	globalConfig = cfg

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// getConfig returns the global configuration.
func getConfig() (*cli.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := cli.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// currentContext resolves the context selected by --context or the
// config's current pointer.
func currentContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

func output(result any) error {
	return cli.Output(result, cli.OutputOptions{Format: cli.OutputFormat(outputFormat)})
}
