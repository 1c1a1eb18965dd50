package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/laissez-faire/mealplanner/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mealplanner",
		Short: "Weekly dinner planner backed by an LLM",
		Long: `Mealplanner asks a text-generation service for a batch of dinner recipes,
repairs the model's JSON output and attaches a photo to every recipe,
scraped from the recipe's own page or found through a stock photo search.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return setupLogging(opts.logLevel, opts.logFormat)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text, json)")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newGenerateCmd(opts))

	return cmd
}

func setupLogging(level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// providerFlags are the generation settings every command can override.
type providerFlags struct {
	provider string
	model    string
	search   bool
}

func (f *providerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "Generation provider (gemini, gemini-sdk, openai, ollama)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (defaults per provider)")
	cmd.Flags().BoolVar(&f.search, "search", false, "Enable the Gemini search grounding tool")
}

// loadConfig applies flag overrides on top of defaults, the config file
// and the environment.
func loadConfig(cmd *cobra.Command, opts *rootOptions, flags *providerFlags) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.provider != "" && flags.provider != cfg.Provider {
		// Keep an explicitly configured model; swap a defaulted one.
		if cfg.Model == config.DefaultModel(cfg.Provider) {
			cfg.Model = config.DefaultModel(flags.provider)
		}
		cfg.Provider = flags.provider
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if cmd.Flags().Changed("search") {
		cfg.EnableSearch = flags.search
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
