package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mhpenta/imageedit"
	"github.com/mhpenta/imageedit/internal/config"
	"github.com/mhpenta/imageedit/internal/logging"
	"github.com/mhpenta/imageedit/provider/gemini"
)

var rootCmd = &cobra.Command{
	Use:           "imageedit",
	Short:         "Edit images with natural-language instructions",
	Long:          `imageedit sends an image and an instruction to a Gemini image model and saves the edited result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands); unset flags keep the environment's value.
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("model", "", "Model to use (nano-banana-2, nano-banana-1)")
	rootCmd.PersistentFlags().String("size", "", "Output size: 1K, 2K, 4K")
	rootCmd.PersistentFlags().String("aspect-ratio", "", "Output aspect ratio, e.g. 16:9")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-request timeout")
}

// loadConfig reads the environment, then applies any flags the user set.
func loadConfig(cmd *cobra.Command, requireKey bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("size") {
		cfg.ImageSize, _ = flags.GetString("size")
	}
	if flags.Changed("aspect-ratio") {
		cfg.AspectRatio, _ = flags.GetString("aspect-ratio")
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout, _ = flags.GetDuration("timeout")
	}

	if err := cfg.Validate(requireKey); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(level)
	slog.SetDefault(logger)
	return logger
}

// newManager connects to Gemini and routes every model through it.
func newManager(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*imageedit.Manager, error) {
	editor, err := gemini.New(ctx, cfg.ProviderConfig())
	if err != nil {
		return nil, err
	}

	opts := []imageedit.ManagerOption{imageedit.WithLogger(logger)}
	if cfg.Model != "" {
		opts = append(opts, imageedit.WithDefaultModel(imageedit.Model(cfg.Model)))
	}
	return imageedit.NewManager(editor, opts...), nil
}

// newSession wires a session over manager.
func newSession(cfg *config.Config, manager *imageedit.Manager, logger *slog.Logger, opts ...imageedit.SessionOption) (*imageedit.Session, *imageedit.DisplayRegistry) {
	registry := imageedit.NewDisplayRegistry()
	source := imageedit.NewImageSource(registry, logger)
	client := imageedit.NewClient(manager,
		imageedit.WithEditConfig(cfg.EditConfig()),
		imageedit.WithRequestTimeout(cfg.RequestTimeout),
		imageedit.WithClientLogger(logger),
	)
	opts = append([]imageedit.SessionOption{imageedit.WithSessionLogger(logger)}, opts...)
	return imageedit.NewSession(source, client, opts...), registry
}
