package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/montage/internal/config"
	"github.com/forPelevin/montage/internal/logging"
)

func Main() {
	root := newRootCmd()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "montage",
		Short:         "Cut a video down to the parts an editing prompt asks for",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Config file (default ./montage.toml)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Log format: auto, text, json")

	root.AddCommand(newCutCmd(), newRangesCmd(), newServeCmd())
	return root
}

// loadConfig resolves configuration and applies the persistent and
// range-policy flags on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if f := cmd.Flags().Lookup("strict"); f != nil && f.Changed {
		cfg.Ranges.Strict, _ = cmd.Flags().GetBool("strict")
	}
	if f := cmd.Flags().Lookup("fallback"); f != nil && f.Changed {
		cfg.Ranges.Fallback, _ = cmd.Flags().GetBool("fallback")
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger.Debug("config loaded", "path", resolved, "exists", exists, "ai_available", cfg.AIAvailable())
	return cfg, logger, nil
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("prompt", "p", "", "Editing prompt")
	cmd.Flags().String("script", "", "File with a script or transcript describing the wanted cut")
	cmd.Flags().Bool("strict", false, "Fail when the model returns an invalid range")
	cmd.Flags().Bool("fallback", false, "Use transcript segments when the model is unavailable or its answer is unusable")
}
