package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/montage/internal/httpapi"
	"github.com/forPelevin/montage/internal/pipeline"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cut pipeline over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("bind", "", "Listen address (default from config)")
	cmd.Flags().Bool("strict", false, "Fail when the model returns an invalid range")
	cmd.Flags().Bool("fallback", false, "Use transcript segments when the model is unavailable or its answer is unusable")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
		cfg.Server.Bind = bind
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	p, err := pipeline.New(pipeline.Config{App: *cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	srv := httpapi.NewServer(httpapi.ServerConfig{
		Bind:      cfg.Server.Bind,
		UploadDir: cfg.Server.UploadDir,
		OutputDir: cfg.Server.OutputDir,
		Service:   p,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
