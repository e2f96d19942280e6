package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forPelevin/montage/internal/pipeline"
	"github.com/forPelevin/montage/internal/types"
	"github.com/forPelevin/montage/internal/usecase"
)

const runTimeout = 3 * time.Hour

func newCutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cut <input>",
		Short: "Cut the parts of a video selected by a prompt into one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCut(cmd, args[0])
		},
	}
	addRangeFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "Output file (default out/<run>/cut_<input>)")
	return cmd
}

func runCut(cmd *cobra.Command, input string) error {
	absIn, intent, err := resolveInput(cmd, input)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = pipeline.DefaultOutputPath("out", absIn, time.Now().UTC())
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return err
	}
	if absOut == absIn {
		return errors.New("output must differ from input")
	}

	p, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	res, err := p.Cut(ctx, usecase.Input{
		Source:      absIn,
		Intent:      intent,
		Destination: absOut,
	})
	if err != nil {
		return err
	}

	size := "unknown size"
	if info, err := os.Stat(res.Destination); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s, %d ranges, %.1fs selected, source=%s)\n",
		res.Destination, size, len(res.Ranges), types.TotalDuration(res.Ranges), res.Source)
	return nil
}

func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(pipeline.Config{
		App:          *cfg,
		Logger:       logger,
		RequireModel: true,
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

// resolveInput returns the absolute input path and the editing intent taken
// from --prompt and/or the --script file.
func resolveInput(cmd *cobra.Command, input string) (string, string, error) {
	absIn, err := filepath.Abs(input)
	if err != nil {
		return "", "", err
	}
	if err := pipeline.CheckInput(absIn); err != nil {
		return "", "", err
	}

	prompt, _ := cmd.Flags().GetString("prompt")
	scriptPath, _ := cmd.Flags().GetString("script")
	var parts []string
	if s := strings.TrimSpace(prompt); s != "" {
		parts = append(parts, s)
	}
	if scriptPath != "" {
		b, err := os.ReadFile(scriptPath)
		if err != nil {
			return "", "", fmt.Errorf("read script: %w", err)
		}
		if s := strings.TrimSpace(string(b)); s != "" {
			parts = append(parts, "Script:\n"+s)
		}
	}
	if len(parts) == 0 {
		return "", "", errors.New("an editing intent is required: pass --prompt or --script")
	}
	return absIn, strings.Join(parts, "\n\n"), nil
}
