package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/forPelevin/montage/internal/domain/timecode"
	"github.com/forPelevin/montage/internal/types"
	"github.com/forPelevin/montage/internal/usecase"
)

func newRangesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranges <input>",
		Short: "Print the ranges a prompt selects without cutting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absIn, intent, err := resolveInput(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
			defer cancel()

			sel, err := p.Select(ctx, usecase.Input{Source: absIn, Intent: intent})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRanges(sel.Ranges))
			fmt.Fprintf(cmd.OutOrStdout(), "source: %s\n", sel.Source)
			return nil
		},
	}
	addRangeFlags(cmd)
	return cmd
}

func renderRanges(ranges []types.CutRange) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	// Keep the case of units like "7.50s" in the footer.
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"#", "Start", "End", "Duration"})
	for i, r := range ranges {
		tw.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			timecode.Format(r.Start),
			timecode.Format(r.End),
			fmt.Sprintf("%.2fs", r.Duration()),
		})
	}
	tw.AppendFooter(table.Row{"", "", "Total", fmt.Sprintf("%.2fs", types.TotalDuration(ranges))})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}
