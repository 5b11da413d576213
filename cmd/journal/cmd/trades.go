package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"forex-journal/internal/journal"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from a CSV file",
		Long: `Import trades from a CSV file in the export format.

The first line is always treated as the header. Rows with fewer than five
cells, an unknown market or setup, or an invalid profit/loss are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.open(); err != nil {
				return err
			}
			defer opts.close()
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", journal.ErrRead, err)
			}
			defer f.Close()

			summary, err := opts.journal.Import(cmd.Context(), opts.owner, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d trades (%d skipped)\n", summary.Imported, summary.Skipped)
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades as CSV",
		Long: `Export every trade as CSV. Without --output the file is written to
trades_<YYYY-MM-DD>.csv in the current directory; use "-" for stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.open(); err != nil {
				return err
			}
			defer opts.close()
			f, err := opts.journal.Export(cmd.Context(), opts.owner)
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(f.Data)
				return err
			}
			if output == "" {
				output = f.Name
			}
			if err := os.WriteFile(output, f.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or - for stdout")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trades, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.open(); err != nil {
				return err
			}
			defer opts.close()
			trades, err := opts.journal.List(cmd.Context(), opts.owner)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tMARKET\tSETUP\tP/L\tRULES\tNOTES")
			for _, t := range trades {
				rules := "No"
				if t.RulesFollowed {
					rules = "Yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\t%s\n", t.ID, t.Date, t.Market, t.Setup, t.ProfitLoss, rules, t.Notes)
			}
			return w.Flush()
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show total P/L, win rate and rule adherence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.open(); err != nil {
				return err
			}
			defer opts.close()
			stats, err := opts.journal.Stats(cmd.Context(), opts.owner)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total P/L:      %+.2f\n", stats.TotalPL)
			fmt.Fprintf(out, "Win rate:       %.1f%%\n", stats.WinRate)
			fmt.Fprintf(out, "Total trades:   %d\n", stats.TotalTrades)
			fmt.Fprintf(out, "Rules followed: %.1f%%\n", stats.RulesFollowedRate)
			return nil
		},
	}
}
