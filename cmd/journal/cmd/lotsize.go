package cmd

import (
	"fmt"

	"forex-journal/internal/lotsize"
	"github.com/spf13/cobra"
)

func newLotSizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lotsize",
		Short: "Recommend a lot size",
		Long: `Recommend a lot size from account capital or from a fixed risk amount.

Examples:
  journal lotsize capital --capital 5000 --pips 25
  journal lotsize risk --risk 100 --sl-pips 20`,
	}

	var capital, pips float64
	capitalCmd := &cobra.Command{
		Use:   "capital",
		Short: "Size from account capital and stop distance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lot := lotsize.CapitalBased(capital, pips)
			fmt.Fprintf(cmd.OutOrStdout(), "Recommended Lot Size: %s lots\n", lotsize.Format(lot))
			return nil
		},
	}
	capitalCmd.Flags().Float64Var(&capital, "capital", 0, "account capital")
	capitalCmd.Flags().Float64Var(&pips, "pips", 0, "stop distance in pips")

	var risk, slPips float64
	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "Size from a risk amount and stop-loss distance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lot := lotsize.RiskBased(risk, slPips)
			fmt.Fprintf(cmd.OutOrStdout(), "Recommended Lot Size: %s lots\n", lotsize.Format(lot))
			return nil
		},
	}
	riskCmd.Flags().Float64Var(&risk, "risk", 0, "amount willing to lose")
	riskCmd.Flags().Float64Var(&slPips, "sl-pips", 0, "stop-loss distance in pips")

	cmd.AddCommand(capitalCmd, riskCmd)
	return cmd
}
