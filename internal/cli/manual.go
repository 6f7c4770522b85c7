package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	manualAge          string
	manualDisplacement int64
	manualPrice        string
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Quote the landed cost from manually supplied parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		if manualDisplacement <= 0 {
			return fmt.Errorf("--cc must be greater than zero")
		}
		if manualPrice == "" {
			return fmt.Errorf("--price is required")
		}
		return getApp().Manual(cmd.Context(), manualAge, manualDisplacement, manualPrice)
	},
}

func init() {
	manualCmd.Flags().StringVar(&manualAge, "age", "under_3", "Age bracket: under_3, 3_to_5, 5_to_7 or over_7")
	manualCmd.Flags().Int64Var(&manualDisplacement, "cc", 0, "Engine displacement in cc")
	manualCmd.Flags().StringVar(&manualPrice, "price", "", "Vehicle price in KRW (thousands separators allowed)")
}
