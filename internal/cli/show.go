package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"car-landed-cost/internal/app"
)

var (
	showLimit  int
	showQuotes bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent rate samples or quotes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:  showLimit,
			Quotes: showQuotes,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showQuotes, "quotes", false, "Show quote history instead of rate samples")
}
