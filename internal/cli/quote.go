package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <listing-id>",
	Short: "Quote the landed cost of one marketplace listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("listing id must be a positive integer, got %q", args[0])
		}
		return getApp().Quote(cmd.Context(), id)
	},
}
