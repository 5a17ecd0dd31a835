package commands

import (
	"fmt"
	"utregister/lib/registrar/tables"
	"utregister/lib/serviceutil"

	"github.com/spf13/cobra"
)

var listingMatch *string
var listingThreshold *float64

func init() {
	listingMatch = listingCmd.Flags().String("match", "", "Only show classes resembling this text, e.g. a course title.")
	listingThreshold = listingCmd.Flags().Float64("threshold", 0.85, "The similarity --match requires.")
	rootCmd.AddCommand(listingCmd)
}

var listingCmd = &cobra.Command{
	Use:   "listing [--match <text>] [--threshold <0..1>]",
	Short: "Shows the classes you are registered for.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd.Context())
		defer e.Close()

		rows, err := e.Session.ClassListing(cmd.Context())
		if err != nil {
			e.Close()
			serviceutil.Fatal("failed to fetch class listing", fmt.Errorf("%s", describeError(err)))
		}

		if *listingMatch != "" {
			matches := tables.Search(rows, *listingMatch, *listingThreshold)
			rows = make([]tables.Row, len(matches))
			for i, m := range matches {
				rows[i] = m.Row
			}
		}
		renderRows(rows)
	},
}
