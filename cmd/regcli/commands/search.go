package commands

import (
	"fmt"
	"utregister/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <unique>",
	Short: "Looks up a section by its unique number.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd.Context())
		defer e.Close()

		ensureNonces(cmd.Context(), e.Session, 1)
		sections, err := e.Session.SearchSection(cmd.Context(), args[0])
		if err != nil {
			e.Close()
			serviceutil.Fatal("search failed", fmt.Errorf("%s", describeError(err)))
		}
		if len(sections.Keys) == 0 {
			fmt.Println("No sections found.")
			return
		}
		for _, unique := range sections.Keys {
			fmt.Printf("Section %s\n", unique)
			renderRows(sections.Get(unique))
		}
	},
}
