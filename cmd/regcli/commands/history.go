package commands

import (
	"fmt"
	"utregister/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists every registration request made for the term.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		t, err := config.Term()
		if err != nil {
			serviceutil.Fatal("invalid term", err)
		}
		store, database := openStore(cmd.Context(), config)
		defer database.Close()

		actions, err := store.Actions(cmd.Context(), t)
		if err != nil {
			database.Close()
			serviceutil.Fatal("failed to read history", err)
		}
		if len(actions) == 0 {
			fmt.Printf("No requests recorded for %s.\n", t)
			return
		}

		out := newTable()
		out.AppendHeader(table.Row{"Session", "Time", "Request", "Params", "Result"})
		for _, a := range actions {
			result := a.Message
			if !a.Ok {
				result = a.Error
			}
			session := a.Session
			if len(session) > 8 {
				session = session[:8]
			}
			out.AppendRow(table.Row{
				session,
				a.Time.Format("Jan 2 15:04:05"),
				string(a.Code),
				fmt.Sprint(a.Params),
				result,
			})
		}
		out.Render()
	},
}
