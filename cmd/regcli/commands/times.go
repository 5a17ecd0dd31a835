package commands

import (
	"fmt"
	"utregister/lib/registrar/ris"
	"utregister/lib/serviceutil"
	"utregister/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var strictTimes *bool

func init() {
	strictTimes = timesCmd.Flags().Bool("strict", false, "Fail on the first span that cannot be decoded.")
	rootCmd.AddCommand(timesCmd)
}

const windowFormat = "Mon Jan 2 3:04 PM"

func renderWindows(windows []ris.Window) {
	t := newTable()
	t.AppendHeader(table.Row{"Day", "Opens", "Closes"})
	for _, w := range windows {
		t.AppendRow(table.Row{
			w.Start.Format("Mon Jan 2 2006"),
			w.Start.Format("3:04 PM"),
			w.Stop.Format("3:04 PM"),
		})
	}
	t.Render()
}

var timesCmd = &cobra.Command{
	Use:   "times [--strict]",
	Short: "Shows your registration windows and bars.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd.Context())
		defer e.Close()

		registration, err := e.Session.RegistrationTimes(cmd.Context(), !*strictTimes)
		if err != nil {
			e.Close()
			serviceutil.Fatal("failed to read registration times", fmt.Errorf("%s", describeError(err)))
		}

		err = e.Store.RecordWindows(cmd.Context(), e.Session.Term, registration.Windows)
		if err != nil {
			e.Close()
			serviceutil.Fatal("failed to store registration windows", err)
		}

		renderWindows(registration.Windows)
		for _, parseErr := range registration.Errors {
			fmt.Printf("Could not read %q: %s\n", parseErr.Span, parseErr.Reason)
		}

		next, ok := ris.Next(registration.Windows, timezone.Now().In(e.Session.Location))
		if ok {
			fmt.Printf("Next window: %s - %s\n", next.Start.Format(windowFormat), next.Stop.Format("3:04 PM"))
		}

		if len(registration.Bars) > 0 {
			fmt.Println("Registration bars:")
			renderRows(registration.Bars)
		}
	},
}
