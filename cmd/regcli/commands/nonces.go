package commands

import (
	"fmt"
	"log/slog"
	"utregister/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(noncesCmd)
}

var noncesCmd = &cobra.Command{
	Use:   "nonces",
	Short: "Fills the nonce pool, useful to check that the session is still logged in.",
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd.Context())
		defer e.Close()

		err := e.Session.CollectMaxNonces(cmd.Context())
		if err != nil {
			slog.Error("nonce collection failed", "err", describeError(err))
		}
		fmt.Printf(
			"Collected %d of %d nonces.\n",
			e.Session.Pool.Len(),
			e.Session.Pool.MaxCount(),
		)
		if e.Session.Pool.Len() < e.Session.Pool.MinCount() {
			e.Close()
			serviceutil.Fatal(
				"nonce pool is below its minimum",
				fmt.Errorf("%d < %d, the session may have expired", e.Session.Pool.Len(), e.Session.Pool.MinCount()),
			)
		}
	},
}
