package commands

import (
	"context"
	"fmt"
	"os"
	"utregister/lib/telemetry"

	"github.com/spf13/cobra"
)

var exit = os.Exit

var configPath *string
var verbose *bool

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "regcli.json5", "The configuration file to read.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output and dump every http message to <dev_state>/resty/regcli.")
}

var rootCmd = &cobra.Command{
	Use:   "regcli",
	Short: "regcli drives course registration on the UT Direct registrar.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
