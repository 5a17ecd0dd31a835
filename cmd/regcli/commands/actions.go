package commands

import (
	"context"
	"fmt"
	"utregister/lib/registrar"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var dropIfAdded *string

func init() {
	dropIfAdded = waitlistCmd.Flags().String("drop-if-added", "", "A section to drop once the waitlisted one is added.")

	rootCmd.AddCommand(beginCmd)
	rootCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(swapCmd)
	rootCmd.AddCommand(waitlistCmd)
	rootCmd.AddCommand(gradingCmd)
}

type action func(ctx context.Context, session *registrar.Session) (registrar.ActionResult, error)

// runActions harvests enough nonces for every action, then runs them in
// order. It reports whether all of them succeeded.
func runActions(ctx context.Context, session *registrar.Session, labels []string, actions []action) bool {
	ensureNonces(ctx, session, len(actions))

	t := newTable()
	t.AppendHeader(table.Row{"Request", "Result"})
	ok := true
	for i, act := range actions {
		result, err := act(ctx, session)
		if err != nil {
			ok = false
			t.AppendRow(table.Row{labels[i], describeError(err)})
			continue
		}
		message := result.Message
		if message == "" {
			message = "ok"
		}
		t.AppendRow(table.Row{labels[i], message})
	}
	t.Render()
	return ok
}

func runSingle(cmd *cobra.Command, label string, act action) {
	e := openEnv(cmd.Context())
	defer e.Close()
	if !runActions(cmd.Context(), e.Session, []string{label}, []action{act}) {
		e.Close()
		exit(1)
	}
}

var beginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Opens registration for the term.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runSingle(cmd, "begin registration", func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
			return s.BeginRegistration(ctx)
		})
	},
}

var ackCmd = &cobra.Command{
	Use:   "ack",
	Short: "Accepts the one time notices that block registration.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runSingle(cmd, "acknowledge", func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
			return s.Acknowledge(ctx)
		})
	},
}

func addActions(uniques []string) ([]string, []action) {
	labels := make([]string, len(uniques))
	actions := make([]action, len(uniques))
	for i, unique := range uniques {
		labels[i] = "add " + unique
		actions[i] = func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
			return s.AddCourse(ctx, unique)
		}
	}
	return labels, actions
}

var addCmd = &cobra.Command{
	Use:   "add <unique>...",
	Short: "Adds one or more sections, in order.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		e := openEnv(cmd.Context())
		defer e.Close()

		labels, actions := addActions(args)
		if !runActions(cmd.Context(), e.Session, labels, actions) {
			e.Close()
			exit(1)
		}
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <unique>",
	Short: "Drops a section.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSingle(cmd, "drop "+args[0], func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
			return s.DropCourse(ctx, args[0])
		})
	},
}

var swapCmd = &cobra.Command{
	Use:   "swap <drop unique> <add unique>",
	Short: "Drops a section only if another one can be added.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		label := fmt.Sprintf("swap %s for %s", args[0], args[1])
		runSingle(cmd, label, func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
			return s.SwapCourse(ctx, args[0], args[1])
		})
	},
}

var waitlistCmd = &cobra.Command{
	Use:   "waitlist <unique> [--drop-if-added <unique>]",
	Short: "Joins the waitlist of a section.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSingle(cmd, "waitlist "+args[0], func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
			return s.JoinWaitlist(ctx, args[0], *dropIfAdded)
		})
	},
}

var gradingCmd = &cobra.Command{
	Use:   "grading <unique>",
	Short: "Toggles a section between letter grade and pass/fail.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runSingle(cmd, "grading basis "+args[0], func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
			return s.ToggleGradingBasis(ctx, args[0])
		})
	},
}
