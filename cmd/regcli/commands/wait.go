package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"utregister/lib/registrar"
	"utregister/lib/registrar/ris"
	"utregister/lib/serviceutil"
	"utregister/lib/telemetry"
	"utregister/lib/timezone"

	"github.com/spf13/cobra"
)

var waitAdds *[]string
var waitLead *time.Duration
var waitHarvestLead *time.Duration
var waitSkipBegin *bool

func init() {
	waitAdds = waitCmd.Flags().StringArray("add", nil, "A section to add once registration opens, may be repeated.")
	waitLead = waitCmd.Flags().Duration("lead", 0, "How long before the window opens to start sending requests.")
	waitHarvestLead = waitCmd.Flags().Duration("harvest-lead", time.Minute, "How long before the window opens to collect nonces.")
	waitSkipBegin = waitCmd.Flags().Bool("skip-begin", false, "Do not open registration before adding.")
	rootCmd.AddCommand(waitCmd)
}

// sleepUntil blocks until t or until ctx is done, whichever is first.
func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// upcomingWindows reads the windows from the registrar and records them.
// When the registrar cannot be reached the last recorded windows are used.
func upcomingWindows(ctx context.Context, e env) []ris.Window {
	registration, err := e.Session.RegistrationTimes(ctx, true)
	if err != nil {
		stored, storeErr := e.Store.Windows(ctx, e.Session.Term)
		if storeErr != nil || len(stored) == 0 {
			e.Close()
			serviceutil.Fatal("failed to read registration times", fmt.Errorf("%s", describeError(err)))
		}
		slog.WarnContext(ctx, "using recorded registration windows", "err", err, "count", len(stored))
		return stored
	}
	err = e.Store.RecordWindows(ctx, e.Session.Term, registration.Windows)
	if err != nil {
		slog.WarnContext(ctx, "failed to store registration windows", "err", err)
	}
	return registration.Windows
}

var waitCmd = &cobra.Command{
	Use:   "wait --add <unique>... [--lead <duration>]",
	Short: "Waits for your next registration window and registers the moment it opens.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		e := openEnv(ctx)
		defer e.Close()

		telemetry.InstrumentPerfStats(ctx, 30*time.Second)

		windows := upcomingWindows(ctx, e)
		next, ok := ris.Next(windows, timezone.Now().In(e.Session.Location))
		if !ok {
			e.Close()
			serviceutil.Fatal("no upcoming registration window", fmt.Errorf("%d windows are all in the past", len(windows)))
		}
		slog.InfoContext(ctx, "waiting for registration window", "opens", next.Start.Format(windowFormat))

		err := sleepUntil(ctx, next.Start.Add(-*waitHarvestLead))
		if err != nil {
			e.Close()
			serviceutil.Fatal("interrupted", err)
		}

		labels, actions := addActions(*waitAdds)
		needed := len(actions) + 1
		ensureNonces(ctx, e.Session, needed)
		slog.InfoContext(ctx, "nonces ready", "count", e.Session.Pool.Len())

		err = sleepUntil(ctx, next.Start.Add(-*waitLead))
		if err != nil {
			e.Close()
			serviceutil.Fatal("interrupted", err)
		}

		if !*waitSkipBegin {
			labels = append([]string{"begin registration"}, labels...)
			actions = append([]action{
				func(ctx context.Context, s *registrar.Session) (registrar.ActionResult, error) {
					return s.BeginRegistration(ctx)
				},
			}, actions...)
		}
		if !runActions(ctx, e.Session, labels, actions) {
			e.Close()
			exit(1)
		}
	},
}
