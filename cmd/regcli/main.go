package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"utregister/cmd/regcli/commands"
	"utregister/lib/serviceutil"
	"utregister/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext(context.Background())

	t, err := telemetry.SetupFromEnv(ctx, "regcli")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	defer t.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
