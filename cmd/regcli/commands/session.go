package commands

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
	devenv "utregister/dev/env"
	"utregister/lib/notify"
	"utregister/lib/registrar"
	"utregister/lib/registrar/cookies"
	"utregister/lib/regstore"
	"utregister/lib/restyutil"
	"utregister/lib/serviceutil"
)

// env is everything a command needs, opened from the config.
type env struct {
	Config  Config
	Session *registrar.Session
	Store   regstore.Store

	database *sql.DB
}

func (e env) Close() {
	if e.database != nil {
		e.database.Close()
	}
}

func openStore(ctx context.Context, config Config) (regstore.Store, *sql.DB) {
	database, err := config.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	location, err := config.Location()
	if err != nil {
		serviceutil.Fatal("invalid timezone", err)
	}
	store := regstore.NewStore(database).In(location)
	err = store.Migrate(ctx)
	if err != nil {
		serviceutil.Fatal("failed to migrate database", err)
	}
	return store, database
}

func openEnv(ctx context.Context) env {
	config, err := loadConfig()
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	t, err := config.Term()
	if err != nil {
		serviceutil.Fatal("invalid term", err)
	}
	location, err := config.Location()
	if err != nil {
		serviceutil.Fatal("invalid timezone", err)
	}

	cookiePath, err := devenv.ResolvePath(config.CookieFile)
	if err != nil {
		serviceutil.Fatal("failed to resolve cookie file", err)
	}
	jar, err := cookies.OpenJar(cookiePath, nil)
	if err != nil {
		serviceutil.Fatal("failed to load cookies", err)
	}

	store, database := openStore(ctx, config)

	var output restyutil.InstrumentOutput
	if *verbose {
		fsOutput, err := restyutil.NewFilesystemOutput("<dev_state>/resty/regcli")
		if err != nil {
			slog.Warn("failed to create http dump directory", "err", err)
		} else {
			output = fsOutput
		}
	}

	session, err := registrar.NewSession(registrar.Options{
		Term:             t,
		BaseUrl:          config.BaseUrl,
		MinNonceCount:    config.MinNonceCount,
		MaxNonceCount:    config.MaxNonceCount,
		Jar:              jar,
		StudentEid:       config.StudentEid,
		Location:         location,
		Timeout:          time.Duration(config.TimeoutSeconds) * time.Second,
		CloudflareBypass: config.CloudflareBypass,
		Login:            promptLogin,
		Recorder:         notify.Recorders{store, notify.NewMailer(config.Notify)},
		InstrumentOutput: output,
	})
	if err != nil {
		serviceutil.Fatal("failed to create session", err)
	}

	slog.DebugContext(ctx, "opened session", "term", t.String(), "cookies", jar.Len())
	return env{
		Config:   config,
		Session:  session,
		Store:    store,
		database: database,
	}
}

// ensureNonces tops the pool up when it holds fewer than n nonces.
func ensureNonces(ctx context.Context, session *registrar.Session, n int) {
	if session.Pool.Len() >= n {
		return
	}
	err := session.CollectMaxNonces(ctx)
	if err != nil && session.Pool.Len() < n {
		serviceutil.Fatal("failed to collect nonces", err)
	}
	if err != nil {
		slog.WarnContext(ctx, "some nonce fetches failed", "err", err)
	}
}
