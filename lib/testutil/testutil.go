package testutil

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	devenv "utregister/dev/env"
	"utregister/lib/telemetry"

	random "github.com/mazen160/go-random"
	_ "modernc.org/sqlite"
)

type StoreParams struct {
	Name string
	// if unspecified, it will skip setting up a db
	DbSchema string
	// if unspecified, it will use `:memory:`
	DbPath string
}

type StoreResult struct {
	DB *sql.DB
}

func SetupStore(t testing.TB, params StoreParams) (StoreResult, func()) {
	cleanup := telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", params.Name))

	dbpath := ":memory:"
	if params.DbPath != "" && params.DbPath != ":memory:" {
		var err error
		dbpath, err = devenv.ResolvePath(params.DbPath)
		if err != nil {
			t.Fatal(err)
		}
	}
	sqlite, err := sql.Open("sqlite", dbpath)
	if err != nil {
		t.Fatal(err)
	}
	// every new connection to :memory: is a fresh database
	sqlite.SetMaxOpenConns(1)

	if params.DbSchema != "" {
		_, err = sqlite.Exec(params.DbSchema)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			t.Fatal(err)
		}
	}

	return StoreResult{DB: sqlite}, func() {
		sqlite.Close()
		cleanup()
	}
}

// RandomNonces generates n distinct nonce-like tokens.
func RandomNonces(n int) ([]string, error) {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		token, err := random.String(16)
		if err != nil {
			return nil, err
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		out = append(out, token)
	}
	return out, nil
}
