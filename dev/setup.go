package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	devenv "utregister/dev/env"
	regstoredb "utregister/lib/regstore/db"

	_ "modernc.org/sqlite"
)

func createDb(filename, schema string) error {
	path, err := devenv.ResolvePath(filepath.Join("<dev_state>", filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec(schema)
	return err
}

func CreateEmptyStore() error {
	return createDb("regstore.db", regstoredb.Schema)
}

const exampleConfig = `{
    year: 2024,
    semester: "Fall",
    // student_eid: "",
    // cookie_file: "<dev_state>/cookies.json",
    // database: { file: "<dev_state>/regstore.db" },
    // notify: {
    //     smtp: { server: "", port: 587, email_address: "", password: "" },
    //     to: [],
    // },
}
`

// CreateExampleConfig writes regcli.json5 to the repository root unless
// one already exists.
func CreateExampleConfig() error {
	_, err := os.Stat("regcli.json5")
	if err == nil {
		return nil
	}
	fmt.Println("writing example config to regcli.json5")
	return os.WriteFile("regcli.json5", []byte(exampleConfig), 0600)
}

func PrintConfigLocations() {
	slog.Info("edit regcli.json5 with your term, then run `go run ./cmd/regcli login` to store your session cookies.")
}
