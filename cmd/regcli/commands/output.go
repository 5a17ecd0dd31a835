package commands

import (
	"errors"
	"fmt"
	"os"
	"utregister/lib/registrar"
	"utregister/lib/registrar/tables"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func renderRows(rows []tables.Row) {
	if len(rows) == 0 {
		fmt.Println("No rows.")
		return
	}
	t := newTable()
	var header table.Row
	for _, label := range rows[0].Labels() {
		header = append(header, label)
	}
	t.AppendHeader(header)
	for _, row := range rows {
		var out table.Row
		for _, label := range rows[0].Labels() {
			value, _ := row.Get(label)
			out = append(out, value)
		}
		t.AppendRow(out)
	}
	t.Render()
}

// describeError spells out the registrar errors a user can act on.
func describeError(err error) string {
	var rejection *registrar.ServerRejection
	if errors.As(err, &rejection) {
		return "rejected: " + rejection.Message
	}
	var transportErr *registrar.TransportError
	if errors.As(err, &transportErr) && transportErr.IsLoginRedirect() {
		return "your session expired, run 'regcli login' again"
	}
	return err.Error()
}
