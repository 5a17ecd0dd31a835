package regstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"
	"utregister/lib/registrar"
	"utregister/lib/registrar/ris"
	"utregister/lib/registrar/term"
	"utregister/lib/regstore/db"
	"utregister/lib/timezone"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store is the local log of registrar actions and the registration
// windows seen for each term.
type Store struct {
	db  *sql.DB
	qry *db.Queries
	loc *time.Location
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// In returns a store that reads times back in loc instead of
// timezone.Location.
func (s Store) In(loc *time.Location) Store {
	s.loc = loc
	return s
}

func (s Store) location() *time.Location {
	if s.loc == nil {
		return timezone.Location
	}
	return s.loc
}

// Migrate creates the tables if they do not exist yet.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

// RecordAttempt implements registrar.Recorder.
func (s Store) RecordAttempt(ctx context.Context, attempt registrar.Attempt) error {
	params := attempt.Params
	if params == nil {
		params = map[string]string{}
	}
	serialized, err := json.Marshal(params)
	if err != nil {
		return err
	}

	errText := ""
	if attempt.Err != nil {
		errText = attempt.Err.Error()
	}
	return s.qry.CreateActionAttempt(ctx, db.CreateActionAttemptParams{
		Session: attempt.Session,
		Term:    attempt.Term.Code(),
		Code:    string(attempt.Code),
		Params:  string(serialized),
		Ok:      attempt.Err == nil,
		Message: attempt.Message,
		Error:   errText,
		Time:    attempt.Time.Unix(),
	})
}

type Action struct {
	Session string
	Code    registrar.Code
	Params  map[string]string
	Ok      bool
	Message string
	Error   string
	Time    time.Time
}

// Actions lists every recorded attempt for t, oldest first.
func (s Store) Actions(ctx context.Context, t term.Term) ([]Action, error) {
	rows, err := s.qry.GetActionAttempts(ctx, t.Code())
	if err != nil {
		return nil, err
	}

	actions := make([]Action, 0, len(rows))
	for _, r := range rows {
		var params map[string]string
		err = json.Unmarshal([]byte(r.Params), &params)
		if err != nil {
			slog.WarnContext(ctx, "failed to unmarshal db action params", "id", r.ID, "err", err)
		}
		actions = append(actions, Action{
			Session: r.Session,
			Code:    registrar.Code(r.Code),
			Params:  params,
			Ok:      r.Ok,
			Message: r.Message,
			Error:   r.Error,
			Time:    time.Unix(r.Time, 0).In(s.location()),
		})
	}
	return actions, nil
}

// RecordWindows replaces the stored windows of t.
func (s Store) RecordWindows(ctx context.Context, t term.Term, windows []ris.Window) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.DeleteWindows(ctx, t.Code())
	if err != nil {
		return err
	}
	for _, w := range windows {
		err = txqry.CreateWindow(ctx, db.CreateWindowParams{
			Term:  t.Code(),
			Start: w.Start.Unix(),
			Stop:  w.Stop.Unix(),
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Windows returns the last recorded windows of t ordered by start.
func (s Store) Windows(ctx context.Context, t term.Term) ([]ris.Window, error) {
	rows, err := s.qry.GetWindows(ctx, t.Code())
	if err != nil {
		return nil, err
	}
	windows := make([]ris.Window, len(rows))
	for i, r := range rows {
		windows[i] = ris.Window{
			Start: time.Unix(r.Start, 0).In(s.location()),
			Stop:  time.Unix(r.Stop, 0).In(s.location()),
		}
	}
	return windows, nil
}
