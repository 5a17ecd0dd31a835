package db

import "context"

const createActionAttempt = `
insert into action_attempt(session, term, code, params, ok, message, error, time)
values (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateActionAttemptParams struct {
	Session string
	Term    string
	Code    string
	Params  string
	Ok      bool
	Message string
	Error   string
	Time    int64
}

func (q *Queries) CreateActionAttempt(ctx context.Context, arg CreateActionAttemptParams) error {
	_, err := q.db.ExecContext(ctx, createActionAttempt,
		arg.Session,
		arg.Term,
		arg.Code,
		arg.Params,
		arg.Ok,
		arg.Message,
		arg.Error,
		arg.Time,
	)
	return err
}

const getActionAttempts = `
select id, session, term, code, params, ok, message, error, time from action_attempt
where term = ?
order by time asc, id asc
`

func (q *Queries) GetActionAttempts(ctx context.Context, term string) ([]ActionAttempt, error) {
	rows, err := q.db.QueryContext(ctx, getActionAttempts, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ActionAttempt
	for rows.Next() {
		var i ActionAttempt
		if err := rows.Scan(
			&i.ID,
			&i.Session,
			&i.Term,
			&i.Code,
			&i.Params,
			&i.Ok,
			&i.Message,
			&i.Error,
			&i.Time,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteWindows = `
delete from registration_window where term = ?
`

func (q *Queries) DeleteWindows(ctx context.Context, term string) error {
	_, err := q.db.ExecContext(ctx, deleteWindows, term)
	return err
}

const createWindow = `
insert or replace into registration_window(term, start, stop)
values (?, ?, ?)
`

type CreateWindowParams struct {
	Term  string
	Start int64
	Stop  int64
}

func (q *Queries) CreateWindow(ctx context.Context, arg CreateWindowParams) error {
	_, err := q.db.ExecContext(ctx, createWindow, arg.Term, arg.Start, arg.Stop)
	return err
}

const getWindows = `
select term, start, stop from registration_window
where term = ?
order by start asc
`

func (q *Queries) GetWindows(ctx context.Context, term string) ([]RegistrationWindow, error) {
	rows, err := q.db.QueryContext(ctx, getWindows, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RegistrationWindow
	for rows.Next() {
		var i RegistrationWindow
		if err := rows.Scan(&i.Term, &i.Start, &i.Stop); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
