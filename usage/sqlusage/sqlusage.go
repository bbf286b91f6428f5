// Package sqlusage implements a command usage log in an SQLite database.
package sqlusage

import (
	"context"
	"fmt"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/zephyrtronium/hitori/usage"
)

// Log is a usage log backed by an SQL database.
type Log struct {
	db *sqlitex.Pool
}

var _ usage.Store = (*Log)(nil)

// Open opens an existing usage log in an SQL database.
func Open(ctx context.Context, db *sqlitex.Pool) (*Log, error) {
	return &Log{db: db}, nil
}

// Init initializes a usage log in an SQL database.
// For convenience, it accepts either a single connection or a pool.
func Init[DB *sqlite.Conn | *sqlitex.Pool](ctx context.Context, db DB) error {
	var conn *sqlite.Conn
	switch db := any(db).(type) {
	case *sqlite.Conn:
		conn = db
	case *sqlitex.Pool:
		var err error
		conn, err = db.Take(ctx)
		defer db.Put(conn)
		if err != nil {
			return fmt.Errorf("couldn't get connection from pool: %w", err)
		}
	}
	err := sqlitex.ExecuteScript(conn, schema, nil)
	if err != nil {
		return fmt.Errorf("couldn't create usage log: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS usage (
	id      INTEGER PRIMARY KEY,
	user    TEXT NOT NULL,
	grp     TEXT NOT NULL,
	command TEXT NOT NULL,
	time    INTEGER NOT NULL
) STRICT;
CREATE INDEX IF NOT EXISTS usage_command_time ON usage(command, time);
`

// Add records a use of a command.
func (l *Log) Add(ctx context.Context, r usage.Record) error {
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return fmt.Errorf("couldn't get connection to record usage: %w", err)
	}
	opts := sqlitex.ExecOptions{
		Named: map[string]any{
			":user":    r.User,
			":grp":     r.Group,
			":command": r.Command,
			":time":    r.Time.UnixNano(),
		},
	}
	err = sqlitex.Execute(conn, `INSERT INTO usage(user, grp, command, time) VALUES (:user, :grp, :command, :time)`, &opts)
	if err != nil {
		return fmt.Errorf("couldn't record usage: %w", err)
	}
	return nil
}

// Last returns the most recent use of a command.
func (l *Log) Last(ctx context.Context, command string) (usage.Record, bool, error) {
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return usage.Record{}, false, fmt.Errorf("couldn't get connection to read usage: %w", err)
	}
	var r usage.Record
	found := false
	opts := sqlitex.ExecOptions{
		Args: []any{command},
		ResultFunc: func(st *sqlite.Stmt) error {
			r = usage.Record{
				User:    st.ColumnText(0),
				Group:   st.ColumnText(1),
				Command: st.ColumnText(2),
				Time:    time.Unix(0, st.ColumnInt64(3)),
			}
			found = true
			return nil
		},
	}
	err = sqlitex.Execute(conn, `SELECT user, grp, command, time FROM usage WHERE command = ? ORDER BY time DESC, id DESC LIMIT 1`, &opts)
	if err != nil {
		return usage.Record{}, false, fmt.Errorf("couldn't read usage: %w", err)
	}
	return r, found, nil
}

// Count returns the number of recorded uses of a command.
func (l *Log) Count(ctx context.Context, command string) (int64, error) {
	conn, err := l.db.Take(ctx)
	defer l.db.Put(conn)
	if err != nil {
		return 0, fmt.Errorf("couldn't get connection to count usage: %w", err)
	}
	st, err := conn.Prepare(`SELECT COUNT(*) FROM usage WHERE command = ?`)
	if err != nil {
		return 0, fmt.Errorf("couldn't prepare statement to count usage: %w", err)
	}
	st.BindText(1, command)
	n, err := sqlitex.ResultInt64(st)
	if err != nil {
		return 0, fmt.Errorf("couldn't count usage: %w", err)
	}
	return n, nil
}
