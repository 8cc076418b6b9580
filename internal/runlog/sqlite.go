package runlog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/revcollect/internal/collect"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS collect_runs (
	id           TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	inputs       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME,
	stats        TEXT,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_collect_runs_status ON collect_runs(status);
CREATE INDEX IF NOT EXISTS idx_collect_runs_started_at ON collect_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Start(ctx context.Context, domain string, inputs []string) (*Entry, error) {
	inputsJSON, err := marshalInputs(inputs)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collect_runs (id, domain, inputs, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, domain, inputsJSON, string(StatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Entry{
		ID:        id,
		Domain:    domain,
		Inputs:    inputs,
		Status:    StatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) Complete(ctx context.Context, id string, stats collect.Stats) error {
	statsJSON, err := marshalStats(stats)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE collect_runs SET status = ?, completed_at = ?, stats = ? WHERE id = ?`,
		string(StatusComplete), time.Now().UTC(), statsJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) Fail(ctx context.Context, id string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE collect_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(StatusFailed), time.Now().UTC(), errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, inputs, status, started_at, completed_at, stats, error FROM collect_runs WHERE id = ?`,
		id,
	)
	e, err := scanSQLiteEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}
	return e, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := `SELECT id, domain, inputs, status, started_at, completed_at, stats, error FROM collect_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var entries []Entry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteEntry(row scannable) (*Entry, error) {
	var (
		e           Entry
		status      string
		inputs      string
		completedAt sql.NullTime
		stats       sql.NullString
		errMsg      sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Domain, &inputs, &status, &e.StartedAt, &completedAt, &stats, &errMsg); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}
	e.Error = errMsg.String
	if err := decodeColumns(&e, []byte(inputs), []byte(stats.String)); err != nil {
		return nil, err
	}
	return &e, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", id)
	}
	return nil
}
