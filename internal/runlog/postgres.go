package runlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/revcollect/internal/collect"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS collect_runs (
	id           TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	inputs       JSONB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	stats        JSONB,
	error        TEXT
);

CREATE INDEX IF NOT EXISTS idx_collect_runs_status ON collect_runs(status);
CREATE INDEX IF NOT EXISTS idx_collect_runs_started_at ON collect_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Start(ctx context.Context, domain string, inputs []string) (*Entry, error) {
	inputsJSON, err := marshalInputs(inputs)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO collect_runs (id, domain, inputs, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, domain, inputsJSON, string(StatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &Entry{
		ID:        id,
		Domain:    domain,
		Inputs:    inputs,
		Status:    StatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id string, stats collect.Stats) error {
	statsJSON, err := marshalStats(stats)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE collect_runs SET status = $1, completed_at = now(), stats = $2 WHERE id = $3`,
		string(StatusComplete), statsJSON, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: complete run %s", id)
	}
	return nil
}

func (s *PostgresStore) Fail(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE collect_runs SET status = $1, completed_at = now(), error = $2 WHERE id = $3`,
		string(StatusFailed), errMsg, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: fail run %s", id)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, domain, inputs, status, started_at, completed_at, stats, error FROM collect_runs WHERE id = $1`,
		id,
	)
	e, err := scanPostgresEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, domain, inputs, status, started_at, completed_at, stats, error FROM collect_runs
		 WHERE ($1 = '' OR status = $1) AND ($2 = '' OR domain = $2)
		 ORDER BY started_at DESC LIMIT $3`,
		string(filter.Status), filter.Domain, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanPostgresEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPostgresEntry(row scannable) (*Entry, error) {
	var (
		e           Entry
		status      string
		inputs      []byte
		completedAt *time.Time
		stats       []byte
		errMsg      *string
	)
	if err := row.Scan(&e.ID, &e.Domain, &inputs, &status, &e.StartedAt, &completedAt, &stats, &errMsg); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	e.CompletedAt = completedAt
	if errMsg != nil {
		e.Error = *errMsg
	}
	if err := decodeColumns(&e, inputs, stats); err != nil {
		return nil, err
	}
	return &e, nil
}
