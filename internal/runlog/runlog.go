// Package runlog records collection runs: what was read, when, and how many
// records were admitted, in SQLite or Postgres.
package runlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revcollect/internal/collect"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Entry is one recorded collection run.
type Entry struct {
	ID          string         `json:"id"`
	Domain      string         `json:"domain"`
	Inputs      []string       `json:"inputs"`
	Status      Status         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Stats       *collect.Stats `json:"stats,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Duration returns how long the run took, or zero if it has not finished.
func (e Entry) Duration() time.Duration {
	if e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// Filter narrows List results.
type Filter struct {
	Status Status `json:"status,omitempty"`
	Domain string `json:"domain,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = eris.New("runlog: run not found")

// Store persists run entries.
type Store interface {
	Start(ctx context.Context, domain string, inputs []string) (*Entry, error)
	Complete(ctx context.Context, id string, stats collect.Stats) error
	Fail(ctx context.Context, id string, errMsg string) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, filter Filter) ([]Entry, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Track wraps a collection run with Start and Complete/Fail bookkeeping. A nil
// store runs fn untracked. Bookkeeping failures are logged, never returned;
// the error returned is fn's.
func Track(ctx context.Context, st Store, domain string, inputs []string, fn func(context.Context) (*collect.Collection, error)) (*collect.Collection, string, error) {
	if st == nil {
		coll, err := fn(ctx)
		return coll, "", err
	}

	log := zap.L().With(zap.String("domain", domain))
	entry, err := st.Start(ctx, domain, inputs)
	if err != nil {
		log.Warn("runlog: start failed, running untracked", zap.Error(err))
		coll, runErr := fn(ctx)
		return coll, "", runErr
	}
	log = log.With(zap.String("run_id", entry.ID))

	coll, runErr := fn(ctx)
	if runErr != nil {
		if err := st.Fail(ctx, entry.ID, runErr.Error()); err != nil {
			log.Warn("runlog: record failure", zap.Error(err))
		}
		return nil, entry.ID, runErr
	}

	if err := st.Complete(ctx, entry.ID, coll.Stats); err != nil {
		log.Warn("runlog: record completion", zap.Error(err))
	}
	return coll, entry.ID, nil
}

func marshalInputs(inputs []string) (string, error) {
	if inputs == nil {
		inputs = []string{}
	}
	b, err := json.Marshal(inputs)
	if err != nil {
		return "", eris.Wrap(err, "runlog: marshal inputs")
	}
	return string(b), nil
}

func marshalStats(stats collect.Stats) (string, error) {
	b, err := json.Marshal(stats)
	if err != nil {
		return "", eris.Wrap(err, "runlog: marshal stats")
	}
	return string(b), nil
}

// decodeColumns fills the JSON-encoded columns of e.
func decodeColumns(e *Entry, inputs []byte, stats []byte) error {
	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &e.Inputs); err != nil {
			return eris.Wrap(err, "runlog: decode inputs")
		}
	}
	if len(stats) > 0 {
		var s collect.Stats
		if err := json.Unmarshal(stats, &s); err != nil {
			return eris.Wrap(err, "runlog: decode stats")
		}
		e.Stats = &s
	}
	return nil
}
