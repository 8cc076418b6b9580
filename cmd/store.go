package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revcollect/internal/config"
	"github.com/sells-group/revcollect/internal/runlog"
)

// openRunLog opens and migrates the configured run log. Driver "none"
// returns a nil store, which disables run bookkeeping.
func openRunLog(ctx context.Context, sc config.StoreConfig) (runlog.Store, error) {
	var (
		st  runlog.Store
		err error
	)
	switch sc.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		st, err = runlog.NewSQLite(sc.DatabaseURL)
	case "postgres":
		st, err = runlog.NewPostgres(ctx, sc.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func closeRunLog(st runlog.Store) {
	if st != nil {
		st.Close() //nolint:errcheck
	}
}
