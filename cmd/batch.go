package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/revcollect/internal/collect"
	"github.com/sells-group/revcollect/internal/config"
	"github.com/sells-group/revcollect/internal/review"
	"github.com/sells-group/revcollect/internal/runlog"
)

var batchConcurrency int

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the collect jobs listed under batch.jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrent = batchConcurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		st, err := openRunLog(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer closeRunLog(st)

		results, err := runBatch(ctx, cfg.Batch.Jobs, cfg.Collect, cfg.Batch.MaxConcurrent, st, collect.Read)
		if err != nil {
			return err
		}
		formatBatchResults(os.Stdout, results)

		if n := countFailed(results); n > 0 {
			return eris.Errorf("batch: %d of %d jobs failed", n, len(results))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max jobs run at once (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// readFunc is the callback signature for one collection run.
type readFunc func(ctx context.Context, d review.Domain, paths []string, opts collect.Options) (*collect.Collection, error)

// jobResult is the outcome of one batch job.
type jobResult struct {
	Name   string
	Domain string
	RunID  string
	Stats  collect.Stats
	Err    error
}

// jobOptions resolves a job's options, falling back to defaults for unset fields.
func jobOptions(job config.Job, defaults config.CollectConfig) collect.Options {
	c := defaults
	pick := func(v *int, dst **int) {
		if v != nil {
			*dst = v
		}
	}
	pick(job.SrcMin, &c.SrcMin)
	pick(job.SrcMax, &c.SrcMax)
	pick(job.TgtMin, &c.TgtMin)
	pick(job.TgtMax, &c.TgtMax)
	pick(job.Limit, &c.Limit)
	if job.VerifiedOnly != nil {
		c.VerifiedOnly = *job.VerifiedOnly
	}
	return optionsFrom(c)
}

// runBatch runs jobs concurrently, at most concurrency at a time. A failed
// job is recorded in its result and does not stop the others. Results keep
// the order of jobs.
func runBatch(ctx context.Context, jobs []config.Job, defaults config.CollectConfig, concurrency int, st runlog.Store, read readFunc) ([]jobResult, error) {
	if len(jobs) == 0 {
		zap.L().Info("no batch jobs configured")
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("jobs", len(jobs)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]jobResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, job := range jobs {
		g.Go(func() error {
			res := &results[i]
			res.Name = job.Name
			res.Domain = job.Domain
			log := zap.L().With(zap.String("job", job.Name))

			d, err := review.ParseDomain(job.Domain)
			if err != nil {
				failed.Add(1)
				res.Err = err
				log.Error("batch job rejected", zap.Error(err))
				return nil
			}

			opts := jobOptions(job, defaults)
			coll, runID, err := runlog.Track(gctx, st, string(d), job.Paths, func(ctx context.Context) (*collect.Collection, error) {
				return read(ctx, d, job.Paths, opts)
			})
			res.RunID = runID
			if err != nil {
				failed.Add(1)
				res.Err = err
				log.Error("batch job failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			res.Stats = coll.Stats
			log.Info("batch job complete",
				zap.Int("admitted", coll.Stats.Admitted),
				zap.Int("entities", coll.Stats.Entities),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}

func countFailed(results []jobResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// formatBatchResults writes one row per job to out.
func formatBatchResults(out io.Writer, results []jobResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "JOB\tDOMAIN\tRUN\tSTATUS\tADMITTED\tENTITIES\tERROR")
	_, _ = fmt.Fprintln(w, "---\t------\t---\t------\t--------\t--------\t-----")
	for _, r := range results {
		status := string(runlog.StatusComplete)
		errMsg := ""
		if r.Err != nil {
			status = string(runlog.StatusFailed)
			errMsg = r.Err.Error()
			if len(errMsg) > 60 {
				errMsg = errMsg[:57] + "..."
			}
			errMsg = strings.ReplaceAll(errMsg, "\t", " ")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.Name,
			r.Domain,
			truncateID(r.RunID),
			status,
			r.Stats.Admitted,
			r.Stats.Entities,
			errMsg,
		)
	}
	_ = w.Flush()
}
