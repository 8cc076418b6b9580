// Package collect groups review streams by entity, drops duplicate reviewers
// and texts per entity, and sorts the survivors into length-filtered source
// and target pools.
package collect

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/revcollect/internal/review"
	"github.com/sells-group/revcollect/internal/source"
	"github.com/sells-group/revcollect/internal/textclean"
)

// Tokenizer splits text into tokens. Only the token count is used.
type Tokenizer func(text string) []string

// Options configures a collection run.
type Options struct {
	Source       Range
	Target       Range
	VerifiedOnly bool           // gzip product sources only
	Limit        *int           // cap on admitted records across all inputs; nil = no cap
	Tokenizer    Tokenizer      // nil = strings.Fields
	Cleaner      textclean.Func // nil = textclean.Clean

	// textOnly drops records on repeated text alone; reviewer ids may repeat.
	textOnly bool
}

func (o Options) tokenizer() Tokenizer {
	if o.Tokenizer == nil {
		return strings.Fields
	}
	return o.Tokenizer
}

// Engine admits records one at a time into a Collection. An Engine holds the
// duplicate state for a single run and is not safe for concurrent use.
type Engine struct {
	opts     Options
	tok      Tokenizer
	coll     *Collection
	index    int
	log      *zap.Logger
	progress rate.Sometimes
}

// NewEngine returns an Engine with an empty collection.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:     opts,
		tok:      opts.tokenizer(),
		coll:     newCollection(),
		log:      zap.L().With(zap.String("component", "collect")),
		progress: rate.Sometimes{Interval: 10 * time.Second},
	}
}

// Done reports whether the admitted-record limit has been reached.
func (e *Engine) Done() bool {
	return e.opts.Limit != nil && e.coll.Stats.Admitted >= *e.opts.Limit
}

// Add offers one record to the engine. Its stream index is assigned from a
// running counter. It returns false if the record was discarded as a
// duplicate of an earlier reviewer or text for the same entity (text only for
// business reviews).
func (e *Engine) Add(rec review.Record) bool {
	idx := e.index
	e.index++
	e.coll.Stats.Scanned++

	g := e.coll.group(rec.EntityID)
	if !e.admit(g, rec) {
		e.coll.Stats.Duplicates++
		return false
	}

	ntokens := len(e.tok(rec.Text))
	if e.opts.Source.Contains(ntokens) {
		g.Source = append(g.Source, Entry{Index: idx, Record: rec})
	}
	if e.opts.Target.Contains(ntokens) {
		g.Target = append(g.Target, Entry{Index: idx, Record: rec})
	}
	e.coll.Stats.Admitted++

	e.progress.Do(func() {
		e.log.Info("collect: progress",
			zap.Int("scanned", e.coll.Stats.Scanned),
			zap.Int("admitted", e.coll.Stats.Admitted),
			zap.Int("duplicates", e.coll.Stats.Duplicates),
		)
	})
	return true
}

func (e *Engine) admit(g *EntityGroup, rec review.Record) bool {
	if e.opts.textOnly {
		return g.seen.AdmitText(rec.Text)
	}
	return g.seen.Admit(rec.ReviewerID, rec.Text)
}

// Consume feeds every record of seq to Add, applying prepare first when it is
// non-nil. It stops without reading further once the limit is reached, and
// returns the first stream error or context error.
func (e *Engine) Consume(ctx context.Context, seq source.Seq, prepare func(*review.Record)) error {
	if e.Done() {
		return nil
	}
	for rec, err := range seq {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "collect: context cancelled")
		}
		if prepare != nil {
			prepare(&rec)
		}
		e.Add(rec)
		if e.Done() {
			return nil
		}
	}
	return nil
}

// Result finalizes and returns the collection. Entities whose admitted
// records fell outside both ranges are left out. The Engine must not be used
// afterwards.
func (e *Engine) Result() *Collection {
	e.coll.Stats.LimitReached = e.Done()
	e.coll.finalize()
	e.log.Info("collect: complete",
		zap.Int("scanned", e.coll.Stats.Scanned),
		zap.Int("admitted", e.coll.Stats.Admitted),
		zap.Int("duplicates", e.coll.Stats.Duplicates),
		zap.Int("entities", e.coll.Stats.Entities),
		zap.Int("source_entries", e.coll.Stats.SourceEntries),
		zap.Int("target_entries", e.coll.Stats.TargetEntries),
		zap.Bool("limit_reached", e.coll.Stats.LimitReached),
	)
	return e.coll
}
