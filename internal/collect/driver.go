package collect

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/revcollect/internal/review"
	"github.com/sells-group/revcollect/internal/source"
)

// ReadSourceReviews reads product reviews from one or more inputs, in order.
// ".zip" inputs are read as FewSum archives; every other input must be a
// ".gz" review dump, which is cleaned and optionally restricted to verified
// reviews. Duplicate state and the limit span all inputs. All paths are
// checked before any input is read. Entry indices count records across all
// inputs in order; they do not restart at 0 for each file.
func ReadSourceReviews(ctx context.Context, paths []string, opts Options) (*Collection, error) {
	if len(paths) == 0 {
		return nil, eris.New("collect: no input paths")
	}

	seqs := make([]source.Seq, 0, len(paths))
	for _, p := range paths {
		seq, err := openProduct(p, opts)
		if err != nil {
			return nil, eris.Wrap(err, "collect: open source reviews")
		}
		seqs = append(seqs, seq)
	}

	eng := NewEngine(opts)
	for i, seq := range seqs {
		if eng.Done() {
			zap.L().Debug("collect: limit reached, skipping remaining inputs",
				zap.Strings("skipped", paths[i:]),
			)
			break
		}
		zap.L().Info("collect: reading input", zap.String("path", paths[i]), zap.String("domain", string(review.DomainProduct)))
		if err := eng.Consume(ctx, seq, nil); err != nil {
			return nil, eris.Wrapf(err, "collect: read %s", paths[i])
		}
	}
	return eng.Result(), nil
}

// ReadBusinessReviews reads business reviews from a FewSum archive (".zip")
// or a line-delimited JSON file (any other extension). Review text is copied
// into the canonical text field before grouping. Duplicates are detected on
// review text only, so one reviewer may contribute several reviews of a
// business.
func ReadBusinessReviews(ctx context.Context, path string, opts Options) (*Collection, error) {
	seq, err := openBusiness(path, opts)
	if err != nil {
		return nil, eris.Wrap(err, "collect: open business reviews")
	}
	opts.textOnly = true

	eng := NewEngine(opts)
	zap.L().Info("collect: reading input", zap.String("path", path), zap.String("domain", string(review.DomainBusiness)))
	if err := eng.Consume(ctx, seq, (*review.Record).Canonicalize); err != nil {
		return nil, eris.Wrapf(err, "collect: read %s", path)
	}
	return eng.Result(), nil
}

// Read dispatches to the driver for domain d. Business reads accept exactly
// one path.
func Read(ctx context.Context, d review.Domain, paths []string, opts Options) (*Collection, error) {
	switch d {
	case review.DomainProduct:
		return ReadSourceReviews(ctx, paths, opts)
	case review.DomainBusiness:
		if len(paths) != 1 {
			return nil, eris.Errorf("collect: business reviews take exactly one path, got %d", len(paths))
		}
		return ReadBusinessReviews(ctx, paths[0], opts)
	default:
		return nil, eris.Errorf("collect: unknown domain %q", d)
	}
}

func openProduct(path string, opts Options) (source.Seq, error) {
	if source.Ext(path) == source.ExtZip {
		return source.FewSum(path, review.DomainProduct, source.TableOptions{})
	}
	return source.Gzip(path, source.GzipOptions{
		CleanText:    true,
		VerifiedOnly: opts.VerifiedOnly,
		Cleaner:      opts.Cleaner,
	})
}

func openBusiness(path string, opts Options) (source.Seq, error) {
	if source.Ext(path) == source.ExtZip {
		return source.FewSum(path, review.DomainBusiness, source.TableOptions{})
	}
	return source.JSONLines(path, source.JSONLinesOptions{
		CleanText: true,
		Cleaner:   opts.Cleaner,
	})
}
