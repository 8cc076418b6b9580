package source

import (
	"compress/gzip"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revcollect/internal/dedup"
	"github.com/sells-group/revcollect/internal/review"
	"github.com/sells-group/revcollect/internal/textclean"
)

// GzipOptions configures the gzip product-review adapter.
type GzipOptions struct {
	CleanText    bool
	VerifiedOnly bool
	Cleaner      textclean.Func // nil = textclean.Clean
}

// Gzip returns a stream of product reviews from a gzip-compressed,
// line-delimited JSON file. Records without review text are skipped, as are
// unverified records when VerifiedOnly is set. The stream keeps its own
// per-entity duplicate tracker, so a reviewer or an exact text is yielded at
// most once per product. Helpfulness counts are parsed into ints (0 if absent).
func Gzip(path string, opts GzipOptions) (Seq, error) {
	if err := CheckInput(path, ExtGzip); err != nil {
		return nil, err
	}
	schema := review.ProductSchema
	clean := cleaner(opts.Cleaner)

	return func(yield func(review.Record, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(review.Record{}, eris.Wrapf(err, "source: open %s", path))
			return
		}
		defer f.Close() //nolint:errcheck

		zr, err := gzip.NewReader(f)
		if err != nil {
			yield(review.Record{}, malformed(err, "source: gzip header %s", path))
			return
		}
		defer zr.Close() //nolint:errcheck

		tracker := dedup.NewTracker()

		for fields, err := range decodeLines(zr, path) {
			if err != nil {
				yield(review.Record{}, err)
				return
			}

			if text, ok := fields[schema.Text]; !ok || text == nil {
				continue
			}
			if opts.VerifiedOnly && !review.Truthy(fields[schema.Verified]) {
				continue
			}

			rec, err := review.Normalize(fields, schema)
			if err != nil {
				yield(review.Record{}, malformed(err, "source: %s", path))
				return
			}

			if !tracker.Admit(rec.EntityID, rec.ReviewerID, rec.Text) {
				continue
			}

			helpful, err := review.ParseCount(fields[schema.Helpful])
			if err != nil {
				yield(review.Record{}, malformed(err, "source: %s reviewer %s", path, rec.ReviewerID))
				return
			}
			fields[schema.Helpful] = helpful

			if opts.CleanText {
				if title, ok := rec.Title(schema); ok {
					fields[schema.Title] = clean(title, textclean.Options{})
				}
				rec.SetText(schema, clean(rec.Text, textclean.Options{}))
			}

			if !yield(rec, nil) {
				return
			}
		}
	}, nil
}
