package source

import (
	"errors"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revcollect/internal/review"
	"github.com/sells-group/revcollect/internal/textclean"
)

// JSONLinesOptions configures the line-delimited JSON business-review adapter.
type JSONLinesOptions struct {
	CleanText bool
	Cleaner   textclean.Func // nil = textclean.Clean
}

// JSONLines returns a stream of business reviews, one JSON object per line.
// When CleanText is set, review text is cleaned with new-line removal and
// multi-space collapsing. A line that is not a JSON object is fatal.
func JSONLines(path string, opts JSONLinesOptions) (Seq, error) {
	if err := CheckInput(path); err != nil {
		return nil, err
	}
	schema := review.BusinessSchema
	clean := cleaner(opts.Cleaner)

	return func(yield func(review.Record, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			yield(review.Record{}, eris.Wrapf(err, "source: open %s", path))
			return
		}
		defer f.Close() //nolint:errcheck

		for fields, err := range decodeLines(f, path) {
			if err != nil {
				yield(review.Record{}, err)
				return
			}

			rec, err := review.Normalize(fields, schema)
			if errors.Is(err, review.ErrMissingText) {
				continue
			}
			if err != nil {
				yield(review.Record{}, malformed(err, "source: %s", path))
				return
			}

			if opts.CleanText {
				rec.SetText(schema, clean(rec.Text, textclean.Options{
					RemoveNewLines: true,
					CollapseSpaces: true,
				}))
			}

			if !yield(rec, nil) {
				return
			}
		}
	}, nil
}
