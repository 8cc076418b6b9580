// Package source provides lazy record adapters for the supported review input
// formats: gzip line-delimited JSON, FewSum zip archives of CSV tables, and
// plain line-delimited JSON.
//
// Every adapter returns an iter.Seq2 that opens its file when ranged over and
// closes it on every exit path, including an early break by the consumer.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/revcollect/internal/review"
	"github.com/sells-group/revcollect/internal/textclean"
)

// Input extensions recognized by the adapters.
const (
	ExtGzip = ".gz"
	ExtZip  = ".zip"
	ExtCSV  = ".csv"
)

var (
	// ErrMissingInput reports a path that does not exist or has the wrong
	// extension for the requested adapter.
	ErrMissingInput = eris.New("source: missing input")

	// ErrMalformed reports a record that cannot be decoded into the expected shape.
	ErrMalformed = eris.New("source: malformed record")
)

// Seq is a lazy, forward-only stream of normalized records.
type Seq = func(yield func(review.Record, error) bool)

// Ext returns the lower-cased final extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// CheckInput verifies that path is an existing regular file and, when exts is
// non-empty, that its extension is one of them.
func CheckInput(path string, exts ...string) error {
	info, err := os.Stat(path)
	if err != nil {
		return eris.Wrapf(ErrMissingInput, "source: stat %s: %v", path, err)
	}
	if info.IsDir() {
		return eris.Wrapf(ErrMissingInput, "source: %s is a directory", path)
	}
	if len(exts) == 0 {
		return nil
	}
	ext := Ext(path)
	for _, want := range exts {
		if ext == want {
			return nil
		}
	}
	return eris.Wrapf(ErrMissingInput, "source: %s: extension %q, want %s", path, ext, strings.Join(exts, " or "))
}

// malformed tags err as ErrMalformed while keeping it in the chain.
func malformed(err error, format string, args ...any) error {
	return eris.Wrap(fmt.Errorf("%w: %w", ErrMalformed, err), fmt.Sprintf(format, args...))
}

// cleaner returns fn, or the default cleaner when fn is nil.
func cleaner(fn textclean.Func) textclean.Func {
	if fn == nil {
		return textclean.Clean
	}
	return fn
}
