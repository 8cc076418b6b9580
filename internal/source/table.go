package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"iter"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// TableOptions configures the header-aware table reader.
type TableOptions struct {
	Delimiter  rune     // 0 = sniff from the header line (tab if present, else ',')
	Comment    rune     // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
	Charset    string   // optional source charset, e.g. "windows-1252"
	Required   []string // header columns that must be present
}

// Row is one table row keyed by header name.
type Row map[string]string

// ReadTable reads a delimited table whose first line is a header and yields one
// Row per data line. Every data line must have as many fields as the header.
func ReadTable(r io.Reader, opts TableOptions) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if opts.Charset != "" {
			enc, err := htmlindex.Get(opts.Charset)
			if err != nil {
				yield(nil, eris.Wrapf(err, "table: unsupported charset %q", opts.Charset))
				return
			}
			r = enc.NewDecoder().Reader(r)
		}

		br := bufio.NewReader(r)
		delim := opts.Delimiter
		if delim == 0 {
			delim = sniffDelimiter(br)
		}

		reader := csv.NewReader(br)
		reader.Comma = delim
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.ReuseRecord = true

		header, err := reader.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(nil, eris.Wrap(err, "table: read header"))
			return
		}
		header = append([]string(nil), header...)
		if len(header) > 0 {
			header[0] = strings.TrimPrefix(header[0], "\ufeff")
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		if err := requireColumns(header, opts.Required); err != nil {
			yield(nil, err)
			return
		}

		for {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, eris.Wrap(err, "table: read row"))
				return
			}

			row := make(Row, len(header))
			for i, name := range header {
				v := record[i]
				if opts.TrimSpace {
					v = strings.TrimSpace(v)
				}
				row[name] = v
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// sniffDelimiter peeks at the first line without consuming it.
func sniffDelimiter(br *bufio.Reader) rune {
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.IndexByte(head, '\t') >= 0 {
		return '\t'
	}
	return ','
}

func requireColumns(header, required []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, want := range required {
		if !present[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("table: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}
