package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"iter"

	"github.com/rotisserie/eris"
)

// decodeLines decodes one JSON object per line of r. Blank lines are skipped.
// Lines of any length are supported. name is used in error messages only.
func decodeLines(r io.Reader, name string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		br := bufio.NewReaderSize(r, 64*1024)
		lineNum := 0
		for {
			line, readErr := br.ReadBytes('\n')
			if readErr != nil && readErr != io.EOF {
				yield(nil, malformed(readErr, "source: read %s", name))
				return
			}
			lineNum++

			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				fields, err := decodeObject(line)
				if err != nil {
					yield(nil, malformed(err, "source: %s line %d", name, lineNum))
					return
				}
				if !yield(fields, nil) {
					return
				}
			}

			if readErr == io.EOF {
				return
			}
		}
	}
}

// decodeObject decodes exactly one JSON object. Numbers are kept as json.Number.
func decodeObject(line []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, eris.New("expected JSON object, got null")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, eris.New("trailing data after JSON object")
	}
	return fields, nil
}
