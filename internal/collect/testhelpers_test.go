package collect

import (
	"archive/zip"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// amazonLine renders one product review as a JSON line.
func amazonLine(t *testing.T, asin, reviewer, text string, extra map[string]any) string {
	t.Helper()
	m := map[string]any{"asin": asin, "reviewerID": reviewer, "reviewText": text}
	for k, v := range extra {
		m[k] = v
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return string(b)
}

// yelpLine renders one business review as a JSON line.
func yelpLine(t *testing.T, business, reviewID, text string) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"business_id": business, "review_id": reviewID, "text": text, "stars": 4})
	require.NoError(t, err)
	return string(b)
}

func writeGzip(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return p
}

func writeLines(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return p
}

// writeZIP writes members in the given order; names and contents alternate.
func writeZIP(t *testing.T, dir, name string, nameContent ...string) string {
	t.Helper()
	require.Zero(t, len(nameContent)%2)
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for i := 0; i < len(nameContent); i += 2 {
		fw, err := w.Create(nameContent[i])
		require.NoError(t, err)
		_, err = fw.Write([]byte(nameContent[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return p
}

// words returns a text of n distinct tokens tagged with prefix.
func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix + string(rune('a'+i%26))
	}
	return strings.Join(parts, " ")
}
