package source

import (
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/revcollect/internal/review"
)

// zipMember is a named archive entry; members are written in slice order.
type zipMember struct {
	name    string
	content string
}

func createTestZIP(t *testing.T, members ...zipMember) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "fewsum.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for _, m := range members {
		fw, err := w.Create(m.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(m.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func createTestGzip(t *testing.T, lines ...string) string {
	t.Helper()
	gzPath := filepath.Join(t.TempDir(), "reviews.json.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return gzPath
}

func createTestLines(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "reviews.json")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return p
}

// collectRecords drains seq and returns the records and the first error.
func collectRecords(t *testing.T, seq Seq) ([]review.Record, error) {
	t.Helper()
	var recs []review.Record
	for rec, err := range seq {
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
