package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/revcollect/internal/review"
)

func TestFewSum_SortedMembersAndCounter(t *testing.T) {
	// part2 is written first; reading must still follow name order.
	zipPath := createTestZIP(t,
		zipMember{"part2.csv", "group_id,review_text\nX_0,second file\n"},
		zipMember{"part1.csv", "group_id,review_text\nX_0,first file\n"},
	)
	seq, err := FewSum(zipPath, review.DomainProduct, TableOptions{})
	require.NoError(t, err)

	recs, err := collectRecords(t, seq)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "X", recs[0].EntityID)
	assert.Equal(t, "first file", recs[0].Text)
	assert.Equal(t, "1", recs[0].ReviewerID)
	assert.Equal(t, 1, recs[0].Fields["reviewerID"])

	assert.Equal(t, "X", recs[1].EntityID)
	assert.Equal(t, "second file", recs[1].Text)
	assert.Equal(t, "2", recs[1].ReviewerID)
}

func TestFewSum_SkipsNonCSVMembers(t *testing.T) {
	zipPath := createTestZIP(t,
		zipMember{"README.txt", "not a table"},
		zipMember{"data/train.csv", "group_id,review_text\nB1_3,hello\nB2_0,world\n"},
	)
	seq, err := FewSum(zipPath, review.DomainProduct, TableOptions{})
	require.NoError(t, err)

	recs, err := collectRecords(t, seq)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "B1", recs[0].EntityID)
	assert.Equal(t, "B2", recs[1].EntityID)
}

func TestFewSum_BusinessSchema(t *testing.T) {
	zipPath := createTestZIP(t,
		zipMember{"test.csv", "group_id\treview_text\nbiz_1\tnice staff\n"},
	)
	seq, err := FewSum(zipPath, review.DomainBusiness, TableOptions{})
	require.NoError(t, err)

	recs, err := collectRecords(t, seq)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "biz", recs[0].Fields["business_id"])
	assert.Equal(t, "nice staff", recs[0].Fields["text"])
	assert.Equal(t, 1, recs[0].Fields["review_id"])
}

func TestFewSum_GroupIDWithoutUnderscore(t *testing.T) {
	zipPath := createTestZIP(t, zipMember{"a.csv", "group_id,review_text\nPLAIN,t\n"})
	seq, err := FewSum(zipPath, review.DomainProduct, TableOptions{})
	require.NoError(t, err)

	recs, err := collectRecords(t, seq)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "PLAIN", recs[0].EntityID)
}

func TestFewSum_MissingColumnIsMalformed(t *testing.T) {
	zipPath := createTestZIP(t, zipMember{"a.csv", "group_id,text\nX_0,t\n"})
	seq, err := FewSum(zipPath, review.DomainProduct, TableOptions{})
	require.NoError(t, err)

	_, err = collectRecords(t, seq)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "review_text")
}

func TestFewSum_RaggedRowIsMalformed(t *testing.T) {
	zipPath := createTestZIP(t, zipMember{"a.csv", "group_id,review_text\nX_0,ok\nX_1\n"})
	seq, err := FewSum(zipPath, review.DomainProduct, TableOptions{})
	require.NoError(t, err)

	recs, err := collectRecords(t, seq)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Len(t, recs, 1)
}

func TestFewSum_NotAnArchive(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.zip")
	require.NoError(t, os.WriteFile(p, []byte("nope"), 0o644))

	seq, err := FewSum(p, review.DomainProduct, TableOptions{})
	require.NoError(t, err)
	_, err = collectRecords(t, seq)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestFewSum_MissingArchive(t *testing.T) {
	_, err := FewSum(filepath.Join(t.TempDir(), "missing.zip"), review.DomainProduct, TableOptions{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestFewSum_EarlyBreak(t *testing.T) {
	zipPath := createTestZIP(t,
		zipMember{"a.csv", "group_id,review_text\nX_0,one\nX_0,two\n"},
		zipMember{"b.csv", "group_id,review_text\nY_0,three\n"},
	)
	seq, err := FewSum(zipPath, review.DomainProduct, TableOptions{})
	require.NoError(t, err)

	var got []string
	for rec, err := range seq {
		require.NoError(t, err)
		got = append(got, rec.Text)
		if len(got) == 1 {
			break
		}
	}
	assert.Equal(t, []string{"one"}, got)
}
