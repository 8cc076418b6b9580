package source

import (
	"archive/zip"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/sells-group/revcollect/internal/review"
)

// FewSum archive column names.
const (
	ColGroupID    = "group_id"
	ColReviewText = "review_text"
)

// FewSum returns a stream of reviews from a FewSum zip archive. CSV members
// are read in lexicographic name order. The entity id is the part of group_id
// before the first "_". FewSum rows carry no reviewer, so each row gets a
// synthetic reviewer id from a counter that starts at 1 and runs across the
// whole archive. Emitted field names follow domain d's schema.
func FewSum(archivePath string, d review.Domain, opts TableOptions) (Seq, error) {
	if err := CheckInput(archivePath, ExtZip); err != nil {
		return nil, err
	}
	schema := review.SchemaFor(d)
	opts.Required = append(append([]string(nil), opts.Required...), ColGroupID, ColReviewText)

	return func(yield func(review.Record, error) bool) {
		zr, err := zip.OpenReader(archivePath)
		if err != nil {
			yield(review.Record{}, malformed(err, "source: open archive %s", archivePath))
			return
		}
		defer zr.Close() //nolint:errcheck

		members := tableMembers(zr.File)
		counter := 0

		for _, zf := range members {
			if !readMember(zf, archivePath, schema, opts, &counter, yield) {
				return
			}
		}
	}, nil
}

// tableMembers returns the CSV members of an archive sorted by name.
func tableMembers(files []*zip.File) []*zip.File {
	var members []*zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.ToLower(path.Ext(f.Name)) != ExtCSV {
			continue
		}
		members = append(members, f)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Name < members[j].Name
	})
	return members
}

// readMember yields the rows of one archive member. It returns false when
// iteration must stop, either because the consumer broke out or on error.
func readMember(zf *zip.File, archivePath string, schema review.Schema, opts TableOptions, counter *int, yield func(review.Record, error) bool) bool {
	rc, err := zf.Open()
	if err != nil {
		yield(review.Record{}, malformed(err, "source: open %s in %s", zf.Name, archivePath))
		return false
	}
	defer rc.Close() //nolint:errcheck

	for row, err := range ReadTable(rc, opts) {
		if err != nil {
			yield(review.Record{}, malformed(err, "source: %s in %s", zf.Name, archivePath))
			return false
		}

		*counter++
		entity, _, _ := strings.Cut(row[ColGroupID], "_")
		text := row[ColReviewText]

		rec := review.Record{
			EntityID:   entity,
			ReviewerID: strconv.Itoa(*counter),
			Text:       text,
			Fields: map[string]any{
				schema.Entity:   entity,
				schema.Text:     text,
				schema.Reviewer: *counter,
			},
		}
		if !yield(rec, nil) {
			return false
		}
	}
	return true
}
