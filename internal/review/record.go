// Package review defines the canonical review record and the per-domain
// field schemas that native source formats are normalized through.
package review

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Domain selects which dataset family a source belongs to.
type Domain string

const (
	// DomainProduct is the review-entity domain (Amazon product reviews).
	DomainProduct Domain = "amazon"
	// DomainBusiness is the business-entity domain (Yelp business reviews).
	DomainBusiness Domain = "yelp"
)

// ParseDomain converts a CLI/config string into a Domain.
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "amazon", "product", "source":
		return DomainProduct, nil
	case "yelp", "business":
		return DomainBusiness, nil
	default:
		return "", eris.Errorf("unknown domain: %q (valid: amazon, yelp)", s)
	}
}

// Schema maps the semantic roles of a review onto a domain's native field names.
type Schema struct {
	Entity   string
	Reviewer string
	Text     string
	Title    string // empty if the domain has no title
	Helpful  string // empty if the domain has no helpfulness count
	Verified string // empty if the domain has no verification flag
	Rating   string
}

var (
	// ProductSchema holds Amazon review field names.
	ProductSchema = Schema{
		Entity:   "asin",
		Reviewer: "reviewerID",
		Text:     "reviewText",
		Title:    "summary",
		Helpful:  "vote",
		Verified: "verified",
		Rating:   "overall",
	}

	// BusinessSchema holds Yelp review field names.
	BusinessSchema = Schema{
		Entity:   "business_id",
		Reviewer: "review_id",
		Text:     "text",
		Rating:   "stars",
	}
)

// SchemaFor returns the field schema for d.
func SchemaFor(d Domain) Schema {
	if d == DomainBusiness {
		return BusinessSchema
	}
	return ProductSchema
}

// CanonicalTextField is the text field name every record carries after
// normalization, regardless of its source domain.
var CanonicalTextField = ProductSchema.Text

// Record is a single review after normalization. Fields keeps every decoded
// native field; EntityID, ReviewerID and Text are the canonical views the
// grouping engine works on.
type Record struct {
	EntityID   string         `json:"entity_id"`
	ReviewerID string         `json:"reviewer_id"`
	Text       string         `json:"text"`
	Fields     map[string]any `json:"fields"`
}

// Title returns the review title under schema s, if present.
func (r Record) Title(s Schema) (string, bool) {
	if s.Title == "" {
		return "", false
	}
	v, ok := r.Fields[s.Title].(string)
	return v, ok
}

// SetText replaces the review text in both the canonical view and the native
// field named by s.
func (r *Record) SetText(s Schema, text string) {
	r.Text = text
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[s.Text] = text
}

// Canonicalize copies the native text field into CanonicalTextField so
// downstream consumers see one schema.
func (r *Record) Canonicalize() {
	if r.Fields == nil {
		r.Fields = make(map[string]any)
	}
	r.Fields[CanonicalTextField] = r.Text
}

// ErrMissingText reports a record without a usable review-text field.
var ErrMissingText = eris.New("review: missing text field")

// Normalize builds a Record from decoded native fields. It returns
// ErrMissingText when the text field is absent so callers can drop the record;
// any other error means the record is malformed.
func Normalize(fields map[string]any, s Schema) (Record, error) {
	raw, ok := fields[s.Text]
	if !ok || raw == nil {
		return Record{}, ErrMissingText
	}
	text, ok := raw.(string)
	if !ok {
		return Record{}, eris.Errorf("review: field %q is %T, want string", s.Text, raw)
	}

	entity, err := Key(fields, s.Entity)
	if err != nil {
		return Record{}, err
	}
	reviewer, err := Key(fields, s.Reviewer)
	if err != nil {
		return Record{}, err
	}

	return Record{
		EntityID:   entity,
		ReviewerID: reviewer,
		Text:       text,
		Fields:     fields,
	}, nil
}

// Key reads an identity field as a string. Numeric identities are formatted
// in their canonical decimal form.
func Key(fields map[string]any, name string) (string, error) {
	v, ok := fields[name]
	if !ok || v == nil {
		return "", eris.Errorf("review: missing field %q", name)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", eris.Errorf("review: field %q has unsupported type %T", name, v)
	}
}
