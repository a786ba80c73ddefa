package model

import "sort"

// CSV/JSON field names of a PageRecord.
const (
	FieldURL         = "url"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldKeywords    = "keywords"
	FieldText        = "text"
	FieldLinks       = "links"
)

// FrontierEntry is a pending unit of crawl work.
// Depth is the hop count from the seed, which has depth 0.
type FrontierEntry struct {
	URL   string
	Depth int
}

// PageRecord is the extraction result for one successfully fetched page.
// Optional fields are nil when the option that produces them was off, so
// records from one run are schema-sparse.
type PageRecord struct {
	URL         string   `json:"url"`
	Title       *string  `json:"title,omitzero"`
	Description *string  `json:"description,omitzero"`
	Keywords    *string  `json:"keywords,omitzero"`
	Text        *string  `json:"text,omitzero"`
	Links       []string `json:"links,omitzero"`
}

// NewPageRecord returns a record carrying only the address.
func NewPageRecord(url string) PageRecord {
	return PageRecord{URL: url}
}

// SetMetadata fills title, description and keywords.
func (r *PageRecord) SetMetadata(title, description, keywords string) {
	r.Title = &title
	r.Description = &description
	r.Keywords = &keywords
}

// SetText fills the text field.
func (r *PageRecord) SetText(text string) {
	r.Text = &text
}

// SetLinks fills the links field. A nil slice is stored as an empty one
// so an enabled field is never mistaken for an absent one.
func (r *PageRecord) SetLinks(links []string) {
	if links == nil {
		links = []string{}
	}
	r.Links = links
}

// ScalarFields returns the present single-valued fields keyed by their
// export name. List-typed fields are never included.
func (r PageRecord) ScalarFields() map[string]string {
	fields := map[string]string{FieldURL: r.URL}
	if r.Title != nil {
		fields[FieldTitle] = *r.Title
	}
	if r.Description != nil {
		fields[FieldDescription] = *r.Description
	}
	if r.Keywords != nil {
		fields[FieldKeywords] = *r.Keywords
	}
	if r.Text != nil {
		fields[FieldText] = *r.Text
	}
	return fields
}

// Dataset is the ordered, append-only collection of records of one run.
type Dataset struct {
	records []PageRecord
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{records: make([]PageRecord, 0)}
}

// Append adds a record at the end.
func (d *Dataset) Append(r PageRecord) {
	d.records = append(d.records, r)
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns the records in insertion order.
// The returned slice must not be modified.
func (d *Dataset) Records() []PageRecord {
	return d.records
}

// Fields returns the sorted union of scalar field names over every record.
func (d *Dataset) Fields() []string {
	seen := make(map[string]struct{})
	for _, r := range d.records {
		for name := range r.ScalarFields() {
			seen[name] = struct{}{}
		}
	}
	fields := make([]string, 0, len(seen))
	for name := range seen {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}
