package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/webscrape/internal/model"
)

// JSONWriter outputs the dataset as a JSON array of page records in
// insertion order. Absent fields are omitted from each object.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint indents each level with four spaces, the layout of
// data.json.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "    ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the dataset. An empty dataset is written as [].
func (w *JSONWriter) Write(ds *model.Dataset) (int, error) {
	records := ds.Records()
	if records == nil {
		records = []model.PageRecord{}
	}

	var data []byte
	var err error
	if w.indent {
		data, err = json.MarshalIndent(records, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
