package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/webscrape/internal/model"
)

// CSVWriter outputs one row per page record. The header is the sorted
// union of the scalar fields present on any record; missing cells are
// empty and list fields are never written.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the dataset.
func (w *CSVWriter) Write(ds *model.Dataset) (int, error) {
	cw := &countingWriter{w: w.output}
	out := csv.NewWriter(cw)

	fields := ds.Fields()
	if err := out.Write(fields); err != nil {
		return cw.n, err
	}

	row := make([]string, len(fields))
	for _, rec := range ds.Records() {
		values := rec.ScalarFields()
		for i, f := range fields {
			row[i] = values[f]
		}
		if err := out.Write(row); err != nil {
			return cw.n, err
		}
	}

	out.Flush()
	return cw.n, out.Error()
}
