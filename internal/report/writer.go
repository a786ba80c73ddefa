package report

import (
	"io"

	"github.com/nao1215/webscrape/internal/model"
)

// Writer serializes a dataset to its destination.
type Writer interface {
	// Write outputs the dataset and returns the number of bytes written.
	Write(ds *model.Dataset) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter tracks how many bytes pass through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
