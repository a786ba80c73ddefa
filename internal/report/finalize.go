package report

import (
	"fmt"
	"os"
	"path/filepath"

	"cloudeng.io/errors"

	"github.com/nao1215/webscrape/internal/model"
	"github.com/nao1215/webscrape/internal/progress"
)

// Output file names inside the run folder.
const (
	JSONFileName     = "data.json"
	CSVFileName      = "data.csv"
	SummaryFileName  = "summary.md"
	filePermission   = 0o640
	folderPermission = 0o750
)

// Finalize writes the enabled dataset formats into dir. Each format is
// attempted regardless of the other's outcome; every success emits a log
// line and a count increment, every failure an error line. The returned
// error collects the failures for diagnostics only.
func Finalize(ds *model.Dataset, opts model.CrawlOptions, dir string, sink progress.Sink) error {
	var errs errors.M

	if opts.SaveJSON {
		path := filepath.Join(dir, JSONFileName)
		if err := writeFile(path, func(f *os.File) Writer { return NewJSONWriter(f, WithPrettyPrint()) }, ds); err != nil {
			progress.Errorf(sink, "Error saving JSON: %v", err)
			errs.Append(fmt.Errorf("json: %w", err))
		} else {
			progress.Logf(sink, "Saved JSON to %s", JSONFileName)
			progress.Inc(sink, 1)
		}
	}

	if opts.SaveCSV {
		path := filepath.Join(dir, CSVFileName)
		if err := writeFile(path, func(f *os.File) Writer { return NewCSVWriter(f) }, ds); err != nil {
			progress.Errorf(sink, "Error saving CSV: %v", err)
			errs.Append(fmt.Errorf("csv: %w", err))
		} else {
			progress.Logf(sink, "Saved CSV to %s", CSVFileName)
			progress.Inc(sink, 1)
		}
	}

	return errs.Err()
}

// writeFile creates path and writes ds through the writer built by newWriter.
func writeFile(path string, newWriter func(*os.File) Writer, ds *model.Dataset) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermission) //nolint:gosec // path is inside the run folder
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = newWriter(f).Write(ds)
	return err
}

// WriteSummary renders summary into summary.md inside dir.
func WriteSummary(summary *model.RunSummary, dir string) (err error) {
	if err := os.MkdirAll(dir, folderPermission); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, SummaryFileName), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePermission) //nolint:gosec // path is inside the run folder
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = NewMarkdownWriter(f).WriteSummary(summary)
	return err
}
