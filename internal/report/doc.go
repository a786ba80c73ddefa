// Package report writes the results of a crawl run.
//
// JSONWriter and CSVWriter serialize a model.Dataset; Finalize runs the
// ones enabled by the crawl options and writes data.json and data.csv into
// the run folder. MarkdownWriter renders a model.RunSummary as summary.md.
// PrepareOutput creates the run folder itself before a crawl starts.
//
// The two dataset formats are independent: a failure writing one never
// prevents the other.
package report
