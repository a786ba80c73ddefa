// Package extract turns a fetched HTML page into a PageRecord, the list of
// link candidates for the frontier, and the media references to download.
//
// Each step (metadata, text, links, media) returns a StepResult carrying its
// value and its error side by side. A failed step degrades to the empty
// default for its field and the page is still recorded; failures are
// reported in Result.Problems for the caller to log.
//
// Link resolution runs regardless of the ExtractLinks switch: the resolved
// list is what the crawler follows, and ExtractLinks only decides whether it
// is exported in the record.
package extract
