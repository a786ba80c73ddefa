// Package progress is the one-way conduit from a running crawl to the
// observer that renders it. The crawl emits LogLine, CountIncrement and
// Completed events; the observer only reads them.
package progress
