// Package model defines the data types shared by the crawler, the
// extraction pipeline, media acquisition, and the exporters.
//
// The main types are:
//   - CrawlOptions: the ten switches that shape one run
//   - FrontierEntry: an (address, depth) unit of pending work
//   - PageRecord: the schema-sparse extraction result for one page
//   - Dataset: the ordered records of a run
//   - MediaReference and DownloadResult: media acquisition input and output
//   - RunSummary: what is kept about a run after it finished
package model
