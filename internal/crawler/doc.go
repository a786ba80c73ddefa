// Package crawler implements the breadth-first traversal of a site.
//
// # Architecture
//
// The Spider owns the crawl loop. A Frontier holds pending entries in
// FIFO order and the set of visited addresses; Classify decides whether a
// discovered link may be followed and whether it stays on the seed host.
// Each fetched page goes through an extract.Pipeline, media references
// go to a Downloader, and once the frontier is exhausted the dataset is
// handed to an exporter.
//
// # Usage
//
//	spider := crawler.NewSpider(httpClient,
//		crawler.WithMaxDepth(3),
//		crawler.WithOutput(dir),
//		crawler.WithProgress(ch),
//	)
//	ds, err := spider.Run(ctx, "https://example.com/", opts)
//
// # Cancellation
//
// The context is checked once per iteration of the loop. A fetch that is
// already running completes; no further entry is dequeued afterwards and
// the dataset is not serialized.
package crawler
