// Package media downloads images and videos referenced by crawled pages.
//
// An Acquirer validates one reference against the allow-list of its kind,
// streams the body to disk under a collision-free name, and reports the
// outcome on a progress sink. A Pool fans a page's references out over a
// bounded number of workers.
//
//	acq := media.NewAcquirer(client, media.WithProgress(ch))
//	pool := media.NewPool(acq, 4)
//	results := pool.Download(ctx, refs, outputDir)
//
// Files never pass through memory as a whole: bytes are copied in fixed
// 8 KiB chunks into the destination file and a SHA3-256 hasher.
package media
