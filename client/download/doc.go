// Package download streams HTTP response bodies into a sink, usually a
// file created with [Create], with optional checksum validation and
// progress reporting.
//
// # Single Download
//
// [Create] refuses to overwrite an existing file. [Stream] then pipes the
// body into it and always closes it:
//
//	sink, err := download.Create(destPath)
//	if err != nil { ... }
//	err = download.Stream(ctx, resp.Body, resp.ContentLength, sink, logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//
// A failed download may leave a truncated file behind.
//
// # Several Downloads
//
// [Queue] runs downloads concurrently under a concurrency limit and joins
// their errors:
//
//	q := download.NewQueue(4)
//	for _, job := range jobs {
//		q.Start(ctx, job)
//	}
//	err := q.Wait()
package download
