// Package fetcher downloads source files over HTTP or FTP and parses the
// delimited and spreadsheet formats the Census Bureau publishes.
package fetcher

import (
	"context"
	"io"
)

// Fetcher downloads remote source files. The pipeline never reaches the
// network itself; it takes a Fetcher so normalization logic is testable
// without one.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}
