// Package storage provides artifact archiving for downloaded videos.
// It defines the Archiver interface and implementations for local disk
// and S3.
package storage

import (
	"context"
	"io"
)

// Archiver persists a copy of a video artifact as it is streamed to the
// client and returns a location the copy can later be retrieved from.
type Archiver interface {
	// Archive writes the data under the given name and returns the location
	// (a file path for local storage, an object URL for S3).
	Archive(ctx context.Context, name string, data io.Reader) (location string, err error)
}
