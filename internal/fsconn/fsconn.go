// Package fsconn implements the file-system abstraction contract (§4.3):
// a uniform download/upload/list/resolve surface over local disk, object
// storage (GCS/S3), zip archives, and the OS clipboard.
package fsconn

import (
	"context"
	"io"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
)

// Connection is the polymorphic contract every backend variant
// implements. It mirrors the original's FileSystemConnection trait:
// lazy single-pass download, create-as-needed upload, matcher-filtered
// recursive/paged listing, and an idempotent close.
type Connection interface {
	// Download opens a stream for ref, or for the connection's sole file
	// if ref is nil and the connection addresses exactly one file.
	Download(ctx context.Context, ref *model.FileSystemRef) (model.FileSystemRef, io.ReadCloser, error)

	// Upload writes exactly one object keyed by the resolved path,
	// creating parent containers as needed.
	Upload(ctx context.Context, r io.Reader, ref *model.FileSystemRef) error

	// ListFiles recurses/pages through the backend, applying m if
	// non-nil and stopping once maxFiles files have matched (0 = no cap).
	ListFiles(ctx context.Context, m *matcher.Matcher, maxFiles int) (model.ListFilesResult, error)

	HasMultipleFiles(ctx context.Context) (bool, error)
	AcceptsMultipleFiles(ctx context.Context) (bool, error)

	// Close is an idempotent finalizer: flush archive central
	// directories, release temp extractions.
	Close(ctx context.Context) error

	Resolve(ref *model.FileSystemRef) model.AbsoluteFilePath
}

// Reporter is the downward-facing progress/log capability every backend
// may use instead of holding a reference back to its owner (§9 "Cyclic
// references: None required... reporting is done by passing a reporter
// capability downward").
type Reporter interface {
	Report(message string)
}

// NopReporter discards everything; useful in tests.
type NopReporter struct{}

func (NopReporter) Report(string) {}
