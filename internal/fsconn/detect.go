package fsconn

import (
	"context"
	"strings"

	"github.com/redacter/dlpcopy/internal/rerrors"
)

// Open dispatches a URI to its backend by scheme, the Go equivalent of
// the original's DetectFileSystem::open. forWrite only matters for
// zip://, whose reader and writer are distinct implementations.
func Open(ctx context.Context, uri string, forWrite bool, reporter Reporter) (Connection, error) {
	switch {
	case strings.HasPrefix(uri, "gs://"):
		return NewGCS(ctx, uri, reporter)
	case strings.HasPrefix(uri, "s3://"):
		return NewS3(ctx, uri, reporter)
	case strings.HasPrefix(uri, "zip://"):
		if forWrite {
			return NewZipWriter(uri, reporter)
		}
		return NewZipReader(uri, reporter)
	case strings.HasPrefix(uri, "clipboard://"):
		return NewClipboard(reporter), nil
	case strings.HasPrefix(uri, "nil://"):
		return NewNoop(reporter), nil
	case strings.HasPrefix(uri, "file://"), !strings.Contains(uri, "://"):
		return NewLocal(uri, reporter)
	default:
		return nil, rerrors.New(rerrors.KindUnknownFileSystem, "no file system backend for uri %q", uri)
	}
}
