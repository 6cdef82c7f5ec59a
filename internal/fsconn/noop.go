package fsconn

import (
	"bytes"
	"context"
	"io"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
)

// Noop backs nil:// URIs. It discards everything written to it and
// reports an empty file on read, which is useful for dry-run redaction
// benchmarking (measuring throttler/redacter cost without disk or
// network I/O) without special-casing the copy coordinator.
type Noop struct {
	reporter Reporter
}

// NewNoop builds a Noop connection.
func NewNoop(reporter Reporter) *Noop {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Noop{reporter: reporter}
}

func (n *Noop) Download(ctx context.Context, ref *model.FileSystemRef) (model.FileSystemRef, io.ReadCloser, error) {
	name := "nil"
	if ref != nil {
		name = string(ref.RelativePath)
	}
	var size int64
	return model.FileSystemRef{RelativePath: model.RelativeFilePath(name), FileSize: &size}, io.NopCloser(bytes.NewReader(nil)), nil
}

func (n *Noop) Upload(ctx context.Context, r io.Reader, ref *model.FileSystemRef) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (n *Noop) ListFiles(ctx context.Context, m *matcher.Matcher, maxFiles int) (model.ListFilesResult, error) {
	var size int64
	return model.ListFilesResult{Files: []model.FileSystemRef{{RelativePath: "nil", FileSize: &size}}}, nil
}

func (n *Noop) HasMultipleFiles(ctx context.Context) (bool, error) { return false, nil }

func (n *Noop) AcceptsMultipleFiles(ctx context.Context) (bool, error) { return true, nil }

func (n *Noop) Close(ctx context.Context) error { return nil }

func (n *Noop) Resolve(ref *model.FileSystemRef) model.AbsoluteFilePath {
	return model.AbsoluteFilePath{Scheme: "nil", FilePath: ""}
}
