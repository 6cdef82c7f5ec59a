package fsconn

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"strings"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// Zip backs zip:// URIs. Reading opens the archive directly; writing
// accumulates entries with archive/zip.Writer and flushes the central
// directory on Close, matching zip's own append-only writer model (an
// existing destination archive is an error, not a merge target, the
// same create-fails-if-exists posture the teacher takes with its output
// files).
type Zip struct {
	path     string
	reporter Reporter

	// read-mode
	reader *zip.ReadCloser

	// write-mode
	writer   *zip.Writer
	writerFh *os.File
}

// NewZipReader opens an existing archive for Download/ListFiles.
func NewZipReader(path string, reporter Reporter) (*Zip, error) {
	trimmed := strings.TrimPrefix(path, "zip://")
	r, err := zip.OpenReader(trimmed)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindIo, err, "opening zip archive %s", trimmed)
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Zip{path: trimmed, reader: r, reporter: reporter}, nil
}

// NewZipWriter creates a new archive for Upload. It fails if path
// already exists.
func NewZipWriter(path string, reporter Reporter) (*Zip, error) {
	trimmed := strings.TrimPrefix(path, "zip://")
	fh, err := os.OpenFile(trimmed, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindIo, err, "creating zip archive %s", trimmed)
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Zip{path: trimmed, writer: zip.NewWriter(fh), writerFh: fh, reporter: reporter}, nil
}

func (z *Zip) Download(ctx context.Context, ref *model.FileSystemRef) (model.FileSystemRef, io.ReadCloser, error) {
	if z.reader == nil {
		return model.FileSystemRef{}, nil, rerrors.New(rerrors.KindSystem, "zip connection is in write mode")
	}
	var name string
	if ref != nil {
		name = string(ref.RelativePath)
	} else if len(z.reader.File) == 1 {
		name = z.reader.File[0].Name
	} else {
		return model.FileSystemRef{}, nil, rerrors.New(rerrors.KindSystem, "download requires a file ref for a multi-entry archive")
	}

	for _, f := range z.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "reading %s from %s", name, z.path)
		}
		size := int64(f.UncompressedSize64)
		return model.FileSystemRef{RelativePath: model.RelativeFilePath(name), FileSize: &size}, rc, nil
	}
	return model.FileSystemRef{}, nil, rerrors.New(rerrors.KindIo, "entry %s not found in %s", name, z.path)
}

func (z *Zip) Upload(ctx context.Context, r io.Reader, ref *model.FileSystemRef) error {
	if z.writer == nil {
		return rerrors.New(rerrors.KindSystem, "zip connection is in read mode")
	}
	name := "data"
	if ref != nil {
		name = string(ref.RelativePath)
	}
	w, err := z.writer.Create(name)
	if err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "adding entry %s to %s", name, z.path)
	}
	if _, err := io.Copy(w, r); err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "writing entry %s to %s", name, z.path)
	}
	return nil
}

func (z *Zip) ListFiles(ctx context.Context, m *matcher.Matcher, maxFiles int) (model.ListFilesResult, error) {
	if z.reader == nil {
		return model.ListFilesResult{}, rerrors.New(rerrors.KindSystem, "zip connection is in write mode")
	}
	result := model.ListFilesResult{}
	for _, f := range z.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if maxFiles > 0 && len(result.Files) >= maxFiles {
			break
		}
		size := int64(f.UncompressedSize64)
		ref := model.FileSystemRef{RelativePath: model.RelativeFilePath(f.Name), FileSize: &size}
		if m != nil {
			if res := m.Matches(ref); res != matcher.Matched {
				result.Skipped++
				continue
			}
		}
		result.Files = append(result.Files, ref)
	}
	return result, nil
}

func (z *Zip) HasMultipleFiles(ctx context.Context) (bool, error) {
	if z.reader == nil {
		return true, nil
	}
	return len(z.reader.File) > 1, nil
}

func (z *Zip) AcceptsMultipleFiles(ctx context.Context) (bool, error) { return true, nil }

func (z *Zip) Close(ctx context.Context) error {
	if z.reader != nil {
		r := z.reader
		z.reader = nil
		return r.Close()
	}
	if z.writer != nil {
		w, fh := z.writer, z.writerFh
		z.writer, z.writerFh = nil, nil
		if err := w.Close(); err != nil {
			fh.Close()
			return rerrors.Wrap(rerrors.KindIo, err, "flushing zip central directory for %s", z.path)
		}
		return fh.Close()
	}
	return nil
}

func (z *Zip) Resolve(ref *model.FileSystemRef) model.AbsoluteFilePath {
	path := z.path
	if ref != nil {
		path += "!" + string(ref.RelativePath)
	}
	return model.AbsoluteFilePath{Scheme: "zip", FilePath: path}
}
