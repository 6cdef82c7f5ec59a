package fsconn

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// Local backs file:// and bare-path URIs. Directory-ness is either an
// explicit trailing slash or a stat()-detected directory (§4.3).
type Local struct {
	root     string
	isDir    bool
	reporter Reporter
}

// NewLocal opens a local backend rooted at path, stripping an optional
// "file://" prefix.
func NewLocal(path string, reporter Reporter) (*Local, error) {
	trimmed := strings.TrimPrefix(path, "file://")
	isDir := strings.HasSuffix(trimmed, "/")
	if !isDir {
		if info, err := os.Stat(trimmed); err == nil && info.IsDir() {
			isDir = true
		}
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Local{root: strings.TrimSuffix(trimmed, "/"), isDir: isDir, reporter: reporter}, nil
}

func (l *Local) fullPath(rel model.RelativeFilePath) string {
	if l.isDir {
		return filepath.Join(l.root, filepath.FromSlash(string(rel)))
	}
	return l.root
}

func (l *Local) Download(ctx context.Context, ref *model.FileSystemRef) (model.FileSystemRef, io.ReadCloser, error) {
	var path string
	var rel model.RelativeFilePath
	if ref != nil {
		rel = ref.RelativePath
		path = l.fullPath(rel)
	} else if !l.isDir {
		path = l.root
		rel = model.RelativeFilePath(filepath.Base(l.root))
	} else {
		return model.FileSystemRef{}, nil, rerrors.New(rerrors.KindSystem, "download requires a file ref for a directory-rooted local connection")
	}

	f, err := os.Open(path)
	if err != nil {
		return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "opening %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "stating %s", path)
	}
	size := info.Size()
	resolved := model.FileSystemRef{
		RelativePath: rel,
		MediaType:    detectMime(string(rel)),
		FileSize:     &size,
	}
	return resolved, f, nil
}

func (l *Local) Upload(ctx context.Context, r io.Reader, ref *model.FileSystemRef) error {
	var path string
	if ref != nil && l.isDir {
		path = l.fullPath(ref.RelativePath)
	} else {
		path = l.root
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "creating parent dirs for %s", path)
	}

	tmp := path + ".dlpcopy-tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "creating %s", tmp)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return rerrors.Wrap(rerrors.KindIo, err, "writing %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return rerrors.Wrap(rerrors.KindIo, err, "closing %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return rerrors.Wrap(rerrors.KindIo, err, "finalizing %s", path)
	}
	return nil
}

func (l *Local) ListFiles(ctx context.Context, m *matcher.Matcher, maxFiles int) (model.ListFilesResult, error) {
	if !l.isDir {
		info, err := os.Stat(l.root)
		if err != nil {
			return model.ListFilesResult{}, rerrors.Wrap(rerrors.KindIo, err, "stating %s", l.root)
		}
		size := info.Size()
		ref := model.FileSystemRef{RelativePath: model.RelativeFilePath(filepath.Base(l.root)), MediaType: detectMime(l.root), FileSize: &size}
		if m != nil {
			if res := m.Matches(ref); res != matcher.Matched {
				return model.ListFilesResult{Skipped: 1}, nil
			}
		}
		return model.ListFilesResult{Files: []model.FileSystemRef{ref}}, nil
	}

	result := model.ListFilesResult{}
	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if maxFiles > 0 && len(result.Files) >= maxFiles {
			return filepath.SkipAll
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		size := info.Size()
		ref := model.FileSystemRef{
			RelativePath: model.RelativeFilePath(filepath.ToSlash(rel)),
			MediaType:    detectMime(path),
			FileSize:     &size,
		}
		if m != nil {
			if res := m.Matches(ref); res != matcher.Matched {
				result.Skipped++
				return nil
			}
		}
		result.Files = append(result.Files, ref)
		return nil
	})
	if err != nil {
		return model.ListFilesResult{}, rerrors.Wrap(rerrors.KindIo, err, "walking %s", l.root)
	}
	return result, nil
}

func (l *Local) HasMultipleFiles(ctx context.Context) (bool, error) { return l.isDir, nil }

func (l *Local) AcceptsMultipleFiles(ctx context.Context) (bool, error) { return l.isDir, nil }

func (l *Local) Close(ctx context.Context) error { return nil }

func (l *Local) Resolve(ref *model.FileSystemRef) model.AbsoluteFilePath {
	path := l.root
	if ref != nil && l.isDir {
		path = l.fullPath(ref.RelativePath)
	}
	return model.AbsoluteFilePath{Scheme: "file", FilePath: path}
}

func detectMime(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if idx := strings.Index(t, ";"); idx >= 0 {
			return strings.TrimSpace(t[:idx])
		}
		return t
	}
	return ""
}
