package fsconn

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// GCS backs gs:// URIs, one bucket plus an optional key prefix. A
// connection addresses a single object if the prefix does not end in
// "/" and that object exists; otherwise it addresses every object under
// the prefix, mirroring Local's directory-or-file duality.
type GCS struct {
	client   *storage.Client
	bucket   string
	prefix   string
	isDir    bool
	reporter Reporter
}

// NewGCS dials a GCS client using application-default credentials (the
// same posture the teacher's cloud-facing commands take: no inline
// secrets, credentials resolved from the environment).
func NewGCS(ctx context.Context, uri string, reporter Reporter) (*GCS, error) {
	rest := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(rest, "/", 2)
	bucket := parts[0]
	prefix := ""
	if len(parts) == 2 {
		prefix = parts[1]
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindIo, err, "dialing gcs client")
	}

	isDir := prefix == "" || strings.HasSuffix(prefix, "/")
	if !isDir {
		if _, err := client.Bucket(bucket).Object(prefix).Attrs(ctx); err != nil {
			isDir = true
		}
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &GCS{client: client, bucket: bucket, prefix: strings.TrimSuffix(prefix, "/"), isDir: isDir, reporter: reporter}, nil
}

func (g *GCS) key(rel model.RelativeFilePath) string {
	if !g.isDir {
		return g.prefix
	}
	if g.prefix == "" {
		return string(rel)
	}
	return g.prefix + "/" + string(rel)
}

func (g *GCS) Download(ctx context.Context, ref *model.FileSystemRef) (model.FileSystemRef, io.ReadCloser, error) {
	var rel model.RelativeFilePath
	if ref != nil {
		rel = ref.RelativePath
	} else if g.isDir {
		return model.FileSystemRef{}, nil, rerrors.New(rerrors.KindSystem, "download requires a file ref for a directory-rooted gcs connection")
	} else {
		rel = model.RelativeFilePath(lastSegment(g.prefix))
	}

	obj := g.client.Bucket(g.bucket).Object(g.key(rel))
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "stating gs://%s/%s", g.bucket, g.key(rel))
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "opening gs://%s/%s", g.bucket, g.key(rel))
	}
	size := attrs.Size
	return model.FileSystemRef{RelativePath: rel, MediaType: attrs.ContentType, FileSize: &size}, r, nil
}

func (g *GCS) Upload(ctx context.Context, r io.Reader, ref *model.FileSystemRef) error {
	var rel model.RelativeFilePath
	if ref != nil {
		rel = ref.RelativePath
	}
	obj := g.client.Bucket(g.bucket).Object(g.key(rel))
	w := obj.NewWriter(ctx)
	if ref != nil && ref.MediaType != "" {
		w.ContentType = ref.MediaType
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return rerrors.Wrap(rerrors.KindIo, err, "writing gs://%s/%s", g.bucket, g.key(rel))
	}
	if err := w.Close(); err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "finalizing gs://%s/%s", g.bucket, g.key(rel))
	}
	return nil
}

func (g *GCS) ListFiles(ctx context.Context, m *matcher.Matcher, maxFiles int) (model.ListFilesResult, error) {
	if !g.isDir {
		attrs, err := g.client.Bucket(g.bucket).Object(g.prefix).Attrs(ctx)
		if err != nil {
			return model.ListFilesResult{}, rerrors.Wrap(rerrors.KindIo, err, "stating gs://%s/%s", g.bucket, g.prefix)
		}
		size := attrs.Size
		ref := model.FileSystemRef{RelativePath: model.RelativeFilePath(lastSegment(g.prefix)), MediaType: attrs.ContentType, FileSize: &size}
		if m != nil {
			if res := m.Matches(ref); res != matcher.Matched {
				return model.ListFilesResult{Skipped: 1}, nil
			}
		}
		return model.ListFilesResult{Files: []model.FileSystemRef{ref}}, nil
	}

	query := &storage.Query{Prefix: g.prefix}
	it := g.client.Bucket(g.bucket).Objects(ctx, query)
	result := model.ListFilesResult{}
	for {
		if maxFiles > 0 && len(result.Files) >= maxFiles {
			break
		}
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return model.ListFilesResult{}, rerrors.Wrap(rerrors.KindIo, err, "listing gs://%s/%s", g.bucket, g.prefix)
		}
		rel := attrs.Name
		if g.prefix != "" {
			rel = strings.TrimPrefix(rel, g.prefix+"/")
		}
		size := attrs.Size
		ref := model.FileSystemRef{RelativePath: model.RelativeFilePath(rel), MediaType: attrs.ContentType, FileSize: &size}
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

func (g *GCS) HasMultipleFiles(ctx context.Context) (bool, error) { return g.isDir, nil }

func (g *GCS) AcceptsMultipleFiles(ctx context.Context) (bool, error) { return g.isDir, nil }

func (g *GCS) Close(ctx context.Context) error {
	return g.client.Close()
}

func (g *GCS) Resolve(ref *model.FileSystemRef) model.AbsoluteFilePath {
	key := g.prefix
	if ref != nil && g.isDir {
		key = g.key(ref.RelativePath)
	}
	return model.AbsoluteFilePath{Scheme: "gs", FilePath: fmt.Sprintf("%s/%s", g.bucket, key)}
}

func lastSegment(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
