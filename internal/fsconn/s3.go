package fsconn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// S3 backs s3:// URIs, following the same bucket+prefix duality as GCS.
type S3 struct {
	client   *s3.Client
	bucket   string
	prefix   string
	isDir    bool
	reporter Reporter
}

// NewS3 builds a client from the default AWS credential chain, the
// approach aws-sdk-go-v2's own examples use for CLI-style tools.
func NewS3(ctx context.Context, uri string, reporter Reporter) (*S3, error) {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	bucket := parts[0]
	prefix := ""
	if len(parts) == 2 {
		prefix = parts[1]
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.KindIo, err, "loading aws config")
	}
	client := s3.NewFromConfig(cfg)

	isDir := prefix == "" || strings.HasSuffix(prefix, "/")
	if !isDir {
		if _, err := client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &prefix}); err != nil {
			isDir = true
		}
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &S3{client: client, bucket: bucket, prefix: strings.TrimSuffix(prefix, "/"), isDir: isDir, reporter: reporter}, nil
}

func (s *S3) key(rel model.RelativeFilePath) string {
	if !s.isDir {
		return s.prefix
	}
	if s.prefix == "" {
		return string(rel)
	}
	return s.prefix + "/" + string(rel)
}

func (s *S3) Download(ctx context.Context, ref *model.FileSystemRef) (model.FileSystemRef, io.ReadCloser, error) {
	var rel model.RelativeFilePath
	if ref != nil {
		rel = ref.RelativePath
	} else if s.isDir {
		return model.FileSystemRef{}, nil, rerrors.New(rerrors.KindSystem, "download requires a file ref for a directory-rooted s3 connection")
	} else {
		rel = model.RelativeFilePath(lastSegment(s.prefix))
	}

	key := s.key(rel)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "getting s3://%s/%s", s.bucket, key)
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	mediaType := ""
	if out.ContentType != nil {
		mediaType = *out.ContentType
	}
	return model.FileSystemRef{RelativePath: rel, MediaType: mediaType, FileSize: &size}, out.Body, nil
}

func (s *S3) Upload(ctx context.Context, r io.Reader, ref *model.FileSystemRef) error {
	var rel model.RelativeFilePath
	if ref != nil {
		rel = ref.RelativePath
	}
	key := s.key(rel)

	// s3's PutObject needs a seekable/sized body for signing; the teacher's
	// own upload helpers buffer small-to-medium payloads rather than
	// streaming, so do the same here.
	buf, err := io.ReadAll(r)
	if err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "buffering upload body for s3://%s/%s", s.bucket, key)
	}
	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(buf),
	}
	if ref != nil && ref.MediaType != "" {
		input.ContentType = aws.String(ref.MediaType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "putting s3://%s/%s", s.bucket, key)
	}
	return nil
}

func (s *S3) ListFiles(ctx context.Context, m *matcher.Matcher, maxFiles int) (model.ListFilesResult, error) {
	if !s.isDir {
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &s.prefix})
		if err != nil {
			return model.ListFilesResult{}, rerrors.Wrap(rerrors.KindIo, err, "heading s3://%s/%s", s.bucket, s.prefix)
		}
		var size int64
		if head.ContentLength != nil {
			size = *head.ContentLength
		}
		ref := model.FileSystemRef{RelativePath: model.RelativeFilePath(lastSegment(s.prefix)), FileSize: &size}
		if m != nil {
			if res := m.Matches(ref); res != matcher.Matched {
				return model.ListFilesResult{Skipped: 1}, nil
			}
		}
		return model.ListFilesResult{Files: []model.FileSystemRef{ref}}, nil
	}

	result := model.ListFilesResult{}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &s.prefix})
	for paginator.HasMorePages() {
		if maxFiles > 0 && len(result.Files) >= maxFiles {
			break
		}
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return model.ListFilesResult{}, rerrors.Wrap(rerrors.KindIo, err, "listing s3://%s/%s", s.bucket, s.prefix)
		}
		for _, obj := range page.Contents {
			if maxFiles > 0 && len(result.Files) >= maxFiles {
				break
			}
			name := aws.ToString(obj.Key)
			rel := name
			if s.prefix != "" {
				rel = strings.TrimPrefix(name, s.prefix+"/")
			}
			var size int64
			if obj.Size != nil {
				size = *obj.Size
			}
			ref := model.FileSystemRef{RelativePath: model.RelativeFilePath(rel), FileSize: &size}
			if m != nil {
				if res := m.Matches(ref); res != matcher.Matched {
					result.Skipped++
					continue
				}
			}
			result.Files = append(result.Files, ref)
		}
	}
	return result, nil
}

func (s *S3) HasMultipleFiles(ctx context.Context) (bool, error) { return s.isDir, nil }

func (s *S3) AcceptsMultipleFiles(ctx context.Context) (bool, error) { return s.isDir, nil }

func (s *S3) Close(ctx context.Context) error { return nil }

func (s *S3) Resolve(ref *model.FileSystemRef) model.AbsoluteFilePath {
	key := s.prefix
	if ref != nil && s.isDir {
		key = s.key(ref.RelativePath)
	}
	return model.AbsoluteFilePath{Scheme: "s3", FilePath: fmt.Sprintf("%s/%s", s.bucket, key)}
}
