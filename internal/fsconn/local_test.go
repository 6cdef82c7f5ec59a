package fsconn

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/redacter/dlpcopy/internal/model"
)

func TestLocalSingleFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(src, []byte("hello"), 0o640); err != nil {
		t.Fatal(err)
	}

	conn, err := NewLocal(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	ref, rc, err := conn.Download(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", data)
	}
	if ref.FileSize == nil || *ref.FileSize != 5 {
		t.Fatalf("unexpected size: %+v", ref.FileSize)
	}

	dst := filepath.Join(dir, "out.txt")
	out, err := NewLocal(dst, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := out.Upload(context.Background(), stringsReader("bye"), nil); err != nil {
		t.Fatal(err)
	}
	written, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != "bye" {
		t.Fatalf("unexpected content: %q", written)
	}
}

func TestLocalDirectoryListing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("bb"), 0o640); err != nil {
		t.Fatal(err)
	}

	conn, err := NewLocal(dir+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := conn.ListFiles(context.Background(), nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(result.Files), result.Files)
	}
}

func TestLocalUploadCreatesParents(t *testing.T) {
	dir := t.TempDir()
	conn, err := NewLocal(dir+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	ref := &model.FileSystemRef{RelativePath: "nested/out.txt"}
	if err := conn.Upload(context.Background(), stringsReader("content"), ref); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "nested", "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "content" {
		t.Fatalf("unexpected content: %q", data)
	}
}

type stringsReaderT struct {
	s   string
	pos int
}

func stringsReader(s string) *stringsReaderT { return &stringsReaderT{s: s} }

func (r *stringsReaderT) Read(p []byte) (int, error) {
	if r.pos >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.pos:])
	r.pos += n
	return n, nil
}
