package matcher

import (
	"testing"

	"github.com/redacter/dlpcopy/internal/model"
)

func sizePtr(v int64) *int64 { return &v }

func TestMatcherSizeBeforeName(t *testing.T) {
	limit := sizePtr(100)
	m := New("*.txt", limit)

	matched := m.Matches(model.FileSystemRef{RelativePath: "test.txt", FileSize: sizePtr(50)})
	if matched != Matched {
		t.Fatalf("expected Matched, got %v", matched)
	}

	tooBig := m.Matches(model.FileSystemRef{RelativePath: "test.txt", FileSize: sizePtr(150)})
	if tooBig != SkippedDueToSize {
		t.Fatalf("expected SkippedDueToSize, got %v", tooBig)
	}

	wrongName := m.Matches(model.FileSystemRef{RelativePath: "test.md", FileSize: sizePtr(50)})
	if wrongName != SkippedDueToName {
		t.Fatalf("expected SkippedDueToName, got %v", wrongName)
	}
}

func TestMatcherAbsentSizeDisablesCheck(t *testing.T) {
	m := New("", nil)
	if got := m.Matches(model.FileSystemRef{RelativePath: "anything", FileSize: sizePtr(1 << 40)}); got != Matched {
		t.Fatalf("expected Matched with no limits configured, got %v", got)
	}
}

func TestMimeOverrideFirstMatchWins(t *testing.T) {
	o := NewMimeOverride([]MimeOverrideRule{
		{Glob: "**/*.csv", Mime: "text/csv"},
		{Glob: "**/*.txt", Mime: "text/plain"},
	})

	ref := o.Apply(model.FileSystemRef{RelativePath: "a/b.csv", MediaType: "application/octet-stream"})
	if ref.MediaType != "text/csv" {
		t.Fatalf("expected override to text/csv, got %s", ref.MediaType)
	}

	untouched := o.Apply(model.FileSystemRef{RelativePath: "a/b.bin", MediaType: "application/octet-stream"})
	if untouched.MediaType != "application/octet-stream" {
		t.Fatalf("expected untouched ref, got %s", untouched.MediaType)
	}
}
