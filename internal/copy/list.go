package copy

import (
	"context"
	"fmt"
	"io"

	"github.com/redacter/dlpcopy/internal/fsconn"
	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
)

// ListEntry is one printable row of an `ls` listing: relative path,
// declared MIME (possibly empty), and size (possibly unknown).
type ListEntry struct {
	RelativePath string
	MediaType    string
	FileSize     *int64
}

// ListResult is the `ls` counterpart to Result: entries plus a skipped
// count, mirroring the original's ls_command.rs output shape (SPEC_FULL
// supplement — spec.md only details `cp`'s testable properties).
type ListResult struct {
	Entries []ListEntry
	Skipped int
}

// List walks sourceURI the same way Copy's listing stage does —
// matcher-filtered, no download, no redaction — and is also used to
// enumerate single-file sources uniformly.
func List(ctx context.Context, sourceURI string, m matcher.Matcher, maxFiles int, reporter fsconn.Reporter) (ListResult, error) {
	if reporter == nil {
		reporter = fsconn.NopReporter{}
	}
	conn, err := fsconn.Open(ctx, sourceURI, false, reporter)
	if err != nil {
		return ListResult{}, err
	}
	defer conn.Close(ctx)

	hasMultiple, err := conn.HasMultipleFiles(ctx)
	if err != nil {
		return ListResult{}, err
	}

	if !hasMultiple {
		ref, body, err := conn.Download(ctx, nil)
		if err != nil {
			return ListResult{}, err
		}
		body.Close()
		if res := m.Matches(ref); res != matcher.Matched {
			return ListResult{Skipped: 1}, nil
		}
		return ListResult{Entries: []ListEntry{toEntry(ref)}}, nil
	}

	listing, err := conn.ListFiles(ctx, &m, maxFiles)
	if err != nil {
		return ListResult{}, err
	}
	entries := make([]ListEntry, len(listing.Files))
	for i, f := range listing.Files {
		entries[i] = toEntry(f)
	}
	return ListResult{Entries: entries, Skipped: listing.Skipped}, nil
}

func toEntry(ref model.FileSystemRef) ListEntry {
	return ListEntry{RelativePath: string(ref.RelativePath), MediaType: ref.MediaType, FileSize: ref.FileSize}
}

// Print renders a ListResult the way the original's ls_command prints:
// one line per file (path, mime, size), then the skipped count.
func Print(w io.Writer, result ListResult) {
	for _, e := range result.Entries {
		size := "?"
		if e.FileSize != nil {
			size = fmt.Sprintf("%d", *e.FileSize)
		}
		mediaType := e.MediaType
		if mediaType == "" {
			mediaType = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.RelativePath, mediaType, size)
	}
	fmt.Fprintf(w, "skipped: %d\n", result.Skipped)
}
