package fsconn

import (
	"context"
	"encoding/base64"
	"io"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/redacter/dlpcopy/internal/matcher"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// imageClipboardMarker prefixes PNG payloads tunneled through the OS
// text clipboard. atotto/clipboard (the only clipboard library anywhere
// in the retrieved pack) exposes text only; since §4.3 still requires
// this backend to round-trip image downloads/uploads, image bytes are
// base64-encoded behind this marker rather than left unsupported. Any
// clipboard content without the marker is treated as plain text/plain.
const imageClipboardMarker = "data:image/png;base64,"

// Clipboard backs clipboard:// URIs. It always addresses exactly one
// logical file, since the OS clipboard holds a single payload.
type Clipboard struct {
	reporter Reporter
}

// NewClipboard builds a Clipboard connection.
func NewClipboard(reporter Reporter) *Clipboard {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Clipboard{reporter: reporter}
}

func (c *Clipboard) Download(ctx context.Context, ref *model.FileSystemRef) (model.FileSystemRef, io.ReadCloser, error) {
	raw, err := clipboard.ReadAll()
	if err != nil {
		return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "reading clipboard")
	}

	var payload []byte
	mediaType := "text/plain"
	if strings.HasPrefix(raw, imageClipboardMarker) {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, imageClipboardMarker))
		if err != nil {
			return model.FileSystemRef{}, nil, rerrors.Wrap(rerrors.KindIo, err, "decoding clipboard image payload")
		}
		payload = decoded
		mediaType = "image/png"
	} else {
		payload = []byte(raw)
	}

	name := "clipboard"
	if ref != nil {
		name = string(ref.RelativePath)
	}
	size := int64(len(payload))
	result := model.FileSystemRef{RelativePath: model.RelativeFilePath(name), MediaType: mediaType, FileSize: &size}
	return result, io.NopCloser(strings.NewReader(string(payload))), nil
}

func (c *Clipboard) Upload(ctx context.Context, r io.Reader, ref *model.FileSystemRef) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "reading upload body for clipboard")
	}

	mediaType := ""
	if ref != nil {
		mediaType = ref.MediaType
	}
	var payload string
	if strings.HasPrefix(mediaType, "image/") {
		payload = imageClipboardMarker + base64.StdEncoding.EncodeToString(data)
	} else {
		payload = string(data)
	}

	if err := clipboard.WriteAll(payload); err != nil {
		return rerrors.Wrap(rerrors.KindIo, err, "writing clipboard")
	}
	return nil
}

// ListFiles is always empty (§4.3 "Clipboard: … list_files is always
// empty"): the clipboard holds exactly one unnamed item, reachable only
// through Download/Upload, never through a listing.
func (c *Clipboard) ListFiles(ctx context.Context, m *matcher.Matcher, maxFiles int) (model.ListFilesResult, error) {
	return model.ListFilesResult{}, nil
}

func (c *Clipboard) HasMultipleFiles(ctx context.Context) (bool, error) { return false, nil }

func (c *Clipboard) AcceptsMultipleFiles(ctx context.Context) (bool, error) { return false, nil }

func (c *Clipboard) Close(ctx context.Context) error { return nil }

func (c *Clipboard) Resolve(ref *model.FileSystemRef) model.AbsoluteFilePath {
	return model.AbsoluteFilePath{Scheme: "clipboard", FilePath: ""}
}
