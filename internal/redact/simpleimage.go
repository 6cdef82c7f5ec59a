package redact

import (
	"context"
	"strings"

	"github.com/redacter/dlpcopy/internal/imageredact"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// SimpleImage is the image-coord redactor exposed as a Redacter (§4.2,
// §8 scenario 4: "cp ... --redact image-redactor"). Unlike the
// generative/cloud backends it never calls out to a network service;
// it paints caller-supplied rectangles directly.
type SimpleImage struct {
	coords        []imageredact.Coords
	approximation float64
}

// NewSimpleImage builds a SimpleImage backend with a fixed set of
// rectangles and safety margin, applied to every image it sees.
func NewSimpleImage(coords []imageredact.Coords, approximation float64) *SimpleImage {
	return &SimpleImage{coords: coords, approximation: approximation}
}

func (s *SimpleImage) RedacterType() Type { return TypeSimpleImage }

func (s *SimpleImage) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	if strings.HasPrefix(ref.MediaType, "image/") {
		return model.Supported, nil
	}
	return model.Unsupported, nil
}

func (s *SimpleImage) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	if item.Content.Kind != model.KindImage {
		return item, rerrors.New(rerrors.KindRedactionFailed, "simple image: unsupported content kind")
	}
	redacted, err := imageredact.Redact(item.Content.ImageMimeType, item.Content.ImageBytes, s.coords, s.approximation)
	if err != nil {
		return item, err
	}
	out := item
	out.Content.ImageBytes = redacted
	return out, nil
}
