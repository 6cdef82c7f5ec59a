package redact

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/redacter/dlpcopy/internal/imageredact"
	"github.com/redacter/dlpcopy/internal/model"
)

func TestSimpleImageRedactsConfiguredRect(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	backend := NewSimpleImage([]imageredact.Coords{{X1: 1, Y1: 1, X2: 3, Y2: 3}}, 0)
	item := model.RedacterDataItem{Content: model.RedacterDataItemContent{
		Kind:          model.KindImage,
		ImageMimeType: "image/png",
		ImageBytes:    buf.Bytes(),
	}}
	out, err := backend.Redact(context.Background(), item)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(bytes.NewReader(out.Content.ImageBytes))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := decoded.At(2, 2).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected painted pixel to be black, got %v %v %v", r, g, b)
	}
	r, g, b, _ = decoded.At(8, 8).RGBA()
	if r == 0 && g == 0 && b == 0 {
		t.Fatalf("expected unpainted pixel to remain white")
	}
}

func TestSimpleImageRedactSupportImageOnly(t *testing.T) {
	backend := NewSimpleImage(nil, 0)
	support, _ := backend.RedactSupport(context.Background(), model.FileSystemRef{MediaType: "image/png"})
	if support != model.Supported {
		t.Fatalf("expected supported for image/png")
	}
	support, _ = backend.RedactSupport(context.Background(), model.FileSystemRef{MediaType: "text/plain"})
	if support != model.Unsupported {
		t.Fatalf("expected unsupported for text/plain")
	}
}
