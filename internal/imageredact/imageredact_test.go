package imageredact

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/redacter/dlpcopy/internal/model"
)

func solidPNG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func TestRedactPaintsWithinBounds(t *testing.T) {
	data := solidPNG(10, 10, color.White)
	out, err := Redact("image/png", data, []model.TextImageCoords{
		{X1: 8, Y1: 8, X2: 20, Y2: 20},
	}, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 10 || bounds.Dy() != 10 {
		t.Fatalf("expected image to keep its dimensions, got %v", bounds)
	}
	r, g, b, _ := img.At(9, 9).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected corner pixel to be painted black, got %d %d %d", r, g, b)
	}
}

func TestRedactUnknownMime(t *testing.T) {
	if _, err := Redact("image/does-not-exist", nil, nil, 0); err == nil {
		t.Fatal("expected error for unknown mime type")
	}
}

func TestRedactDeterministic(t *testing.T) {
	data := solidPNG(20, 20, color.White)
	coords := []model.TextImageCoords{{X1: 2, Y1: 2, X2: 10, Y2: 10}}
	out1, err := Redact("image/png", data, coords, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	out2, err := Redact("image/png", data, coords, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out1, out2) {
		t.Fatal("expected byte-identical output for identical input")
	}
}
