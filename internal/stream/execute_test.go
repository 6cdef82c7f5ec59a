package stream

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/redacter/dlpcopy/internal/convert"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/redact"
)

func TestMaterializeTextAppliesSampling(t *testing.T) {
	size := 3
	item, err := Materialize(model.FileSystemRef{MediaType: "text/plain"}, []byte("hello world"), model.RedacterBaseOptions{SamplingSize: &size}, false)
	if err != nil {
		t.Fatal(err)
	}
	if item.Content.Text != "hel" {
		t.Fatalf("got %q", item.Content.Text)
	}
}

func TestMaterializeMissingMediaTypeErrors(t *testing.T) {
	_, err := Materialize(model.FileSystemRef{}, []byte("x"), model.RedacterBaseOptions{}, false)
	if err == nil {
		t.Fatal("expected error for missing media type")
	}
}

func TestCsvRoundTrip(t *testing.T) {
	csv := "name,age\nAlice,30\nBob,40\n"
	item, err := Materialize(model.FileSystemRef{MediaType: "text/csv"}, []byte(csv), model.RedacterBaseOptions{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(item.Content.TableHeaders) != 2 || len(item.Content.TableRows) != 2 {
		t.Fatalf("unexpected table shape: %+v", item.Content)
	}
	out, err := serialize(item, model.RedacterBaseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != csv {
		t.Fatalf("round trip mismatch: %q", out)
	}
}

func TestMaterializeCsvTreatAsTextSkipsParsing(t *testing.T) {
	csv := "name,age\nAlice,30\nBob,40\n"
	item, err := Materialize(model.FileSystemRef{MediaType: "text/csv"}, []byte(csv), model.RedacterBaseOptions{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if item.Content.Kind != model.KindText || item.Content.Text != csv {
		t.Fatalf("expected whole-file text, got %+v", item.Content)
	}
}

type passthroughRedacter struct{}

func (passthroughRedacter) RedacterType() redact.Type { return redact.TypeSimpleImage }
func (passthroughRedacter) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	return model.Supported, nil
}
func (passthroughRedacter) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	return item, nil
}

func TestExecuteNoConversionCountsRedaction(t *testing.T) {
	plan := Plan{Supported: []redact.Redacter{passthroughRedacter{}}}
	item := model.RedacterDataItem{Content: model.RedacterDataItemContent{Kind: model.KindText, Text: "hello"}}
	result, err := Execute(context.Background(), plan, item, model.RedacterBaseOptions{}, Deps{})
	if err != nil {
		t.Fatal(err)
	}
	if result.NumberOfRedactions != 1 {
		t.Fatalf("expected 1 redaction, got %d", result.NumberOfRedactions)
	}
	if string(result.Stream) != "hello" {
		t.Fatalf("unexpected stream: %q", result.Stream)
	}
}

type wordDroppingRedacter struct{ drop string }

func (wordDroppingRedacter) RedacterType() redact.Type { return redact.TypeSimpleImage }
func (wordDroppingRedacter) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	return model.Supported, nil
}
func (w wordDroppingRedacter) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	out := item
	words := splitWords(item.Content.Text)
	var kept []string
	for _, word := range words {
		if word == w.drop {
			continue
		}
		kept = append(kept, word)
	}
	out.Content.Text = joinWords(kept)
	return out, nil
}

func splitWords(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == ' ' {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

type fakeOcr struct{ coords []model.TextImageCoords }

func (f fakeOcr) ImageToText(img image.Image) ([]model.TextImageCoords, error) { return f.coords, nil }

func TestApplyOcrAssistedImagePaintsDroppedWord(t *testing.T) {
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

	deps := Deps{Ocr: fakeOcr{coords: []model.TextImageCoords{
		{X1: 1, Y1: 1, X2: 3, Y2: 3, Text: "Alice"},
		{X1: 5, Y1: 5, X2: 7, Y2: 7, Text: "loves"},
	}}}
	item := model.RedacterDataItem{Content: model.RedacterDataItemContent{Kind: model.KindImage, ImageMimeType: "image/png", ImageBytes: buf.Bytes()}}

	out, err := applyOcrAssistedImage(context.Background(), wordDroppingRedacter{drop: "Alice"}, item, deps)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(bytes.NewReader(out.Content.ImageBytes))
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := decoded.At(2, 2).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Fatalf("expected dropped word's region painted black")
	}
	r, g, b, _ = decoded.At(6, 6).RGBA()
	if r == 0 && g == 0 && b == 0 {
		t.Fatalf("expected kept word's region to remain unpainted")
	}
}

var _ convert.PdfToImage = (*convert.PdfImageConverter)(nil)
