package redact

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	"github.com/redacter/dlpcopy/internal/imageredact"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// GeminiLlm is the Gemini/Vertex-backed generative-LLM redactor. Unlike
// OpenAiLlm, Gemini's image-generation-capable models can return an
// edited image directly, so this backend offers both the native
// image-to-image path (§4.6 "Generative-LLM (image, native)") and the
// coord-mode fallback (§4.6 "Generative-LLM (image, coord mode)"),
// selected by the nativeImage flag passed to NewGeminiLlm.
type GeminiLlm struct {
	client      *genai.Client
	model       string
	nativeImage bool
}

// NewGeminiLlm builds a GeminiLlm backend. nativeImage selects whether
// image redaction asks the model to return a redacted image directly
// (true) or bounding-box coordinates to paint locally (false).
func NewGeminiLlm(client *genai.Client, model string, nativeImage bool) *GeminiLlm {
	return &GeminiLlm{client: client, model: model, nativeImage: nativeImage}
}

func (g *GeminiLlm) RedacterType() Type { return TypeGeminiLlm }

func (g *GeminiLlm) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	if strings.HasPrefix(ref.MediaType, "text/") || strings.HasPrefix(ref.MediaType, "image/") {
		return model.Supported, nil
	}
	return model.Unsupported, nil
}

func (g *GeminiLlm) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	switch item.Content.Kind {
	case model.KindText:
		return g.redactText(ctx, item)
	case model.KindImage:
		if g.nativeImage {
			return g.redactImageNative(ctx, item)
		}
		return g.redactImageCoordMode(ctx, item)
	default:
		return item, rerrors.New(rerrors.KindRedactionFailed, "gemini: unsupported content kind")
	}
}

func (g *GeminiLlm) redactText(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	separator := NewSeparator()
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(GenerativeTemperature)),
		SystemInstruction: genai.NewContentFromText(GenerativeSystemPrompt(separator), genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(WrapWithSeparator(separator, item.Content.Text)), config)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "gemini generate content")
	}
	out := item
	out.Content.Text = StripSeparator(separator, resp.Text())
	return out, nil
}

func (g *GeminiLlm) redactImageNative(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	resized, err := imageredact.ResizeToFit(item.Content.ImageMimeType, item.Content.ImageBytes, 1024, 1024)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "resizing image for gemini")
	}

	prompt := "Return this image with every region containing personally identifiable information " +
		"painted solid black. Return only the edited image."
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(resized, item.Content.ImageMimeType),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "gemini image generation")
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out := item
				out.Content.ImageBytes = part.InlineData.Data
				if part.InlineData.MIMEType != "" {
					out.Content.ImageMimeType = part.InlineData.MIMEType
				}
				return out, nil
			}
		}
	}
	return item, rerrors.New(rerrors.KindRedactionFailed, "gemini: no image returned")
}

func (g *GeminiLlm) redactImageCoordMode(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	resized, err := imageredact.ResizeToFit(item.Content.ImageMimeType, item.Content.ImageBytes, 1024, 1024)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "resizing image for gemini")
	}

	prompt := "Identify every region of this image containing personally identifiable information. " +
		"Respond with a JSON array of objects, each with x1,y1,x2,y2 pixel coordinates and an optional text field. " +
		"Respond with only the JSON array, no other text."
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(resized, item.Content.ImageMimeType),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "gemini vision generation")
	}

	var coords []openaiCoord
	if err := json.Unmarshal([]byte(resp.Text()), &coords); err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "parsing gemini coord response")
	}
	boxes := make([]imageredact.Coords, len(coords))
	for i, c := range coords {
		boxes[i] = imageredact.Coords{X1: c.X1, Y1: c.Y1, X2: c.X2, Y2: c.Y2, Text: c.Text}
	}

	redacted, err := imageredact.Redact(item.Content.ImageMimeType, resized, boxes, coordModeApproximation)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "painting gemini coord redaction")
	}
	out := item
	out.Content.ImageBytes = redacted
	return out, nil
}
