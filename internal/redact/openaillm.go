package redact

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/redacter/dlpcopy/internal/imageredact"
	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// openaiCoord is one element of the JSON array the coord-mode image path
// asks the model to return (§4.6 "Generative-LLM (image, coord mode)").
type openaiCoord struct {
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	Text string  `json:"text,omitempty"`
}

// coordModeApproximation is the safety margin applied when an LLM
// returns bounding boxes instead of a fully redacted image (§4.6).
const coordModeApproximation = 0.25

// OpenAiLlm is the OpenAI-backed generative-LLM redactor, supporting
// both text (§4.6 "Generative-LLM (text)") and image inputs in coord
// mode (§4.6 "Generative-LLM (image, coord mode)") — OpenAI's chat
// completions API does not return edited images, only descriptions, so
// native image-to-image mode is not offered here.
type OpenAiLlm struct {
	client *openai.Client
	model  string
}

// NewOpenAiLlm builds an OpenAiLlm backend targeting a vision-capable
// chat model (e.g. "gpt-4o").
func NewOpenAiLlm(client *openai.Client, model string) *OpenAiLlm {
	return &OpenAiLlm{client: client, model: model}
}

func (o *OpenAiLlm) RedacterType() Type { return TypeOpenAiLlm }

func (o *OpenAiLlm) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	if strings.HasPrefix(ref.MediaType, "text/") || strings.HasPrefix(ref.MediaType, "image/") {
		return model.Supported, nil
	}
	return model.Unsupported, nil
}

func (o *OpenAiLlm) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	switch item.Content.Kind {
	case model.KindText:
		return o.redactText(ctx, item)
	case model.KindImage:
		return o.redactImageCoordMode(ctx, item)
	default:
		return item, rerrors.New(rerrors.KindRedactionFailed, "openai: unsupported content kind")
	}
}

func (o *OpenAiLlm) redactText(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	separator := NewSeparator()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: GenerativeTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: GenerativeSystemPrompt(separator)},
			{Role: openai.ChatMessageRoleUser, Content: WrapWithSeparator(separator, item.Content.Text)},
		},
	})
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "openai chat completion")
	}
	if len(resp.Choices) == 0 {
		return item, rerrors.New(rerrors.KindRedactionFailed, "openai: empty completion")
	}
	out := item
	out.Content.Text = StripSeparator(separator, resp.Choices[0].Message.Content)
	return out, nil
}

func (o *OpenAiLlm) redactImageCoordMode(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	resized, err := imageredact.ResizeToFit(item.Content.ImageMimeType, item.Content.ImageBytes, 1024, 1024)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "resizing image for openai")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", item.Content.ImageMimeType, base64.StdEncoding.EncodeToString(resized))
	prompt := "Identify every region of this image containing personally identifiable information. " +
		"Respond with a JSON array of objects, each with x1,y1,x2,y2 pixel coordinates and an optional text field. " +
		"Respond with only the JSON array, no other text."

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: GenerativeTemperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "openai vision completion")
	}
	if len(resp.Choices) == 0 {
		return item, rerrors.New(rerrors.KindRedactionFailed, "openai: empty vision completion")
	}

	var coords []openaiCoord
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &coords); err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "parsing openai coord response")
	}

	boxes := make([]imageredact.Coords, len(coords))
	for i, c := range coords {
		boxes[i] = imageredact.Coords{X1: c.X1, Y1: c.Y1, X2: c.X2, Y2: c.Y2, Text: c.Text}
	}

	redacted, err := imageredact.Redact(item.Content.ImageMimeType, item.Content.ImageBytes, boxes, coordModeApproximation)
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "painting openai coord redaction")
	}

	out := item
	out.Content.ImageBytes = redacted
	return out, nil
}
