package redact

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/rerrors"
)

// bedrockRequest/Response mirror the Anthropic Messages wire shape
// Bedrock's InvokeModel accepts for anthropic.* model IDs.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Temperature      float64          `json:"temperature"`
	System           string           `json:"system"`
	Messages         []bedrockMessage `json:"messages"`
}

type bedrockMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// AwsBedrock is the generative-LLM text backend (§4.6 "Generative-LLM
// (text)") backed by Bedrock's InvokeModel.
type AwsBedrock struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewAwsBedrock builds an AwsBedrock backend targeting modelID (an
// Anthropic-family Bedrock model ID).
func NewAwsBedrock(client *bedrockruntime.Client, modelID string) *AwsBedrock {
	return &AwsBedrock{client: client, modelID: modelID}
}

func (b *AwsBedrock) RedacterType() Type { return TypeAwsBedrock }

func (b *AwsBedrock) RedactSupport(ctx context.Context, ref model.FileSystemRef) (model.RedactSupport, error) {
	if strings.HasPrefix(ref.MediaType, "text/") {
		return model.Supported, nil
	}
	return model.Unsupported, nil
}

func (b *AwsBedrock) Redact(ctx context.Context, item model.RedacterDataItem) (model.RedacterDataItem, error) {
	if item.Content.Kind != model.KindText {
		return item, rerrors.New(rerrors.KindRedactionFailed, "aws bedrock: unsupported content kind")
	}

	separator := NewSeparator()
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4096,
		Temperature:      GenerativeTemperature,
		System:           GenerativeSystemPrompt(separator),
		Messages: []bedrockMessage{
			{Role: "user", Content: WrapWithSeparator(separator, item.Content.Text)},
		},
	})
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "encoding bedrock request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &b.modelID,
		ContentType: strPtr("application/json"),
		Body:        body,
	})
	if err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "bedrock invoke model")
	}

	var parsed bedrockResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return item, rerrors.Wrap(rerrors.KindRedactionFailed, err, "decoding bedrock response")
	}
	var text strings.Builder
	for _, c := range parsed.Content {
		text.WriteString(c.Text)
	}

	out := item
	out.Content.Text = StripSeparator(separator, text.String())
	return out, nil
}

func strPtr(s string) *string { return &s }
