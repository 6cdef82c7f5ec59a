package main

import (
	"context"
	"fmt"

	dlp "cloud.google.com/go/dlp/apiv2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/redacter/dlpcopy/internal/redact"
)

// redacterConfig collects the per-backend credentials/URLs the CLI
// surface lists only abstractly in spec.md §6 ("plus per-backend
// credentials/URLs"). Each field is only read when its backend's name
// appears in --redact.
type redacterConfig struct {
	gcpProject string

	awsComprehendLanguage string
	awsBedrockModel       string

	openaiAPIKey string
	openaiModel  string

	geminiAPIKey      string
	geminiModel       string
	geminiNativeImage bool

	presidioURL      string
	presidioLanguage string

	httpPiiURL      string
	httpPiiLanguage string

	imageCoords []string
	imageApprox float64
}

// buildRedacters dispatches each --redact enum value (in configured
// order, per §5 "Redactor order is the user-supplied order") to the
// backend constructor it names, dialing exactly the clients that
// invocation needs.
func buildRedacters(ctx context.Context, names []string, cfg redacterConfig) ([]redact.Redacter, error) {
	redacters := make([]redact.Redacter, 0, len(names))
	for _, name := range names {
		r, err := buildOneRedacter(ctx, name, cfg)
		if err != nil {
			return nil, fmt.Errorf("--redact %s: %w", name, err)
		}
		redacters = append(redacters, r)
	}
	return redacters, nil
}

func buildOneRedacter(ctx context.Context, name string, cfg redacterConfig) (redact.Redacter, error) {
	switch name {
	case "gcp-dlp":
		if cfg.gcpProject == "" {
			return nil, fmt.Errorf("requires --gcp-project")
		}
		client, err := dlp.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("dialing gcp dlp client: %w", err)
		}
		return redact.NewGcpDlp(client, cfg.gcpProject), nil

	case "aws-comprehend":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		language := cfg.awsComprehendLanguage
		if language == "" {
			language = "en"
		}
		client := comprehend.NewFromConfig(awsCfg)
		return redact.NewAwsComprehend(client, types.LanguageCode(language), nil), nil

	case "aws-bedrock":
		if cfg.awsBedrockModel == "" {
			return nil, fmt.Errorf("requires --aws-bedrock-model")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		return redact.NewAwsBedrock(client, cfg.awsBedrockModel), nil

	case "openai-llm":
		if cfg.openaiAPIKey == "" {
			return nil, fmt.Errorf("requires --openai-api-key")
		}
		model := cfg.openaiModel
		if model == "" {
			model = "gpt-4o"
		}
		client := openai.NewClient(cfg.openaiAPIKey)
		return redact.NewOpenAiLlm(client, model), nil

	case "gemini-llm":
		if cfg.geminiAPIKey == "" {
			return nil, fmt.Errorf("requires --gemini-api-key")
		}
		model := cfg.geminiModel
		if model == "" {
			model = "gemini-2.0-flash"
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.geminiAPIKey, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return nil, fmt.Errorf("dialing gemini client: %w", err)
		}
		return redact.NewGeminiLlm(client, model, cfg.geminiNativeImage), nil

	case "ms-presidio":
		if cfg.presidioURL == "" {
			return nil, fmt.Errorf("requires --presidio-url")
		}
		language := cfg.presidioLanguage
		if language == "" {
			language = "en"
		}
		return redact.NewMsPresidio(nil, cfg.presidioURL, language, nil), nil

	case "http-pii":
		if cfg.httpPiiURL == "" {
			return nil, fmt.Errorf("requires --httppii-url")
		}
		language := cfg.httpPiiLanguage
		if language == "" {
			language = "en"
		}
		return redact.NewHttpPii(nil, cfg.httpPiiURL, language, nil), nil

	case "image-redactor":
		coords, err := parseImageCoords(cfg.imageCoords)
		if err != nil {
			return nil, err
		}
		return redact.NewSimpleImage(coords, cfg.imageApprox), nil

	default:
		return nil, fmt.Errorf("unknown redacter %q", name)
	}
}
