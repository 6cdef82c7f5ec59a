// Package stream implements the stream redacter (C7, §4.7): plan
// construction (which conversions must run, which configured redacters
// can process the result) and plan execution (materialize, convert,
// throttle, redact, serialize).
package stream

import (
	"context"

	"github.com/redacter/dlpcopy/internal/model"
	"github.com/redacter/dlpcopy/internal/redact"
)

// Plan is the outcome of plan construction: the conversion flags from
// model.StreamRedactPlan plus the ordered subset of the caller's
// redacters that can process the (possibly converted) payload, in the
// caller's original configured order.
type Plan struct {
	model.StreamRedactPlan
	Supported []redact.Redacter
}

// BuildPlan implements §4.7 "Plan construction". redacters is the
// caller-configured, order-significant sequence; pdfAvailable/ocrAvailable
// report whether those converters are configured, and when false the PDF/
// image reprobe branches are skipped entirely (matching the original's
// `Option<PdfToImage>`/`Option<Ocr>` gating).
func BuildPlan(ctx context.Context, ref model.FileSystemRef, redacters []redact.Redacter, pdfAvailable, ocrAvailable bool) (Plan, error) {
	natural, err := supportedAgainst(ctx, redacters, ref)
	if err != nil {
		return Plan{}, err
	}
	if len(natural) > 0 {
		return Plan{Supported: natural}, nil
	}

	switch {
	case isMime(ref.MediaType, "text/csv"), ref.MediaType == "application/csv":
		asText := ref
		asText.MediaType = "text/plain"
		supported, err := supportedAgainst(ctx, redacters, asText)
		if err != nil {
			return Plan{}, err
		}
		if len(supported) > 0 {
			return Plan{StreamRedactPlan: model.StreamRedactPlan{TreatTableAsText: true}, Supported: supported}, nil
		}

	case ref.MediaType == "application/pdf":
		if pdfAvailable {
			asImage := ref
			asImage.MediaType = "image/png"
			supported, err := supportedAgainst(ctx, redacters, asImage)
			if err != nil {
				return Plan{}, err
			}
			if len(supported) > 0 {
				return Plan{StreamRedactPlan: model.StreamRedactPlan{ApplyPdfToImages: true}, Supported: supported}, nil
			}
			if ocrAvailable {
				asText := ref
				asText.MediaType = "text/plain"
				supported, err := supportedAgainst(ctx, redacters, asText)
				if err != nil {
					return Plan{}, err
				}
				if len(supported) > 0 {
					return Plan{
						StreamRedactPlan: model.StreamRedactPlan{ApplyPdfToImages: true, ApplyOcr: true},
						Supported:        supported,
					}, nil
				}
			}
		}

	case isMime(ref.MediaType, "image/"):
		if ocrAvailable {
			asText := ref
			asText.MediaType = "text/plain"
			supported, err := supportedAgainst(ctx, redacters, asText)
			if err != nil {
				return Plan{}, err
			}
			if len(supported) > 0 {
				return Plan{StreamRedactPlan: model.StreamRedactPlan{ApplyOcr: true}, Supported: supported}, nil
			}
		}
	}

	return Plan{}, nil
}

func supportedAgainst(ctx context.Context, redacters []redact.Redacter, ref model.FileSystemRef) ([]redact.Redacter, error) {
	var out []redact.Redacter
	for _, r := range redacters {
		support, err := r.RedactSupport(ctx, ref)
		if err != nil {
			return nil, err
		}
		if support == model.Supported {
			out = append(out, r)
		}
	}
	return out, nil
}

func isMime(mediaType, prefixOrExact string) bool {
	if len(prefixOrExact) > 0 && prefixOrExact[len(prefixOrExact)-1] == '/' {
		return len(mediaType) >= len(prefixOrExact) && mediaType[:len(prefixOrExact)] == prefixOrExact
	}
	return mediaType == prefixOrExact
}
